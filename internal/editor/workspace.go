package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khbm0110/JUUUU/internal/content"
)

var (
	// ErrConfirmationRequired is returned by Commit without an explicit
	// confirmation.
	ErrConfirmationRequired = errors.New("editor: publish requires confirmation")
	// ErrNoChanges is returned by Commit when the draft matches the site.
	ErrNoChanges = errors.New("editor: no pending changes")
)

// DefaultDraftTTL bounds how long an untouched draft is kept.
const DefaultDraftTTL = 2 * time.Hour

// Workspace keeps one draft per admin session.
type Workspace struct {
	store  *content.Store
	logger *zap.Logger
	now    func() time.Time
	ttl    time.Duration
	newID  func(prefix string) string

	mu     sync.Mutex
	drafts map[string]*entry
}

type entry struct {
	draft   Draft
	touched time.Time
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) {
		if now != nil {
			w.now = now
		}
	}
}

// WithTTL sets how long an idle draft survives.
func WithTTL(ttl time.Duration) Option {
	return func(w *Workspace) {
		if ttl > 0 {
			w.ttl = ttl
		}
	}
}

// WithIDGenerator overrides list item id generation.
func WithIDGenerator(fn func(prefix string) string) Option {
	return func(w *Workspace) {
		if fn != nil {
			w.newID = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Workspace) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorkspace builds a workspace committing into store.
func NewWorkspace(store *content.Store, opts ...Option) *Workspace {
	w := &Workspace{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
		ttl:    DefaultDraftTTL,
		newID:  defaultID,
		drafts: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Draft returns the session's draft, starting one from the committed site if
// none exists.
func (w *Workspace) Draft(sessionID string) (Draft, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.entryLocked(sessionID)
	if err != nil {
		return Draft{}, err
	}
	return e.draft, nil
}

// Apply applies ops to the session's draft and returns it with the number of
// ops that took effect.
func (w *Workspace) Apply(sessionID string, ops ...Op) (Draft, int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.entryLocked(sessionID)
	if err != nil {
		return Draft{}, 0, err
	}
	draft, applied := e.draft.ApplyAll(ops...)
	e.draft = draft
	return draft, applied, nil
}

// Pending reports whether the session holds uncommitted changes.
func (w *Workspace) Pending(sessionID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.drafts[sessionID]
	return ok && e.draft.Dirty()
}

// Discard drops the session's draft.
func (w *Workspace) Discard(sessionID string) {
	w.mu.Lock()
	delete(w.drafts, sessionID)
	w.mu.Unlock()
}

// Commit publishes the session's draft. Without confirm nothing happens. A
// storage failure after the swap is returned wrapping content.ErrNotPersisted;
// the draft is dropped in that case too because the site already shows it.
func (w *Workspace) Commit(ctx context.Context, sessionID string, confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.drafts[sessionID]
	if !ok || !e.draft.Dirty() {
		return ErrNoChanges
	}
	site, err := e.draft.Site()
	if err != nil {
		return err
	}
	err = w.store.ReplaceAll(ctx, site)
	if err != nil && !errors.Is(err, content.ErrNotPersisted) {
		return err
	}
	delete(w.drafts, sessionID)
	w.logger.Info("site content published",
		zap.Int("revision", e.draft.Revision()),
		zap.Bool("persisted", err == nil),
	)
	return err
}

// Sweep drops drafts idle longer than the TTL and returns how many it removed.
func (w *Workspace) Sweep() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sweepLocked()
}

func (w *Workspace) sweepLocked() int {
	cutoff := w.now().Add(-w.ttl)
	removed := 0
	for id, e := range w.drafts {
		if e.touched.Before(cutoff) {
			delete(w.drafts, id)
			removed++
		}
	}
	return removed
}

func (w *Workspace) entryLocked(sessionID string) (*entry, error) {
	w.sweepLocked()
	if e, ok := w.drafts[sessionID]; ok {
		e.touched = w.now()
		return e, nil
	}
	draft, err := NewDraft(w.store.Site())
	if err != nil {
		return nil, err
	}
	draft.newID = w.newID
	e := &entry{draft: draft, touched: w.now()}
	w.drafts[sessionID] = e
	return e, nil
}
