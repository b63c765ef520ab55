// Package content owns the committed site data: the embedded defaults, the
// persisted overlay and the atomic replace used by the admin editor.
package content

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/khbm0110/JUUUU/internal/tree"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	// ErrNotFound is returned by a Repository that holds no saved document.
	ErrNotFound = errors.New("content: no saved document")
	// ErrNotPersisted wraps a Save failure after a successful swap.
	ErrNotPersisted = errors.New("content: change applied but not persisted")
)

// Repository persists the serialized SiteData document. Load returns
// ErrNotFound when nothing has been saved yet.
type Repository interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, payload []byte) error
}

// Defaults decodes the embedded default site.
func Defaults() (SiteData, error) {
	node, err := defaultsTree()
	if err != nil {
		return SiteData{}, err
	}
	var out SiteData
	if err := tree.ToValue(node, &out); err != nil {
		return SiteData{}, fmt.Errorf("content: decode defaults: %w", err)
	}
	return out, nil
}

func defaultsTree() (tree.Node, error) {
	var node map[string]any
	if err := yaml.Unmarshal(defaultsYAML, &node); err != nil {
		return nil, fmt.Errorf("content: parse defaults: %w", err)
	}
	return node, nil
}

// Store holds the committed SiteData. Reads return copies; ReplaceAll swaps
// the whole aggregate.
type Store struct {
	mu       sync.RWMutex
	data     SiteData
	defaults tree.Node
	repo     Repository
	logger   *zap.Logger
}

// NewStore builds a store seeded with the embedded defaults. Call Load to
// overlay the repository document.
func NewStore(repo Repository, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults, err := defaultsTree()
	if err != nil {
		return nil, err
	}
	s := &Store{defaults: defaults, repo: repo, logger: logger}
	if err := tree.ToValue(defaults, &s.data); err != nil {
		return nil, fmt.Errorf("content: decode defaults: %w", err)
	}
	return s, nil
}

// Load overlays the saved document on the defaults. A missing document keeps
// the defaults; an unreadable one is logged and also keeps the defaults.
func (s *Store) Load(ctx context.Context) {
	data := s.overlay(ctx)
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}

// Refresh is Load under another name, used by storage watchers.
func (s *Store) Refresh(ctx context.Context) {
	s.Load(ctx)
	s.logger.Info("content reloaded from storage")
}

func (s *Store) overlay(ctx context.Context) SiteData {
	var fallback SiteData
	_ = tree.ToValue(s.defaults, &fallback)
	if s.repo == nil {
		return fallback
	}

	payload, err := s.repo.Load(ctx)
	if errors.Is(err, ErrNotFound) || (err == nil && len(payload) == 0) {
		return fallback
	}
	if err != nil {
		s.logger.Error("load saved content", zap.Error(err))
		return fallback
	}

	var saved map[string]any
	if err := json.Unmarshal(payload, &saved); err != nil {
		s.logger.Error("decode saved content", zap.Error(err))
		return fallback
	}

	var out SiteData
	if err := tree.ToValue(tree.Merge(s.defaults, saved), &out); err != nil {
		s.logger.Error("apply saved content", zap.Error(err))
		return fallback
	}
	return out
}

// Get returns a copy of the translations for lang. An unknown language yields
// the zero Translations.
func (s *Store) Get(lang string) Translations {
	s.mu.RLock()
	t, ok := s.data.Content[lang]
	s.mu.RUnlock()
	if !ok {
		return Translations{}
	}
	var out Translations
	if err := cloneJSON(t, &out); err != nil {
		return Translations{}
	}
	return out
}

// Site returns a deep copy of the committed aggregate.
func (s *Store) Site() SiteData {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()
	var out SiteData
	if err := cloneJSON(data, &out); err != nil {
		s.logger.Error("copy site data", zap.Error(err))
	}
	return out
}

// ReplaceAll swaps in data and then saves it. The swap always takes effect;
// a persistence failure is logged and returned wrapped in ErrNotPersisted so
// callers can surface a warning.
func (s *Store) ReplaceAll(ctx context.Context, data SiteData) error {
	var next SiteData
	if err := cloneJSON(data, &next); err != nil {
		return fmt.Errorf("content: copy: %w", err)
	}
	s.mu.Lock()
	s.data = next
	s.mu.Unlock()

	if s.repo == nil {
		return nil
	}
	payload, err := json.Marshal(next)
	if err == nil {
		err = s.repo.Save(ctx, payload)
	}
	if err != nil {
		s.logger.Warn("persist site content", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	return nil
}

func cloneJSON(src, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
