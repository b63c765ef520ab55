// Package scrollspy decides which page section the navigation indicator
// highlights. Programmatic scrolls win immediately and suppress scroll
// observations for a cooldown so the animation cannot thrash the indicator.
package scrollspy

import (
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is how long observations are ignored after ScrollTo.
const DefaultCooldown = time.Second

// topFraction of the viewport below which the first section is forced.
const topFraction = 0.5

// Observation is one viewport measurement.
type Observation struct {
	ScrollY        float64  `json:"scrollY"`
	ViewportHeight float64  `json:"viewportHeight"`
	Intersecting   []string `json:"intersecting"`
}

// Tracker holds the current section. It is safe for concurrent use.
type Tracker struct {
	mu            sync.Mutex
	sections      []string
	known         map[string]struct{}
	current       string
	cooldown      time.Duration
	cooldownUntil time.Time
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(t *Tracker) {
		if d >= 0 {
			t.cooldown = d
		}
	}
}

// New builds a tracker over the ordered section ids. Ids may be given with
// or without a leading '#'. The first section starts current.
func New(sections []string, opts ...Option) *Tracker {
	t := &Tracker{
		known:    make(map[string]struct{}, len(sections)),
		cooldown: DefaultCooldown,
	}
	for _, s := range sections {
		id := Normalize(s)
		if id == "" {
			continue
		}
		if _, dup := t.known[id]; dup {
			continue
		}
		t.known[id] = struct{}{}
		t.sections = append(t.sections, id)
	}
	if len(t.sections) > 0 {
		t.current = t.sections[0]
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Normalize strips the leading '#' and surrounding space.
func Normalize(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "#")
}

// Sections returns the tracked ids in order.
func (t *Tracker) Sections() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sections...)
}

// Current returns the highlighted section id.
func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Href returns Current with a leading '#', or "" when nothing is tracked.
func (t *Tracker) Href() string {
	if c := t.Current(); c != "" {
		return "#" + c
	}
	return ""
}

// Cooling reports whether observations are currently suppressed.
func (t *Tracker) Cooling(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return now.Before(t.cooldownUntil)
}

// ScrollTo makes id current immediately and opens a fresh cooldown window,
// replacing any window still open. Unknown ids are ignored.
func (t *Tracker) ScrollTo(id string, now time.Time) bool {
	id = Normalize(id)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.known[id]; !ok {
		return false
	}
	t.current = id
	t.cooldownUntil = now.Add(t.cooldown)
	return true
}

// Observe applies a viewport measurement and reports whether the current
// section changed. It is ignored while a cooldown is open. Near the top of
// the page the first section is forced; otherwise the last intersecting
// known section wins.
func (t *Tracker) Observe(obs Observation, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.Before(t.cooldownUntil) || len(t.sections) == 0 {
		return false
	}

	next := t.current
	if obs.ScrollY < obs.ViewportHeight*topFraction {
		next = t.sections[0]
	} else {
		for _, raw := range obs.Intersecting {
			id := Normalize(raw)
			if _, ok := t.known[id]; ok {
				next = id
			}
		}
	}
	if next == t.current {
		return false
	}
	t.current = next
	return true
}
