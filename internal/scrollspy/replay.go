package scrollspy

import (
	"errors"
	"time"
)

// Event kinds accepted by Replay.
const (
	EventScrollTo = "scrollTo"
	EventObserve  = "observe"
)

// ErrUnknownEvent is returned for an event kind Replay does not handle.
var ErrUnknownEvent = errors.New("scrollspy: unknown event")

// Event is a timestamped input, as recorded by the page script. At is
// milliseconds since the first event.
type Event struct {
	Type    string      `json:"type"`
	At      int64       `json:"at"`
	Section string      `json:"section,omitempty"`
	Observe Observation `json:"observe,omitempty"`
}

// Replay feeds events into a fresh tracker and returns the final section.
func Replay(sections []string, events []Event, opts ...Option) (string, error) {
	t := New(sections, opts...)
	base := time.Unix(0, 0)
	for _, ev := range events {
		at := base.Add(time.Duration(ev.At) * time.Millisecond)
		switch ev.Type {
		case EventScrollTo:
			t.ScrollTo(ev.Section, at)
		case EventObserve:
			t.Observe(ev.Observe, at)
		default:
			return "", ErrUnknownEvent
		}
	}
	return t.Current(), nil
}
