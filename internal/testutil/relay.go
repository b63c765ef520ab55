package testutil

import (
	"context"
	"sync"

	"github.com/khbm0110/JUUUU/internal/relay"
)

// StubRelay records submissions and answers with a fixed result or error.
type StubRelay struct {
	mu   sync.Mutex
	subs []relay.Submission

	Result relay.Result
	Err    error
}

func (s *StubRelay) Send(_ context.Context, sub relay.Submission) (relay.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := sub.Validate(); err != nil {
		return relay.Result{}, err
	}
	s.subs = append(s.subs, sub)
	if s.Err != nil {
		return relay.Result{}, s.Err
	}
	res := s.Result
	if res.Provider == "" {
		res.Provider = "stub"
	}
	return res, nil
}

// Submissions returns a copy of everything relayed so far.
func (s *StubRelay) Submissions() []relay.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]relay.Submission(nil), s.subs...)
}
