// Package storage implements content.Repository on top of memory, local
// files, SQLite and Firestore.
package storage

import (
	"context"
	"sync"

	"github.com/khbm0110/JUUUU/internal/content"
)

// Memory keeps the document in process memory. It is used in tests and when
// persistence is disabled.
type Memory struct {
	mu      sync.RWMutex
	payload []byte
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.payload == nil {
		return nil, content.ErrNotFound
	}
	return append([]byte(nil), m.payload...), nil
}

func (m *Memory) Save(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.payload = append([]byte(nil), payload...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
