package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khbm0110/JUUUU/internal/config"
	"github.com/khbm0110/JUUUU/internal/content"
)

// Backend is a repository that owns resources.
type Backend interface {
	content.Repository
	Close() error
}

// Watcher is implemented by backends that can report external changes.
type Watcher interface {
	Watch(ctx context.Context, onChange func(context.Context)) error
}

// Open builds the backend selected by cfg.Driver.
func Open(cfg config.StorageConfig, logger *zap.Logger) (Backend, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverFile, "":
		return NewFile(cfg.Path, logger), nil
	case config.DriverSQLite:
		return OpenSQLite(cfg.Path)
	case config.DriverFirestore:
		return NewFirestore(cfg.Firestore), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}
