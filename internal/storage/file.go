package storage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/khbm0110/JUUUU/internal/content"
)

const watchDebounce = 100 * time.Millisecond

// File stores the document as JSON, or YAML when the path ends in .yaml/.yml.
// Writes go through a temp file and rename so readers never see a partial
// document.
type File struct {
	path   string
	yaml   bool
	logger *zap.Logger

	mu   sync.Mutex
	last [sha256.Size]byte
}

// NewFile returns a repository backed by path. The parent directory is
// created on first save.
func NewFile(path string, logger *zap.Logger) *File {
	if logger == nil {
		logger = zap.NewNop()
	}
	ext := strings.ToLower(filepath.Ext(path))
	return &File{
		path:   path,
		yaml:   ext == ".yaml" || ext == ".yml",
		logger: logger,
	}
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

func (f *File) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, content.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", f.path, err)
	}
	f.remember(raw)
	if !f.yaml {
		return raw, nil
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("storage: parse %s: %w", f.path, err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("storage: encode %s: %w", f.path, err)
	}
	return out, nil
}

func (f *File) Save(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := payload
	if f.yaml {
		var doc map[string]any
		if err := json.Unmarshal(payload, &doc); err != nil {
			return fmt.Errorf("storage: decode payload: %w", err)
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("storage: encode yaml: %w", err)
		}
		data = out
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("storage: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", tmpName, err)
	}
	f.remember(data)
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("storage: rename to %s: %w", f.path, err)
	}
	return nil
}

func (f *File) Close() error { return nil }

func (f *File) remember(raw []byte) {
	sum := sha256.Sum256(raw)
	f.mu.Lock()
	f.last = sum
	f.mu.Unlock()
}

// changed reports whether raw differs from the last document read or written.
func (f *File) changed(raw []byte) bool {
	sum := sha256.Sum256(raw)
	f.mu.Lock()
	defer f.mu.Unlock()
	return sum != f.last
}

// Watch calls onChange whenever the file is modified outside this process.
// It blocks until ctx is cancelled. The parent directory is watched so that
// editors replacing the file by rename are observed.
func (f *File) Watch(ctx context.Context, onChange func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("storage: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create %s: %w", dir, err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("storage: watch %s: %w", dir, err)
	}

	target := filepath.Clean(f.path)
	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			raw, err := os.ReadFile(f.path)
			if err != nil {
				f.logger.Warn("read watched content file", zap.String("path", f.path), zap.Error(err))
				continue
			}
			if !f.changed(raw) {
				continue
			}
			f.logger.Info("content file changed on disk", zap.String("path", f.path))
			onChange(ctx)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Error("fsnotify error", zap.Error(werr))
		}
	}
}
