// Package modelwatch loads a win probability model artifact and watches it
// for changes, swapping in the new model when the file is rewritten.
package modelwatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/maxpolokov/nflwin/internal/wp"
)

// Manager loads and watches a model artifact on disk.
type Manager struct {
	model     *wp.Model
	loadedAt  time.Time
	lock      sync.RWMutex
	modelPath string

	log *slog.Logger
}

type options struct {
	Logger *slog.Logger
}

// Options represents an optional function to override Manager default values.
type Options func(*options)

// New creates a model manager for the artifact at the specified path.
func New(path string, args ...Options) *Manager {
	opts := options{
		Logger: slog.Default(),
	}

	for _, opt := range args {
		opt(&opts)
	}

	return &Manager{
		modelPath: path,
		log:       opts.Logger,
	}
}

// Load reads the model artifact and updates the served model.
func (mm *Manager) Load() error {
	m, err := wp.Load(mm.modelPath)
	if err != nil {
		return fmt.Errorf("loading model artifact: %w", err)
	}
	if !m.Fitted() {
		return fmt.Errorf("model artifact %s is not fitted", mm.modelPath)
	}

	mm.lock.Lock()
	mm.model = m
	mm.loadedAt = time.Now()
	mm.lock.Unlock()

	mm.log.Info("Model loaded", "path", mm.modelPath, "id", m.ID(), "created_at", m.CreatedAt())
	return nil
}

// Watch starts watching the model artifact for changes.
//
// It returns two channels: one for model changes which result in a successful
// load and another for unrecoverable watcher errors. The initial load must
// succeed; a service cannot start without a model to serve.
func (mm *Manager) Watch(ctx context.Context) (changes <-chan struct{}, errors <-chan error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create watcher: %v", err)
	}

	modelDir, _ := filepath.Split(mm.modelPath)
	if modelDir == "" {
		modelDir = "."
	}
	if err := watcher.Add(modelDir); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed to add directory %s to watcher: %v", modelDir, err)
	}

	if err := mm.Load(); err != nil {
		watcher.Close()
		return nil, nil, err
	}

	mm.log.Info("Watching model directory", "dir", modelDir)
	changesCh := make(chan struct{}, 1)
	errorsCh := make(chan error, 1)

	go func() {
		defer close(changesCh)
		defer close(errorsCh)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				mm.log.Info("Model watcher stopped")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					errorsCh <- fmt.Errorf("watcher events channel closed unexpectedly")
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}

				if event.Name != mm.modelPath {
					continue
				}

				mm.log.Debug("Model artifact changed. Reloading...")
				if err := mm.Load(); err != nil {
					// Keep serving the previous model.
					mm.log.Warn("Error reloading model", "err", err)
					continue
				}

				select {
				case changesCh <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					errorsCh <- fmt.Errorf("watcher errors channel closed unexpectedly")
					return
				}
				mm.log.Warn("Watcher error", "err", err)
			}
		}
	}()

	return changesCh, errorsCh, nil
}

// Model returns the currently served model.
func (mm *Manager) Model() *wp.Model {
	mm.lock.RLock()
	defer mm.lock.RUnlock()
	return mm.model
}

// LoadedAt returns when the currently served model was loaded.
func (mm *Manager) LoadedAt() time.Time {
	mm.lock.RLock()
	defer mm.lock.RUnlock()
	return mm.loadedAt
}
