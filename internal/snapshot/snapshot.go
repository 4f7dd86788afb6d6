// Package snapshot publishes the store and index pair that queries read,
// swapping in a freshly loaded pair atomically on reload.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ken-1511/howard-financial/internal/index"
	"github.com/ken-1511/howard-financial/internal/store"
)

// ErrNotLoaded is returned by Current before the first successful load.
var ErrNotLoaded = errors.New("snapshot not loaded")

// Snapshot is an immutable store/index pair.
type Snapshot struct {
	Store    *store.Store
	Index    *index.Index
	LoadedAt time.Time
}

// LoadFunc builds a complete snapshot from disk.
type LoadFunc func(ctx context.Context) (*Snapshot, error)

// Holder owns the current snapshot. Readers never observe a partially
// rebuilt snapshot.
type Holder struct {
	current atomic.Pointer[Snapshot]
	load    LoadFunc
	logger  *zap.Logger

	// reloadMu serialises reloads; readers never take it.
	reloadMu sync.Mutex
	// OnReload, when set, is called after every reload attempt.
	OnReload func(err error)
}

// NewHolder returns a holder that uses load to (re)build snapshots.
func NewHolder(load LoadFunc, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{load: load, logger: logger}
}

// Current returns the published snapshot.
func (h *Holder) Current() (*Snapshot, error) {
	s := h.current.Load()
	if s == nil {
		return nil, ErrNotLoaded
	}
	return s, nil
}

// Reload builds a new snapshot and publishes it. On failure the previous
// snapshot stays in place.
func (h *Holder) Reload(ctx context.Context) error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	s, err := h.load(ctx)
	if err == nil && s == nil {
		err = errors.New("loader returned no snapshot")
	}
	if err != nil {
		h.logger.Error("snapshot reload failed", zap.Error(err))
		if h.OnReload != nil {
			h.OnReload(err)
		}
		return fmt.Errorf("reloading snapshot: %w", err)
	}
	if s.LoadedAt.IsZero() {
		s.LoadedAt = time.Now()
	}
	h.current.Store(s)

	h.logger.Info("snapshot published",
		zap.Int("transactions", s.Store.Len()),
		zap.Int("vectors", s.Index.Count()),
	)
	if h.OnReload != nil {
		h.OnReload(nil)
	}
	return nil
}

// debounceDelay absorbs editors and writers that touch a file several times.
const debounceDelay = 250 * time.Millisecond

// Watch reloads the snapshot whenever one of files changes, until ctx is
// done. The parent directories are watched so that files replaced by
// rename are picked up.
func (h *Holder) Watch(ctx context.Context, files ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}

	targets := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = watcher.Close()
			return fmt.Errorf("resolving %s: %w", f, err)
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for d := range dirs {
		if err := watcher.Add(d); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("watching %s: %w", d, err)
		}
	}

	go h.runWatcher(ctx, watcher, targets)
	return nil
}

func (h *Holder) runWatcher(ctx context.Context, watcher *fsnotify.Watcher, targets map[string]bool) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if abs, err := filepath.Abs(event.Name); err != nil || !targets[abs] {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				if ctx.Err() != nil {
					return
				}
				h.logger.Info("data changed, reloading", zap.String("file", event.Name))
				_ = h.Reload(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}
