// control/watch.go
// Author: momentics <momentics@gmail.com>
//
// File watcher re-applying a JSON config file to a ConfigStore on change.

package control

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/momentics/nibblepipe/internal/logging"
)

// DefaultSettle is how long the watcher waits after the last change event
// before reloading; editors tend to write a file in several steps.
const DefaultSettle = 100 * time.Millisecond

// Applier accepts a configuration update, rejecting it whole when a value
// is invalid. api.Control implementations satisfy it.
type Applier interface {
	SetConfig(cfg map[string]any) error
}

// Watcher reloads a config file into an Applier whenever it changes.
type Watcher struct {
	path   string
	dst    Applier
	log    *slog.Logger
	settle time.Duration
	w      *fsnotify.Watcher
}

// NewWatcher loads path into dst once, then watches its directory.
// Watching the directory rather than the file keeps working across
// editors that replace the file by rename. A file dst rejects up front is
// an error.
func NewWatcher(path string, dst Applier, logger *slog.Logger) (*Watcher, error) {
	path = filepath.Clean(path)
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := dst.SetConfig(cfg); err != nil {
		return nil, fmt.Errorf("apply config %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Watch(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{
		path:   path,
		dst:    dst,
		log:    logging.For(logger, logging.ComponentControl),
		settle: DefaultSettle,
		w:      w,
	}, nil
}

// SetSettle overrides the debounce delay. Call before Run.
func (cw *Watcher) SetSettle(d time.Duration) { cw.settle = d }

// Run processes file events until ctx is done. A file that fails to load
// or is rejected by the Applier is logged and the previous configuration
// stays in force.
func (cw *Watcher) Run(ctx context.Context) error {
	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-cw.w.Event:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) == cw.path && (ev.IsModify() || ev.IsCreate() || ev.IsRename()) {
				reload = time.After(cw.settle)
			}
		case err, ok := <-cw.w.Error:
			if !ok {
				return nil
			}
			cw.log.Warn("watcher error", "err", err)
		case <-reload:
			reload = nil
			cw.reload()
		}
	}
}

func (cw *Watcher) reload() {
	cfg, err := LoadFile(cw.path)
	if err != nil {
		cw.log.Error("config reload failed", "path", cw.path, "err", err)
		return
	}
	if err := cw.dst.SetConfig(cfg); err != nil {
		cw.log.Error("config reload rejected", "path", cw.path, "err", err)
		return
	}
	cw.log.Info("config reloaded", "path", cw.path, "keys", len(cfg))
}

// Close stops watching.
func (cw *Watcher) Close() error {
	return cw.w.Close()
}
