package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads overrides when files in the override directory change. It
// returns once the watcher is running; the watch stops when ctx ends.
func (r *Registry) Watch(ctx context.Context) error {
	if r.dir == "" {
		return nil
	}
	if _, err := os.Stat(r.dir); os.IsNotExist(err) {
		slog.Debug("Prompt directory does not exist, skipping watcher", "path", r.dir)
		return nil
	}

	r.mu.Lock()
	if r.watcher != nil {
		r.mu.Unlock()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("failed to create prompt watcher: %w", err)
	}
	if err := w.Add(r.dir); err != nil {
		r.mu.Unlock()
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", r.dir, err)
	}
	r.watcher = w
	r.mu.Unlock()

	go r.watchLoop(ctx, w)
	slog.Debug("Watching prompt overrides", "path", r.dir)
	return nil
}

func (r *Registry) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer func() {
		r.mu.Lock()
		w.Close()
		r.watcher = nil
		r.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			r.handleEvent(ev)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Error("Prompt watcher error", "error", err)
		}
	}
}

func (r *Registry) handleEvent(ev fsnotify.Event) {
	if filepath.Ext(ev.Name) != ext {
		return
	}
	name := strings.TrimSuffix(filepath.Base(ev.Name), ext)

	switch {
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
		if err := r.loadFile(ev.Name); err != nil {
			slog.Error("Failed to reload prompt", "name", name, "error", err)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		r.revert(name)
	}
}
