package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 100 * time.Millisecond

// Reload is emitted by Watch after the config file changed. Err is set when
// the new file could not be loaded; the previous config stays in effect.
type Reload struct {
	Config *UserConfig
	Err    error
}

// Watch streams reloaded configs until ctx is cancelled. The directory is
// watched rather than the file so that editors replacing the file on save
// are seen. Bursts of writes produce one reload. The channel is closed
// once ctx is done or the watcher fails.
func Watch(ctx context.Context, path string) (<-chan Reload, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: watch %s: %w", dir, err)
	}

	out := make(chan Reload, 1)
	go func() {
		defer close(out)
		defer watcher.Close()

		target := filepath.Clean(path)
		timer := time.NewTimer(reloadDelay)
		timer.Stop()
		defer timer.Stop()
		pending := false

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", "err", err)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
					continue
				}
				if !pending {
					pending = true
					timer.Reset(reloadDelay)
				}
			case <-timer.C:
				pending = false
				cfg, err := LoadFrom(path)
				if err != nil {
					logger.Warn("config reload failed", "path", path, "err", err)
				} else {
					logger.Info("config reloaded", "path", path)
				}
				select {
				case out <- Reload{Config: cfg, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
