package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce is how long after the last write a reload fires.
const reloadDebounce = 500 * time.Millisecond

// Reloader watches a verifier config file and delivers the re-parsed
// config to a callback on change.
type Reloader struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(VerifierConfig)
	logger   *slog.Logger
}

// NewReloader creates a file watcher for the given config path.
func NewReloader(path string, onChange func(VerifierConfig)) (*Reloader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not watchable: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}

	return &Reloader{
		watcher:  watcher,
		path:     path,
		onChange: onChange,
		logger:   slog.Default(),
	}, nil
}

// SetLogger overrides the reloader's logger.
func (r *Reloader) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Run watches for file changes and reloads the config, debounced so a
// burst of writes triggers one reload. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.NewTimer(reloadDebounce)
				fire = debounce.C
			}

		case <-fire:
			fire = nil
			r.reload()

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("config watcher error", "error", err)
		}
	}
}

func (r *Reloader) reload() {
	cfg, err := Load(r.path)
	if err != nil {
		r.logger.Error("config reload failed, keeping previous config", "path", r.path, "error", err)
		return
	}
	r.logger.Info("config reloaded", "path", r.path, "device", cfg.DeviceName)
	r.onChange(cfg)
}
