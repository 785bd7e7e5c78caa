package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	cperrors "github.com/msto63/condparse/pkg/core/errors"
	"github.com/msto63/condparse/pkg/core/logging"
)

// DefaultDebounce collapses the burst of events editors emit on save
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Config)
	logger   *logging.Logger

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once
}

// WatchOption configures a Watcher
type WatchOption func(*Watcher)

// WithDebounce overrides DefaultDebounce
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatchLogger sets the logger used for reload messages
func WithWatchLogger(logger *logging.Logger) WatchOption {
	return func(w *Watcher) { w.logger = logger }
}

// Watch starts watching path and calls onChange with every configuration
// that loads and validates. Invalid files are logged and skipped; the
// previous configuration stays in effect. The watcher stops when ctx is
// done or Close is called.
//
// The parent directory is watched rather than the file itself, since many
// editors save by renaming a temporary file over the original.
func Watch(ctx context.Context, path string, onChange func(*Config), opts ...WatchOption) (*Watcher, error) {
	if path == "" {
		return nil, cperrors.New("no config file to watch").
			WithCode(cperrors.CodeConfig).
			WithOperation("config.Watch")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, cperrors.Wrap(err, "failed to resolve config path").WithCode(cperrors.CodeConfig)
	}

	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.New("config-watcher")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, cperrors.Wrap(err, "failed to create watcher").WithCode(cperrors.CodeInternal)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, cperrors.Wrap(err, "failed to watch config directory").
			WithCode(cperrors.CodeConfig).
			WithDetail("path", abs)
	}
	w.watcher = watcher

	w.logger.Info("Watching config file", "path", abs)
	go w.loop(ctx)
	return w, nil
}

// Path returns the absolute path being watched
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher and waits for its goroutine to exit
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.stopCh) })
	<-w.done
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	// Reloads wait for the file to settle; each new event restarts the timer.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Stopping config watcher (context cancelled)")
			return

		case <-w.stopCh:
			w.logger.Debug("Stopping config watcher (stop signal)")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("Config reload failed, keeping previous configuration", "path", w.path, "error", err)
		return
	}
	w.logger.Info("Config reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
