package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/psm/logging"
	"go.viam.com/psm/utils"
)

// ReloadDelay is how long a config file has to stay unchanged before it is re-read.
const ReloadDelay = 100 * time.Millisecond

// A Watcher re-reads a config file whenever it changes on disk and hands out the valid results.
// Editors often replace a file instead of writing it, so the parent directory is what gets watched.
type Watcher struct {
	path      string
	fsw       *fsnotify.Watcher
	debounced func(f func())
	logger    logging.Logger
	workers   utils.StoppableWorkers

	mu      sync.Mutex
	configs chan *Config
}

// NewWatcher starts watching the config file at path until ctx is done or Close is called.
func NewWatcher(ctx context.Context, path string, logger logging.Logger) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create config watcher")
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "failed to watch %q", path), fsw.Close())
	}

	w := &Watcher{
		path:      absPath,
		fsw:       fsw,
		debounced: debounce.New(ReloadDelay),
		logger:    logger,
		configs:   make(chan *Config, 1),
	}
	w.workers = utils.NewStoppableWorkersWithContext(ctx, w.watch)
	return w, nil
}

// Config returns the channel that receives every valid config read after a change. Only the
// latest unconsumed config is kept.
func (w *Watcher) Config() <-chan *Config {
	return w.configs
}

// Close stops watching. A reload still waiting out its delay is dropped.
func (w *Watcher) Close() error {
	w.debounced(func() {})
	w.workers.Stop()
	return w.fsw.Close()
}

func (w *Watcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.debounced(func() { w.reload(ctx) })
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("config watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cfg, err := Read(w.path, w.logger)
	if err != nil {
		w.logger.Warnw("ignoring invalid config change", "path", w.path, "error", err)
		return
	}
	w.logger.Debugw("config changed", "path", w.path)

	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.configs:
	default:
	}
	w.configs <- cfg
}

// RequiresRestart reports whether updated differs from current in anything other than the
// logging settings, which are the only ones applied to a running engine.
func RequiresRestart(current, updated *Config) bool {
	return !cmp.Equal(current, updated,
		cmpopts.IgnoreFields(Config{}, "ConfigFilePath", "Debug", "LogConfig"),
		cmpopts.EquateEmpty(),
	)
}
