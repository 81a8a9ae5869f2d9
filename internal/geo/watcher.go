package geo

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatcherConfig is the configuration structure for a *Watcher.
type WatcherConfig struct {
	// Holder receives every successfully rebuilt index.  It must not be nil.
	Holder *Holder

	// Logger is used for reload messages.  If nil, logs are discarded.
	Logger *zap.Logger

	// Metrics is used to count reloads.  If nil, [EmptyMetrics] is used.
	Metrics Metrics

	// Path is the range table file.  It must not be empty.
	Path string
}

// Watcher rebuilds the index whenever its range table file changes.  A table
// that fails to load or build is logged and the previous index stays in use.
type Watcher struct {
	holder  *Holder
	logger  *zap.Logger
	metrics Metrics
	watcher *fsnotify.Watcher
	path    string
}

// NewWatcher returns a watcher for c.Path.  Watching starts when [Watcher.Run]
// is called.
func NewWatcher(c *WatcherConfig) (w *Watcher, err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}

	path := filepath.Clean(c.Path)

	// Watch the directory, since editors and deploy tools often replace the
	// file instead of writing to it.
	err = fw.Add(filepath.Dir(path))
	if err != nil {
		_ = fw.Close()

		return nil, fmt.Errorf("watching %q: %w", path, err)
	}

	w = &Watcher{
		holder:  c.Holder,
		logger:  c.Logger,
		metrics: c.Metrics,
		watcher: fw,
		path:    path,
	}

	if w.logger == nil {
		w.logger = zap.NewNop()
	}

	if w.metrics == nil {
		w.metrics = EmptyMetrics{}
	}

	return w, nil
}

// Reload rebuilds the index from the range table and stores it in the holder.
func (w *Watcher) Reload() (err error) {
	idx, err := BuildIndexFile(w.path, w.logger)
	if err != nil {
		w.metrics.ObserveReload(false, 0)
		w.logger.Error("reloading range table", zap.String("path", w.path), zap.Error(err))

		return err
	}

	w.holder.Set(idx)
	w.metrics.ObserveReload(true, idx.Len())
	w.logger.Info("range table reloaded", zap.String("path", w.path), zap.Int("ranges", idx.Len()))

	return nil
}

// Run handles file events until ctx is done.  It closes the underlying
// watcher before returning.
func (w *Watcher) Run(ctx context.Context) (err error) {
	defer func() { _ = w.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if !w.relevant(ev) {
				continue
			}

			// The error has already been logged and the old index is kept.
			_ = w.Reload()
		case werr, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("watching range table", zap.Error(werr))
		}
	}
}

// relevant returns true if ev may have changed the contents of the range
// table.
func (w *Watcher) relevant(ev fsnotify.Event) (ok bool) {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}

	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}
