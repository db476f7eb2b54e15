package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string // watched recursively
	InitialScan bool     // emit files already present
	SkipHidden  bool
	Debounce    time.Duration // coalesce create/write bursts per file
	Logger      *slog.Logger
}

// StartWatcher emits the paths of supported files as they are created or
// rewritten under Roots. Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if cfg.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && AllowedExt(filepath.Ext(path)) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(errCh)
		defer close(evCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watcher close failed", "error", err)
			}
		}()

		emit := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		var mu sync.Mutex
		pending := map[string]*time.Timer{}
		ready := make(chan string, 64)
		defer func() {
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
		}()

		schedule := func(p string) {
			if cfg.Debounce <= 0 {
				emit(p)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if t, ok := pending[p]; ok {
				t.Reset(cfg.Debounce)
				return
			}
			pending[p] = time.AfterFunc(cfg.Debounce, func() {
				mu.Lock()
				delete(pending, p)
				mu.Unlock()
				select {
				case ready <- p:
				case <-ctx.Done():
				}
			})
		}

		for {
			select {
			case <-ctx.Done():
				return
			case p := <-ready:
				if !emit(p) {
					return
				}
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if cfg.SkipHidden && IsHidden(e.Name) {
					continue
				}
				if e.Has(fsnotify.Create) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := addDir(e.Name); err != nil {
							logger.Warn("failed to watch new directory", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if AllowedExt(filepath.Ext(e.Name)) && (e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					schedule(e.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// Watch analyzes files from StartWatcher until ctx is done, calling onResult
// for each.
func (i *Ingestor) Watch(ctx context.Context, cfg WatchConfig, onResult func(Result)) error {
	if cfg.Logger == nil {
		cfg.Logger = i.logger
	}
	cfg.SkipHidden = cfg.SkipHidden || i.cfg.SkipHidden
	paths, errs, err := StartWatcher(ctx, cfg)
	if err != nil {
		return err
	}
	for {
		select {
		case p, ok := <-paths:
			if !ok {
				return ctx.Err()
			}
			if i.isOutput(p) {
				continue
			}
			r, err := i.IngestPath(ctx, p)
			if err != nil {
				r.Err = err.Error()
			}
			if onResult != nil {
				onResult(r)
			}
		case err, ok := <-errs:
			if ok && err != nil {
				i.logger.Warn("ingest.watch.error", "error", err)
			}
			if !ok {
				errs = nil
			}
		}
	}
}
