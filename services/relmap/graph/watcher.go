// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RebuildHandler is called with the fresh result after a debounced
// rebuild. Called from the watcher goroutine.
type RebuildHandler func(rels *Relationships, err error)

// Watcher rebuilds relationships when source files change.
//
// # Description
//
// Watches a project root recursively and batches change events using a
// debounce window, so a burst of editor writes triggers one rebuild,
// not one per keystroke. Only files with registered extensions count;
// build output and VCS directories are ignored.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single
// goroutine.
type Watcher struct {
	root     string
	builder  *Builder
	handler  RebuildHandler
	debounce time.Duration

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// DefaultDebounceWindow is how long the watcher waits for more
// changes before rebuilding.
const DefaultDebounceWindow = 250 * time.Millisecond

// NewWatcher creates a Watcher over root using builder for rebuilds.
// A zero debounce selects DefaultDebounceWindow.
func NewWatcher(root string, builder *Builder, handler RebuildHandler, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		root:     root,
		builder:  builder,
		handler:  handler,
		debounce: debounce,
		watcher:  fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching and blocks until ctx is canceled or Stop is
// called. An initial build runs before the first event.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	slog.Info("watching for changes",
		slog.String("root", w.root),
		slog.Duration("debounce", w.debounce))

	w.rebuild(ctx)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			// New directories must be watched as they appear.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			w.rebuild(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

// Stop terminates the watch loop. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
}

func (w *Watcher) rebuild(ctx context.Context) {
	rels, err := w.builder.BuildDir(ctx, w.root)
	if err != nil {
		slog.Warn("rebuild failed", slog.String("error", err.Error()))
	}
	if w.handler != nil {
		w.handler(rels, err)
	}
}

// relevant filters events down to registered source extensions.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := filepath.Ext(event.Name)
	if ext == "" {
		// Could be a directory create/remove; let it through so the
		// debounced rebuild picks up moved trees.
		return event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Remove)
	}
	_, ok := w.builder.registry.GetByExtension(ext)
	return ok
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip silently
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := defaultSkipDirs[d.Name()]; skip {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}
