// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discovery

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/crewscope/services/scope/ast"
)

// RescanHandler receives the result of each rescan. Err is non-nil when
// the rescan itself failed; Result is nil in that case.
type RescanHandler func(result *Result, err error)

// Watcher re-runs discovery whenever relevant files under the project
// root change.
//
// # Description
//
// Watches the project tree recursively and batches file events with a
// debounce window, so a burst of editor writes triggers one rescan
// rather than one per keystroke. Each rescan is a full Discover pass;
// nothing is cached between runs.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is always called from a single
// goroutine, never concurrently with itself.
type Watcher struct {
	discoverer *Discoverer
	handler    RescanHandler
	debounce   time.Duration

	fsWatcher *fsnotify.Watcher
	done      chan struct{}
	stopOnce  sync.Once

	mu       sync.RWMutex
	watching bool
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait after the last event before
	// rescanning. Default: 500ms.
	DebounceWindow time.Duration
}

// NewWatcher creates a watcher over an existing discoverer.
//
// # Inputs
//
//   - d: Discoverer whose root will be watched and rescanned.
//   - handler: Called after every rescan with the result or error.
//   - opts: Optional configuration (nil uses defaults).
//
// # Outputs
//
//   - *Watcher: Ready-to-use watcher (call Start to begin).
//   - error: Non-nil if the underlying file watcher could not be created.
func NewWatcher(d *Discoverer, handler RescanHandler, opts *WatcherOptions) (*Watcher, error) {
	debounce := 500 * time.Millisecond
	if opts != nil && opts.DebounceWindow > 0 {
		debounce = opts.DebounceWindow
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		discoverer: d,
		handler:    handler,
		debounce:   debounce,
		fsWatcher:  fsWatcher,
		done:       make(chan struct{}),
	}, nil
}

// Start runs an initial scan, then watches for changes until the context
// is canceled or Stop is called.
//
// # Behavior
//
// The initial scan fires the handler before any file event. Directories
// created while watching are added to the watch list so new packages are
// picked up without a restart.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.addRecursive(w.discoverer.opts.Root); err != nil {
		return err
	}

	w.rescan(ctx)

	go w.loop(ctx)
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsWatcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// loop debounces file events and triggers rescans.
func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				// New directories need watching to see their files.
				_ = w.addRecursive(event.Name)
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
		case <-timerC:
			timer = nil
			timerC = nil
			w.rescan(ctx)
		}
	}
}

func (w *Watcher) rescan(ctx context.Context) {
	result, err := w.discoverer.Discover(ctx)
	w.handler(result, err)
}

// relevant filters events down to source and config changes. Directory
// events pass through so creations extend the watch list.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if ignoredDirs[base] {
		return false
	}
	switch strings.ToLower(filepath.Ext(event.Name)) {
	case "":
		// Likely a directory; keep it for addRecursive.
		return event.Op.Has(fsnotify.Create)
	case ".py":
		return true
	case ".yaml", ".yml":
		// Only the conventional config files change discovery output.
		return ast.LooksLikeConfigFile(strings.ToLower(base))
	}
	return false
}

// addRecursive watches path and every non-ignored subdirectory under it.
func (w *Watcher) addRecursive(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if ignoredDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(p)
	})
}
