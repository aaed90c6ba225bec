// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/govcodes/pkg/logging"
	"github.com/AleutianAI/govcodes/services/afsc/dataset"
)

// ChangeHandler is called with the de-duplicated set of reference document
// paths that changed during one debounce window.
type ChangeHandler func(ctx context.Context, paths []string)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is how long the watcher waits for more changes before
	// calling the handler. Default: 250ms.
	Debounce time.Duration

	// BufferSize bounds pending events. Default: 256.
	BufferSize int

	// Logger receives watch errors. Default: discard.
	Logger *logging.Logger
}

// Watcher watches search-path directories for reference document changes.
//
// # Description
//
// For every search path the watcher follows <path>/gov_codes/afsc when it
// exists and <path> itself otherwise, so a document directory created after
// start-up is picked up on the next change at the root. Only .yml and .yaml
// files count as changes. Bursts of events (editors often write a file
// several times) are collapsed with a debounce window, and the handler runs
// on a single goroutine.
//
// # Thread Safety
//
// Start, SetPaths and Stop may be called from any goroutine. Stop is
// idempotent.
type Watcher struct {
	paths    []string
	handler  ChangeHandler
	debounce time.Duration
	logger   *logging.Logger

	watcher  *fsnotify.Watcher
	changes  chan string
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu       sync.Mutex
	watching bool
	dirs     map[string]string // search path -> watched directory
}

// NewWatcher creates a watcher for paths. Call Start to begin watching.
func NewWatcher(paths []string, handler ChangeHandler, opts WatcherOptions) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 250 * time.Millisecond
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		paths:    paths,
		handler:  handler,
		debounce: opts.Debounce,
		logger:   opts.Logger.With("component", "watcher"),
		watcher:  fw,
		changes:  make(chan string, opts.BufferSize),
		done:     make(chan struct{}),
		dirs:     make(map[string]string),
	}, nil
}

// ErrNoWatchablePaths is returned by Start when search paths were given
// but none of them exist. With no paths at all Start succeeds and the
// watcher idles until SetPaths.
var ErrNoWatchablePaths = errors.New("no watchable search paths")

// Start registers the directories and launches the event and debounce
// goroutines. They exit when ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching {
		return nil
	}

	added := 0
	for _, p := range w.paths {
		if w.watchPath(p) {
			added++
		}
	}
	if added == 0 && len(w.paths) > 0 {
		return ErrNoWatchablePaths
	}

	w.watching = true
	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// SetPaths replaces the watched search paths, typically after a reload
// changed them. Directories of dropped paths stop producing changes. Before
// Start it only replaces the paths Start will use.
func (w *Watcher) SetPaths(paths []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.paths = append([]string(nil), paths...)
	if !w.watching {
		return
	}

	keep := make(map[string]bool, len(paths))
	for _, p := range paths {
		keep[p] = true
	}
	for p, dir := range w.dirs {
		if keep[p] {
			continue
		}
		_ = w.watcher.Remove(dir)
		if dir == p {
			// A document tree may have been added under the root later.
			_ = w.watcher.Remove(filepath.Join(p, filepath.FromSlash(dataset.Dir)))
		}
		delete(w.dirs, p)
	}
	for _, p := range paths {
		if _, ok := w.dirs[p]; !ok {
			w.watchPath(p)
		}
	}
	w.logger.Info("watching search paths", "paths", paths, "directories", len(w.dirs))
}

// watchPath adds the directory for search path p. Caller holds mu.
func (w *Watcher) watchPath(p string) bool {
	dir := filepath.Join(p, filepath.FromSlash(dataset.Dir))
	if !isDir(dir) {
		dir = p
	}
	if !isDir(dir) {
		w.logger.Warn("search path not watchable", "path", p)
		return false
	}
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("watch failed", "path", dir, "error", err.Error())
		return false
	}
	w.dirs[p] = dir
	return true
}

// Stop closes the underlying watcher and waits for the goroutines to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
		w.wg.Wait()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether Start succeeded and Stop has not been called.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watching
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && filepath.Base(event.Name) == "gov_codes" {
				// Document tree created under a watched root.
				w.addLate(event.Name)
			}
			if !isDocument(event.Name) {
				continue
			}
			select {
			case w.changes <- event.Name:
			default:
				w.logger.Debug("change buffer full, dropping event", "path", event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err.Error())
		}
	}
}

func (w *Watcher) addLate(dir string) {
	target := filepath.Join(dir, "afsc")
	if isDir(target) {
		if err := w.watcher.Add(target); err != nil {
			w.logger.Warn("watch failed", "path", target, "error", err.Error())
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return
		case <-w.done:
			stopTimer()
			return
		case p := <-w.changes:
			pending[p] = struct{}{}
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
		case <-timerC:
			timer, timerC = nil, nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			if w.handler != nil {
				w.handler(ctx, paths)
			}
		}
	}
}

func isDocument(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
