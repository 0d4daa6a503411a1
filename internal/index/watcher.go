// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides a SQLite search index over stored threads.
package index

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// WATCHER
// =============================================================================

// Watcher keeps the index current when thread files change outside this
// process, for example a second CLI invocation against the same data
// directory. Events are debounced so a burst of writes to one file
// triggers a single re-index.
type Watcher struct {
	ix       *ThreadIndex
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time // thread id -> last change time

	ctx    context.Context
	cancel context.CancelFunc
}

// Watch starts watching the store's data directory and attaches the
// watcher to the index so Close tears it down.
func (ix *ThreadIndex) Watch(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(ix.store.BaseDir); err != nil {
		fsw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		ix:       ix,
		watcher:  fsw,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}

	ix.mu.Lock()
	ix.watcher = w
	ix.mu.Unlock()

	go w.processEvents()
	go w.processPending()

	return w, nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

// processEvents collects filesystem events into the pending set.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			id, relevant := threadIDFromPath(event.Name)
			if !relevant {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending[id] = time.Now()
			w.mu.Unlock()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the index can always be
			// rebuilt explicitly.
		}
	}
}

// processPending flushes quiesced entries on a timer.
func (w *Watcher) processPending() {
	interval := w.debounce / 2
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flushQuiesced()
		}
	}
}

// flushQuiesced re-indexes every pending thread whose last event is
// older than the debounce window.
func (w *Watcher) flushQuiesced() {
	now := time.Now()

	w.mu.Lock()
	var ready []string
	for id, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, id)
			delete(w.pending, id)
		}
	}
	w.mu.Unlock()

	for _, id := range ready {
		w.reindex(id)
	}
}

// reindex refreshes one thread from the store, removing it from the
// index when its file is gone.
func (w *Watcher) reindex(id string) {
	th, err := w.ix.store.Load(id)
	if err != nil {
		// Deleted or unreadable: either way it no longer belongs in
		// the index.
		w.ix.RemoveThread(id)
		return
	}
	w.ix.UpdateThread(th)
}

// threadIDFromPath extracts a thread id from a file event path,
// filtering out temp files and anything that is not a thread file.
func threadIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".tmp-") {
		return "", false
	}
	if !strings.HasSuffix(base, ".json") {
		return "", false
	}
	return strings.TrimSuffix(base, ".json"), true
}
