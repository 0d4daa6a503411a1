// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides a SQLite search index over stored threads.
//
// The index is strictly a cache over the per-thread JSON files: fast
// listing without opening every file, and FTS5 full-text search over
// message content. Dropping the database loses nothing; Rebuild
// reproduces it from the store. A missing or stale index entry never
// hides a thread from the store itself.
//
// # Usage
//
//	ix, err := index.Open(dbPath, store)
//	defer ix.Close()
//
//	err = ix.Rebuild()
//	metas, err := ix.Search("binary tree")
//
// An optional fsnotify watcher picks up thread files changed by other
// processes:
//
//	w, err := ix.Watch(500 * time.Millisecond)
package index
