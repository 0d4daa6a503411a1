// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides thread persistence for threadstore.
//
// Each thread lives in its own JSON file under the store's base
// directory, named by thread id. Writes are atomic (temp file + fsync +
// rename), so a crash mid-write never leaves a partially written file.
// The per-thread files are the source of truth; the index package is
// only a cache over them.
//
// # Key Types
//
//   - Store: create, list, load, append, summarize, clear, delete
//   - ThreadMeta: lightweight metadata for listing
//   - DecodeFailure: an unreadable thread file reported by List
//
// # Usage
//
// Create a store and a thread:
//
//	store, err := storage.NewStore(dataDir)
//	th, err := store.Create("")
//
// Append a message and list threads:
//
//	th, err = store.AppendMessage(th.ID, model.RoleUser, "hello", time.Time{})
//	metas, failed, err := store.List()
//
// # Error Handling
//
// ErrThreadNotFound and ErrInvalidRole are deterministic and surfaced
// immediately. I/O and serialization failures come back as *StorageError
// and are contained per-file during List.
package storage
