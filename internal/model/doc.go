// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for threads and messages.
//
// # Key Types
//
//   - Thread: a single conversation with ordered messages and metadata
//   - Message: one turn, tagged with a Role from a closed set
//   - Role: user, assistant, or system
//
// Threads are plain data. Persistence lives in the storage package; the
// only behavior here is message bookkeeping and title derivation.
package model
