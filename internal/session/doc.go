// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks per-session UI state.
//
// A Session holds the "active thread" pointer that a UI driver would
// otherwise keep in globals. It never owns thread data; every read goes
// through the backing store. Rules:
//
//   - at most one active thread per session (zero when the store is empty)
//   - init-on-first-use via EnsureActive
//   - the pointer is cleared when the active thread is deleted
//   - Close tears the session down
package session
