// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides a SQLite search index over stored threads.
package index

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// SQLite schema for the thread index with FTS (Full Text Search).
// The index is a cache: it can be dropped and rebuilt from the thread
// files at any time.
const Schema = `
-- Metadata table for schema version and index state
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Threads table: listing metadata, mirrors storage.ThreadMeta
CREATE TABLE IF NOT EXISTS threads (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    created_at INTEGER NOT NULL,   -- Unix nanoseconds
    updated_at INTEGER NOT NULL,   -- Unix nanoseconds
    message_count INTEGER NOT NULL,
    preview TEXT
);

CREATE INDEX IF NOT EXISTS idx_threads_updated_at ON threads(updated_at);

-- Full-text search over message content. Messages carry no stable id of
-- their own, so a thread's rows are replaced wholesale on update.
CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    thread_id UNINDEXED,
    role UNINDEXED,
    content,
    tokenize='porter unicode61'
);
`
