// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides a SQLite search index over stored threads.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/threadstore/internal/model"
	"github.com/jeranaias/threadstore/internal/storage"
	"github.com/jeranaias/threadstore/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("index closed")
	ErrDatabaseError = errors.New("index database error")
)

// =============================================================================
// THREAD INDEX
// =============================================================================

// ThreadIndex caches thread metadata and message text in SQLite for fast
// listing and full-text search. The per-thread JSON files remain the
// source of truth: every row here can be reproduced with Rebuild, and a
// stale index never hides a thread from the store itself.
type ThreadIndex struct {
	db    *sql.DB
	store *storage.Store
	mu    sync.RWMutex

	closed  bool
	watcher *Watcher
}

// Open opens (creating if needed) the index database at path, bound to
// the given store.
func Open(path string, store *storage.Store) (*ThreadIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if _, err := db.Exec(
		`INSERT OR REPLACE INTO metadata(key, value) VALUES('schema_version', ?)`,
		fmt.Sprintf("%d", SchemaVersion),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return &ThreadIndex{db: db, store: store}, nil
}

// Close stops the watcher (if any) and closes the database.
func (ix *ThreadIndex) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return nil
	}
	ix.closed = true
	if ix.watcher != nil {
		ix.watcher.Close()
		ix.watcher = nil
	}
	return ix.db.Close()
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Rebuild drops all rows and re-indexes every readable thread in the
// store. Unreadable files are skipped, matching the store's own listing
// policy.
func (ix *ThreadIndex) Rebuild() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return ErrClosed
	}

	metas, _, err := ix.store.List()
	if err != nil {
		return err
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM threads`); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if _, err := tx.Exec(`DELETE FROM messages_fts`); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	for _, meta := range metas {
		th, err := ix.store.Load(meta.ID)
		if err != nil {
			continue
		}
		if err := upsertThreadTx(tx, th, meta); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// UpdateThread refreshes a single thread's rows after a store mutation.
func (ix *ThreadIndex) UpdateThread(th *model.Thread) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return ErrClosed
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages_fts WHERE thread_id = ?`, th.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if err := upsertThreadTx(tx, th, metaOf(th)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// RemoveThread drops a thread's rows after deletion from the store.
func (ix *ThreadIndex) RemoveThread(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return ErrClosed
	}

	if _, err := ix.db.Exec(`DELETE FROM threads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if _, err := ix.db.Exec(`DELETE FROM messages_fts WHERE thread_id = ?`, id); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// upsertThreadTx writes a thread's metadata row and FTS rows.
func upsertThreadTx(tx *sql.Tx, th *model.Thread, meta storage.ThreadMeta) error {
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO threads(id, title, created_at, updated_at, message_count, preview)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		th.ID, th.Title, th.CreatedAt.UnixNano(), th.UpdatedAt.UnixNano(),
		len(th.Messages), meta.Preview,
	); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	for _, msg := range th.Messages {
		if _, err := tx.Exec(
			`INSERT INTO messages_fts(thread_id, role, content) VALUES(?, ?, ?)`,
			th.ID, string(msg.Role), msg.Content,
		); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}
	return nil
}

// metaOf mirrors the store's listing metadata for a loaded thread.
func metaOf(th *model.Thread) storage.ThreadMeta {
	preview := ""
	if msg := th.FirstUserMessage(); msg != nil {
		preview = util.TruncateWidth(util.CollapseSpace(msg.Content), 80)
	}
	return storage.ThreadMeta{
		ID:           th.ID,
		Title:        th.Title,
		CreatedAt:    th.CreatedAt,
		UpdatedAt:    th.UpdatedAt,
		MessageCount: len(th.Messages),
		Preview:      preview,
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// ListFast returns thread metadata from the index, most recently updated
// first, without opening any thread file.
func (ix *ThreadIndex) ListFast() ([]storage.ThreadMeta, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil, ErrClosed
	}

	rows, err := ix.db.Query(
		`SELECT id, title, created_at, updated_at, message_count, preview
		 FROM threads ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// Search finds threads whose message content matches the query, best
// match first. An empty query returns the full listing.
func (ix *ThreadIndex) Search(query string) ([]storage.ThreadMeta, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return ix.ListFast()
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil, ErrClosed
	}

	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return []storage.ThreadMeta{}, nil
	}

	rows, err := ix.db.Query(
		`SELECT t.id, t.title, t.created_at, t.updated_at, t.message_count, t.preview
		 FROM messages_fts
		 JOIN threads t ON t.id = messages_fts.thread_id
		 WHERE messages_fts MATCH ?
		 GROUP BY t.id
		 ORDER BY min(messages_fts.rank), t.updated_at DESC`,
		ftsQuery,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// SearchTitles finds threads by title substring, case-insensitive.
func (ix *ThreadIndex) SearchTitles(query string) ([]storage.ThreadMeta, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil, ErrClosed
	}

	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := ix.db.Query(
		`SELECT id, title, created_at, updated_at, message_count, preview
		 FROM threads WHERE lower(title) LIKE ? ORDER BY updated_at DESC`,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// ThreadCount returns the number of indexed threads.
func (ix *ThreadIndex) ThreadCount() (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return 0, ErrClosed
	}

	var n int
	if err := ix.db.QueryRow(`SELECT COUNT(*) FROM threads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return n, nil
}

// buildFTSQuery quotes each term so user input cannot inject FTS syntax.
func buildFTSQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, `"`, "")
		if term == "" {
			continue
		}
		quoted = append(quoted, `"`+term+`"`)
	}
	return strings.Join(quoted, " ")
}

func scanMetas(rows *sql.Rows) ([]storage.ThreadMeta, error) {
	metas := []storage.ThreadMeta{}
	for rows.Next() {
		var meta storage.ThreadMeta
		var createdNs, updatedNs int64
		if err := rows.Scan(&meta.ID, &meta.Title, &createdNs, &updatedNs,
			&meta.MessageCount, &meta.Preview); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		meta.CreatedAt = time.Unix(0, createdNs)
		meta.UpdatedAt = time.Unix(0, updatedNs)
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return metas, nil
}
