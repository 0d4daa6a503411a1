// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides thread persistence for threadstore.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/threadstore/internal/model"
	"github.com/jeranaias/threadstore/internal/util"
)

// =============================================================================
// LISTING TYPES
// =============================================================================

// ThreadMeta contains the subset of thread fields a picker UI needs.
// Message bodies are not carried; Preview is precomputed from the first
// user message.
type ThreadMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// DecodeFailure identifies a thread file that could not be read or
// decoded during a listing scan. The scan continues past it; callers can
// distinguish "store is empty" from "store had unreadable entries".
type DecodeFailure struct {
	ID  string
	Err error
}

// =============================================================================
// STORE
// =============================================================================

// Options tunes store behavior. The zero value is usable; empty or zero
// fields fall back to defaults.
type Options struct {
	// TitlePlaceholder is the title given to threads before one is
	// derived. Default: model.DefaultTitlePlaceholder.
	TitlePlaceholder string

	// TitleBudget is the display width derived titles are truncated to.
	// Default: model.DefaultTitleBudget.
	TitleBudget int

	// InvalidateSummaryOnAppend clears a cached summary whenever a
	// message is appended (stale-on-write). When false the summary
	// persists until explicitly regenerated.
	InvalidateSummaryOnAppend bool

	// MaxThreads limits stored threads (0 = unlimited). When exceeded,
	// the least recently updated threads are pruned after a save.
	MaxThreads int
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		TitlePlaceholder:          model.DefaultTitlePlaceholder,
		TitleBudget:               model.DefaultTitleBudget,
		InvalidateSummaryOnAppend: true,
		MaxThreads:                0,
	}
}

// Store handles thread persistence: one JSON file per thread under
// BaseDir, named by thread id. The files are the source of truth; every
// mutating operation persists before returning, so the in-memory thread
// handed back to the caller always matches disk.
type Store struct {
	// BaseDir is the directory holding thread files.
	BaseDir string

	opts Options
}

// NewStore creates a store rooted at baseDir with default options.
func NewStore(baseDir string) (*Store, error) {
	return NewStoreWithOptions(baseDir, DefaultOptions())
}

// NewStoreWithOptions creates a store rooted at baseDir.
func NewStoreWithOptions(baseDir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, storageErr("mkdir", "", err)
	}
	if opts.TitlePlaceholder == "" {
		opts.TitlePlaceholder = model.DefaultTitlePlaceholder
	}
	if opts.TitleBudget <= 0 {
		opts.TitleBudget = model.DefaultTitleBudget
	}
	return &Store{BaseDir: baseDir, opts: opts}, nil
}

// Options returns the store's effective options.
func (s *Store) Options() Options {
	return s.opts
}

// TitlePlaceholder returns the configured placeholder title.
func (s *Store) TitlePlaceholder() string {
	return s.opts.TitlePlaceholder
}

// =============================================================================
// CREATE
// =============================================================================

// Create allocates a new thread with a fresh id, the given title (or the
// placeholder when empty), empty history, and no summary. The thread is
// persisted before it is returned.
func (s *Store) Create(title string) (*model.Thread, error) {
	if title == "" {
		title = s.opts.TitlePlaceholder
	}
	th := model.NewThread(title)
	if err := s.persist(th); err != nil {
		return nil, err
	}
	if s.opts.MaxThreads > 0 {
		s.enforceLimit()
	}
	return th, nil
}

// EnsureDefaultThread returns the most recently updated thread, creating
// one only when the store is empty. This is the single bootstrap guard;
// callers never need their own "create if none exist" checks.
func (s *Store) EnsureDefaultThread() (*model.Thread, error) {
	metas, _, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return s.Create("")
	}
	return s.Load(metas[0].ID)
}

// =============================================================================
// LOAD
// =============================================================================

// Load retrieves a full thread by id, messages included.
func (s *Store) Load(id string) (*model.Thread, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrThreadNotFound
		}
		return nil, storageErr("read", id, err)
	}

	var th model.Thread
	if err := json.Unmarshal(data, &th); err != nil {
		return nil, storageErr("decode", id, err)
	}
	return &th, nil
}

// Exists reports whether a thread file is present for id.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.filePath(id))
	return err == nil
}

// =============================================================================
// LIST
// =============================================================================

// List returns metadata for all threads, most recently updated first.
// Unreadable or corrupt thread files are skipped and reported in the
// second return value; one bad file never hides the rest of the history.
func (s *Store) List() ([]ThreadMeta, []DecodeFailure, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ThreadMeta{}, nil, nil
		}
		return nil, nil, storageErr("scan", "", err)
	}

	metas := make([]ThreadMeta, 0, len(entries))
	var failed []DecodeFailure

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")

		th, err := s.Load(id)
		if err != nil {
			failed = append(failed, DecodeFailure{ID: id, Err: err})
			continue
		}
		metas = append(metas, s.meta(th))
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})

	return metas, failed, nil
}

// meta builds listing metadata from a loaded thread.
func (s *Store) meta(th *model.Thread) ThreadMeta {
	preview := ""
	if msg := th.FirstUserMessage(); msg != nil {
		preview = util.TruncateWidth(util.CollapseSpace(msg.Content), 80)
	}
	return ThreadMeta{
		ID:           th.ID,
		Title:        th.Title,
		CreatedAt:    th.CreatedAt,
		UpdatedAt:    th.UpdatedAt,
		MessageCount: th.MessageCount(),
		Preview:      preview,
	}
}

// Search returns threads whose title or preview contains the query,
// case-insensitive. Matching over full message bodies lives in the index
// package; this is the cheap metadata-only variant.
func (s *Store) Search(query string) ([]ThreadMeta, error) {
	all, _, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []ThreadMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
		}
	}
	return results, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AppendMessage validates the role, appends a message to the end of the
// thread, advances updated_at, applies the summary invalidation policy,
// derives a title if the thread still carries the placeholder, and
// persists. A zero ts means "now".
func (s *Store) AppendMessage(id string, role model.Role, content string, ts time.Time) (*model.Thread, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	th, err := s.Load(id)
	if err != nil {
		return nil, err
	}

	th.Append(model.NewMessageAt(role, content, ts))
	if s.opts.InvalidateSummaryOnAppend {
		th.InvalidateSummary()
	}
	th.Title = model.DeriveTitle(th, s.opts.TitlePlaceholder, s.opts.TitleBudget)

	if err := s.persist(th); err != nil {
		return nil, err
	}
	return th, nil
}

// SetSummary records a summary for the thread without touching messages.
func (s *Store) SetSummary(id, text string) error {
	th, err := s.Load(id)
	if err != nil {
		return err
	}
	th.SetSummary(text)
	return s.persist(th)
}

// ClearMessages truncates the thread's history, drops its summary, and
// resets its title to the placeholder.
func (s *Store) ClearMessages(id string) error {
	th, err := s.Load(id)
	if err != nil {
		return err
	}
	th.Clear(s.opts.TitlePlaceholder)
	return s.persist(th)
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a thread from disk. Deleting an absent id is a no-op,
// so callers can retry safely.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return storageErr("delete", id, err)
	}
	return nil
}

// Clear removes every thread file under BaseDir.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return storageErr("scan", "", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// persist writes a thread to its file atomically.
func (s *Store) persist(th *model.Thread) error {
	data, err := json.MarshalIndent(th, "", "  ")
	if err != nil {
		return storageErr("encode", th.ID, err)
	}
	if err := util.AtomicWriteFile(s.filePath(th.ID), data, 0644); err != nil {
		return storageErr("write", th.ID, err)
	}
	return nil
}

// enforceLimit prunes the least recently updated threads past MaxThreads.
func (s *Store) enforceLimit() {
	metas, _, err := s.List()
	if err != nil || len(metas) <= s.opts.MaxThreads {
		return
	}
	// List is newest-first; everything past the limit goes.
	for _, meta := range metas[s.opts.MaxThreads:] {
		s.Delete(meta.ID)
	}
}

// filePath returns the file path for a thread id.
func (s *Store) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}
