// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/threadstore/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestStore_Create(t *testing.T) {
	store := newTestStore(t)

	th, err := store.Create("My thread")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if th.ID == "" {
		t.Error("Expected non-empty ID")
	}
	if th.Title != "My thread" {
		t.Errorf("Title = %q, want %q", th.Title, "My thread")
	}
	if len(th.Messages) != 0 {
		t.Errorf("New thread should have no messages, got %d", len(th.Messages))
	}
	if th.Summary != "" {
		t.Error("New thread should have no summary")
	}

	// Persisted immediately: a fresh load returns the same thread.
	loaded, err := store.Load(th.ID)
	if err != nil {
		t.Fatalf("Load after Create failed: %v", err)
	}
	if loaded.ID != th.ID || loaded.Title != th.Title {
		t.Error("Loaded thread should match created thread")
	}
}

func TestStore_Create_EmptyTitleGetsPlaceholder(t *testing.T) {
	store := newTestStore(t)

	th, err := store.Create("")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if th.Title != model.DefaultTitlePlaceholder {
		t.Errorf("Title = %q, want placeholder %q", th.Title, model.DefaultTitlePlaceholder)
	}
}

func TestStore_Create_DistinctIDs(t *testing.T) {
	store := newTestStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		th, err := store.Create("")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[th.ID] {
			t.Fatalf("Duplicate ID from Create: %s", th.ID)
		}
		seen[th.ID] = true
	}
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestStore_LoadNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("nonexistent-id")
	if !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("Expected ErrThreadNotFound, got %v", err)
	}
}

func TestStore_Load_CorruptFile(t *testing.T) {
	store := newTestStore(t)

	path := filepath.Join(store.BaseDir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := store.Load("broken")
	if !IsStorageError(err) {
		t.Errorf("Expected StorageError for corrupt file, got %v", err)
	}
	if errors.Is(err, ErrThreadNotFound) {
		t.Error("Corrupt file is not the same as not found")
	}
}

// =============================================================================
// APPEND TESTS
// =============================================================================

func TestStore_AppendMessage(t *testing.T) {
	store := newTestStore(t)
	th, _ := store.Create("")

	updated, err := store.AppendMessage(th.ID, model.RoleUser, "hello", time.Time{})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if updated.MessageCount() != 1 {
		t.Fatalf("MessageCount = %d, want 1", updated.MessageCount())
	}
	last := updated.LastMessage()
	if last.Role != model.RoleUser || last.Content != "hello" {
		t.Errorf("Last message = %+v, want user/hello", last)
	}

	// Persisted state matches the returned thread.
	loaded, _ := store.Load(th.ID)
	if loaded.MessageCount() != 1 || loaded.LastMessage().Content != "hello" {
		t.Error("Persisted thread should match returned thread")
	}
}

func TestStore_AppendMessage_InvalidRole(t *testing.T) {
	store := newTestStore(t)
	th, _ := store.Create("")

	_, err := store.AppendMessage(th.ID, model.Role("robot"), "beep", time.Time{})
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Expected ErrInvalidRole, got %v", err)
	}

	// Nothing was appended.
	loaded, _ := store.Load(th.ID)
	if loaded.MessageCount() != 0 {
		t.Error("Invalid append must not mutate the thread")
	}
}

func TestStore_AppendMessage_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AppendMessage("missing", model.RoleUser, "hello", time.Time{})
	if !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("Expected ErrThreadNotFound, got %v", err)
	}
}

func TestStore_AppendMessage_InvalidatesSummary(t *testing.T) {
	store := newTestStore(t)
	th, _ := store.Create("")

	for i := 0; i < 5; i++ {
		if _, err := store.AppendMessage(th.ID, model.RoleUser, "msg", time.Time{}); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}
	if err := store.SetSummary(th.ID, "short summary"); err != nil {
		t.Fatalf("SetSummary failed: %v", err)
	}

	if _, err := store.AppendMessage(th.ID, model.RoleAssistant, "one more", time.Time{}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	loaded, _ := store.Load(th.ID)
	if loaded.Summary != "" {
		t.Errorf("Summary should be invalidated on append, got %q", loaded.Summary)
	}
}

func TestStore_AppendMessage_SummaryKeptWhenPolicyDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.InvalidateSummaryOnAppend = false
	store, err := NewStoreWithOptions(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	th, _ := store.Create("")
	store.AppendMessage(th.ID, model.RoleUser, "hello", time.Time{})
	store.SetSummary(th.ID, "kept")
	store.AppendMessage(th.ID, model.RoleAssistant, "hi", time.Time{})

	loaded, _ := store.Load(th.ID)
	if loaded.Summary != "kept" {
		t.Errorf("Summary = %q, want %q under manual invalidation policy", loaded.Summary, "kept")
	}
}

func TestStore_AppendMessage_DerivesTitle(t *testing.T) {
	store := newTestStore(t)
	th, _ := store.Create("")

	updated, err := store.AppendMessage(th.ID, model.RoleUser, "What is the capital of France?", time.Time{})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if updated.Title != "What is the capital of France?" {
		t.Errorf("Title = %q, want derived from first user message", updated.Title)
	}

	// Later messages don't change the title again.
	updated, _ = store.AppendMessage(th.ID, model.RoleUser, "And of Spain?", time.Time{})
	if updated.Title != "What is the capital of France?" {
		t.Errorf("Title changed on second message: %q", updated.Title)
	}
}

func TestStore_AppendMessage_ExplicitTimestamp(t *testing.T) {
	store := newTestStore(t)
	th, _ := store.Create("")

	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	updated, err := store.AppendMessage(th.ID, model.RoleUser, "pi day", ts)
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if !updated.LastMessage().Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", updated.LastMessage().Timestamp, ts)
	}
}

// =============================================================================
// SUMMARY AND CLEAR TESTS
// =============================================================================

func TestStore_SetSummary(t *testing.T) {
	store := newTestStore(t)
	th, _ := store.Create("")
	store.AppendMessage(th.ID, model.RoleUser, "hello", time.Time{})

	before, _ := store.Load(th.ID)
	time.Sleep(5 * time.Millisecond)

	if err := store.SetSummary(th.ID, "a brief summary"); err != nil {
		t.Fatalf("SetSummary failed: %v", err)
	}

	loaded, _ := store.Load(th.ID)
	if loaded.Summary != "a brief summary" {
		t.Errorf("Summary = %q, want %q", loaded.Summary, "a brief summary")
	}
	if loaded.MessageCount() != before.MessageCount() {
		t.Error("SetSummary must not touch messages")
	}
	if !loaded.UpdatedAt.After(before.UpdatedAt) {
		t.Error("SetSummary should advance UpdatedAt")
	}
}

func TestStore_SetSummary_NotFound(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetSummary("missing", "text"); !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("Expected ErrThreadNotFound, got %v", err)
	}
}

func TestStore_ClearMessages(t *testing.T) {
	store := newTestStore(t)
	th, _ := store.Create("")
	store.AppendMessage(th.ID, model.RoleUser, "hello there", time.Time{})
	store.SetSummary(th.ID, "summary")

	if err := store.ClearMessages(th.ID); err != nil {
		t.Fatalf("ClearMessages failed: %v", err)
	}

	loaded, _ := store.Load(th.ID)
	if loaded.MessageCount() != 0 {
		t.Errorf("Messages should be empty, got %d", loaded.MessageCount())
	}
	if loaded.Summary != "" {
		t.Error("Summary should be cleared")
	}
	if loaded.Title != model.DefaultTitlePlaceholder {
		t.Errorf("Title = %q, want placeholder", loaded.Title)
	}
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	th, _ := store.Create("")

	if err := store.Delete(th.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Load(th.ID); !errors.Is(err, ErrThreadNotFound) {
		t.Error("Thread should not exist after delete")
	}
}

func TestStore_Delete_Idempotent(t *testing.T) {
	store := newTestStore(t)
	th, _ := store.Create("")

	if err := store.Delete(th.ID); err != nil {
		t.Fatalf("First delete failed: %v", err)
	}
	if err := store.Delete(th.ID); err != nil {
		t.Errorf("Second delete should be a no-op, got %v", err)
	}
	if err := store.Delete("never-existed"); err != nil {
		t.Errorf("Deleting an unknown id should be a no-op, got %v", err)
	}
}

// =============================================================================
// LIST TESTS
// =============================================================================

func TestStore_List_Empty(t *testing.T) {
	store := newTestStore(t)

	metas, failed, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 0 || len(failed) != 0 {
		t.Errorf("Expected empty listing, got %d metas, %d failures", len(metas), len(failed))
	}
}

func TestStore_List_RecencyOrder(t *testing.T) {
	store := newTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		th, _ := store.Create("")
		ids = append(ids, th.ID)
		time.Sleep(10 * time.Millisecond)
	}

	metas, _, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("Expected 3 threads, got %d", len(metas))
	}
	if metas[0].ID != ids[2] || metas[2].ID != ids[0] {
		t.Error("List should be ordered most recently updated first")
	}

	// Touching the oldest thread moves it to the front.
	time.Sleep(10 * time.Millisecond)
	store.AppendMessage(ids[0], model.RoleUser, "bump", time.Time{})
	metas, _, _ = store.List()
	if metas[0].ID != ids[0] {
		t.Error("Appending should move a thread to the front of the list")
	}
}

func TestStore_List_SkipsAndReportsCorruptFiles(t *testing.T) {
	store := newTestStore(t)
	th, _ := store.Create("")

	bad := filepath.Join(store.BaseDir, "corrupt.json")
	if err := os.WriteFile(bad, []byte("{{{"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	metas, failed, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 1 || metas[0].ID != th.ID {
		t.Errorf("Healthy thread should still be listed, got %d metas", len(metas))
	}
	if len(failed) != 1 || failed[0].ID != "corrupt" {
		t.Fatalf("Corrupt file should be reported, got %+v", failed)
	}
	if failed[0].Err == nil {
		t.Error("DecodeFailure should carry the underlying error")
	}
}

func TestStore_List_MetaFields(t *testing.T) {
	store := newTestStore(t)
	th, _ := store.Create("")
	store.AppendMessage(th.ID, model.RoleSystem, "be brief", time.Time{})
	store.AppendMessage(th.ID, model.RoleUser, "  what is\na monad?  ", time.Time{})

	metas, _, _ := store.List()
	if len(metas) != 1 {
		t.Fatalf("Expected 1 meta, got %d", len(metas))
	}
	m := metas[0]
	if m.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", m.MessageCount)
	}
	if m.Preview != "what is a monad?" {
		t.Errorf("Preview = %q, want collapsed first user message", m.Preview)
	}
}

// =============================================================================
// SEARCH TESTS
// =============================================================================

func TestStore_Search(t *testing.T) {
	store := newTestStore(t)

	a, _ := store.Create("")
	store.AppendMessage(a.ID, model.RoleUser, "Tell me about Rust", time.Time{})
	b, _ := store.Create("")
	store.AppendMessage(b.ID, model.RoleUser, "Tell me about Go", time.Time{})

	results, err := store.Search("rust")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != a.ID {
		t.Errorf("Expected 1 result for 'rust', got %d", len(results))
	}

	results, _ = store.Search("tell me")
	if len(results) != 2 {
		t.Errorf("Expected 2 results for 'tell me', got %d", len(results))
	}
}

// =============================================================================
// BOOTSTRAP TESTS
// =============================================================================

func TestStore_EnsureDefaultThread_CreatesWhenEmpty(t *testing.T) {
	store := newTestStore(t)

	th, err := store.EnsureDefaultThread()
	if err != nil {
		t.Fatalf("EnsureDefaultThread failed: %v", err)
	}
	if th.Title != model.DefaultTitlePlaceholder {
		t.Errorf("Bootstrap thread title = %q, want placeholder", th.Title)
	}

	metas, _, _ := store.List()
	if len(metas) != 1 {
		t.Fatalf("Expected exactly 1 thread after bootstrap, got %d", len(metas))
	}
}

func TestStore_EnsureDefaultThread_ReturnsMostRecent(t *testing.T) {
	store := newTestStore(t)
	store.Create("old")
	time.Sleep(10 * time.Millisecond)
	recent, _ := store.Create("recent")

	th, err := store.EnsureDefaultThread()
	if err != nil {
		t.Fatalf("EnsureDefaultThread failed: %v", err)
	}
	if th.ID != recent.ID {
		t.Error("EnsureDefaultThread should return the most recent thread, not create one")
	}

	metas, _, _ := store.List()
	if len(metas) != 2 {
		t.Errorf("EnsureDefaultThread must not create extra threads, got %d", len(metas))
	}
}

// =============================================================================
// LIMIT TESTS
// =============================================================================

func TestStore_EnforceLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxThreads = 3
	store, err := NewStoreWithOptions(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := store.Create(""); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	metas, _, _ := store.List()
	if len(metas) > 3 {
		t.Errorf("Expected at most 3 threads, got %d", len(metas))
	}
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestStore_RoundTripAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	th, _ := store.Create("")
	store.AppendMessage(th.ID, model.RoleUser, "hello", time.Time{})
	store.AppendMessage(th.ID, model.RoleAssistant, "hi there", time.Time{})
	store.SetSummary(th.ID, "greeting exchange")
	want, _ := store.Load(th.ID)

	// Simulate a process restart with a fresh store over the same dir.
	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	got, err := reopened.Load(th.ID)
	if err != nil {
		t.Fatalf("Load after restart failed: %v", err)
	}

	if got.ID != want.ID || got.Title != want.Title || got.Summary != want.Summary {
		t.Error("Reloaded thread metadata should match")
	}
	if got.MessageCount() != want.MessageCount() {
		t.Fatalf("MessageCount = %d, want %d", got.MessageCount(), want.MessageCount())
	}
	for i := range want.Messages {
		if got.Messages[i].Role != want.Messages[i].Role ||
			got.Messages[i].Content != want.Messages[i].Content ||
			!got.Messages[i].Timestamp.Equal(want.Messages[i].Timestamp) {
			t.Errorf("Message %d differs after restart", i)
		}
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Error("Timestamps should survive the round trip")
	}
}

func TestStore_UnicodeContent(t *testing.T) {
	store := newTestStore(t)
	th, _ := store.Create("")

	if _, err := store.AppendMessage(th.ID, model.RoleUser, "こんにちは世界!", time.Time{}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	loaded, _ := store.Load(th.ID)
	if loaded.Messages[0].Content != "こんにちは世界!" {
		t.Error("Unicode content should be preserved")
	}
	if !strings.HasPrefix(loaded.Title, "こんにちは") {
		t.Errorf("Derived title should keep unicode intact, got %q", loaded.Title)
	}
}
