// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"testing"
	"time"

	"github.com/jeranaias/threadstore/internal/model"
	"github.com/jeranaias/threadstore/internal/storage"
)

func newTestSession(t *testing.T) (*Session, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return Open(store), store
}

func TestOpen(t *testing.T) {
	sess, _ := newTestSession(t)

	if sess.ID() == "" {
		t.Error("Session should have an id")
	}
	if sess.ActiveID() != "" {
		t.Error("No thread should be active before first use")
	}
	if sess.IsDirty() {
		t.Error("New session should be clean")
	}
}

func TestSession_EnsureActive_BootstrapsEmptyStore(t *testing.T) {
	sess, store := newTestSession(t)

	th, err := sess.EnsureActive()
	if err != nil {
		t.Fatalf("EnsureActive failed: %v", err)
	}
	if sess.ActiveID() != th.ID {
		t.Error("EnsureActive should record the active thread")
	}

	metas, _, _ := store.List()
	if len(metas) != 1 {
		t.Fatalf("Bootstrap should create exactly one thread, got %d", len(metas))
	}

	// Second call is a no-op: same thread, no extra creation.
	again, err := sess.EnsureActive()
	if err != nil {
		t.Fatalf("EnsureActive failed: %v", err)
	}
	if again.ID != th.ID {
		t.Error("EnsureActive should be stable across calls")
	}
	metas, _, _ = store.List()
	if len(metas) != 1 {
		t.Errorf("EnsureActive must not create extra threads, got %d", len(metas))
	}
}

func TestSession_EnsureActive_PicksMostRecent(t *testing.T) {
	sess, store := newTestSession(t)

	store.Create("old")
	time.Sleep(10 * time.Millisecond)
	recent, _ := store.Create("recent")

	th, err := sess.EnsureActive()
	if err != nil {
		t.Fatalf("EnsureActive failed: %v", err)
	}
	if th.ID != recent.ID {
		t.Error("EnsureActive should select the most recently updated thread")
	}
}

func TestSession_Activate(t *testing.T) {
	sess, store := newTestSession(t)
	a, _ := store.Create("a")
	b, _ := store.Create("b")

	th, err := sess.Activate(a.ID)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if th.ID != a.ID || sess.ActiveID() != a.ID {
		t.Error("Activate should switch the active thread")
	}

	if _, err := sess.Activate(b.ID); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if sess.ActiveID() != b.ID {
		t.Error("Exactly one thread is active at a time")
	}
}

func TestSession_Activate_NotFound(t *testing.T) {
	sess, _ := newTestSession(t)

	_, err := sess.Activate("missing")
	if !errors.Is(err, storage.ErrThreadNotFound) {
		t.Errorf("Expected ErrThreadNotFound, got %v", err)
	}
	if sess.ActiveID() != "" {
		t.Error("Failed activation must not change the active pointer")
	}
}

func TestSession_ActiveThread(t *testing.T) {
	sess, store := newTestSession(t)

	if _, err := sess.ActiveThread(); !errors.Is(err, ErrNoActiveThread) {
		t.Errorf("Expected ErrNoActiveThread, got %v", err)
	}

	th, _ := store.Create("")
	sess.Activate(th.ID)
	store.AppendMessage(th.ID, model.RoleUser, "hello", time.Time{})

	loaded, err := sess.ActiveThread()
	if err != nil {
		t.Fatalf("ActiveThread failed: %v", err)
	}
	if loaded.MessageCount() != 1 {
		t.Error("ActiveThread should read through to the store")
	}
}

func TestSession_ThreadDeleted(t *testing.T) {
	sess, store := newTestSession(t)
	th, _ := store.Create("")
	other, _ := store.Create("")

	sess.Activate(th.ID)
	sess.MarkDirty()

	// Deleting an inactive thread leaves the pointer alone.
	sess.ThreadDeleted(other.ID)
	if sess.ActiveID() != th.ID {
		t.Error("Deleting another thread must not clear the active pointer")
	}

	store.Delete(th.ID)
	sess.ThreadDeleted(th.ID)
	if sess.ActiveID() != "" {
		t.Error("Deleting the active thread should clear the pointer")
	}
	if sess.IsDirty() {
		t.Error("Dirty flag should reset with the pointer")
	}

	// EnsureActive recovers by picking another thread.
	next, err := sess.EnsureActive()
	if err != nil {
		t.Fatalf("EnsureActive after delete failed: %v", err)
	}
	if next.ID != other.ID {
		t.Error("EnsureActive should fall back to a surviving thread")
	}
}

func TestSession_EnsureActive_RecoversFromVanishedThread(t *testing.T) {
	sess, store := newTestSession(t)
	th, _ := store.Create("")
	sess.Activate(th.ID)

	// Thread removed behind the session's back (e.g. second process).
	store.Delete(th.ID)

	next, err := sess.EnsureActive()
	if err != nil {
		t.Fatalf("EnsureActive failed: %v", err)
	}
	if next.ID == th.ID {
		t.Error("EnsureActive should not resurrect a deleted thread id")
	}
}

func TestSession_DirtyTracking(t *testing.T) {
	sess, _ := newTestSession(t)

	sess.MarkDirty()
	if !sess.IsDirty() {
		t.Error("MarkDirty should set the flag")
	}
	sess.MarkClean()
	if sess.IsDirty() {
		t.Error("MarkClean should clear the flag")
	}
}

func TestSession_Close(t *testing.T) {
	sess, store := newTestSession(t)
	th, _ := store.Create("")
	sess.Activate(th.ID)

	sess.Close()

	if sess.ActiveID() != "" {
		t.Error("Close should clear the active pointer")
	}
	if _, err := sess.EnsureActive(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
	if _, err := sess.Activate(th.ID); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}

	// Closing twice is harmless.
	sess.Close()
}
