// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks per-session UI state: which thread is active.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/jeranaias/threadstore/internal/model"
	"github.com/jeranaias/threadstore/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoActiveThread is returned when an operation needs an active
	// thread and none has been selected.
	ErrNoActiveThread = errors.New("no active thread")

	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// =============================================================================
// SESSION
// =============================================================================

// Session is the explicit per-session context that replaces ambient
// globals: it owns the "active thread" pointer and nothing else. The
// store remains the source of truth for thread data; at most one thread
// is active per session, or zero when the store is empty.
type Session struct {
	mu sync.Mutex

	id        string
	startTime time.Time
	store     *storage.Store

	activeID string
	dirty    bool
	closed   bool
}

// Open creates a session bound to a store. No thread is active until
// EnsureActive or Activate is called (init-on-first-use).
func Open(store *storage.Store) *Session {
	now := time.Now()
	return &Session{
		id:        "sess_" + now.Format("20060102_150405"),
		startTime: now,
		store:     store,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// StartTime returns when the session was opened.
func (s *Session) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTime
}

// Store returns the backing store.
func (s *Session) Store() *storage.Store {
	return s.store
}

// =============================================================================
// ACTIVE THREAD
// =============================================================================

// EnsureActive returns the active thread, selecting one on first use:
// the most recently updated thread, or a freshly created one when the
// store is empty.
func (s *Session) EnsureActive() (*model.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	if s.activeID != "" {
		th, err := s.store.Load(s.activeID)
		if err == nil {
			return th, nil
		}
		if !errors.Is(err, storage.ErrThreadNotFound) {
			return nil, err
		}
		// Active thread vanished underneath us; fall through and pick
		// a new one.
		s.activeID = ""
	}

	th, err := s.store.EnsureDefaultThread()
	if err != nil {
		return nil, err
	}
	s.activeID = th.ID
	return th, nil
}

// Activate makes the given thread the active one, verifying it exists.
func (s *Session) Activate(id string) (*model.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	th, err := s.store.Load(id)
	if err != nil {
		return nil, err
	}
	s.activeID = th.ID
	return th, nil
}

// ActiveID returns the active thread id, or "" when none is selected.
func (s *Session) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// ActiveThread loads the active thread from the store.
func (s *Session) ActiveThread() (*model.Thread, error) {
	s.mu.Lock()
	id := s.activeID
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, ErrSessionClosed
	}
	if id == "" {
		return nil, ErrNoActiveThread
	}
	return s.store.Load(id)
}

// Deactivate clears the active thread pointer without touching the store.
func (s *Session) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = ""
}

// ThreadDeleted tells the session a thread was removed from the store.
// If it was the active thread, the pointer is cleared.
func (s *Session) ThreadDeleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == id {
		s.activeID = ""
		s.dirty = false
	}
}

// =============================================================================
// DIRTY TRACKING
// =============================================================================

// MarkDirty indicates the active thread has unsaved UI state.
func (s *Session) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

// MarkClean indicates UI state has been flushed.
func (s *Session) MarkClean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// IsDirty returns whether the session has unsaved UI state.
func (s *Session) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// =============================================================================
// TEARDOWN
// =============================================================================

// Close tears the session down. Further operations that need the store
// return ErrSessionClosed. Closing twice is harmless.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.activeID = ""
	s.dirty = false
}
