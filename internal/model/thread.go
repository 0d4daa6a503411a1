// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for threads and messages.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/threadstore/internal/util"
)

// DefaultTitlePlaceholder is the title a thread carries until one is
// derived from its first user message.
const DefaultTitlePlaceholder = "New Chat"

// DefaultTitleBudget is the display width a derived title is truncated to.
const DefaultTitleBudget = 40

// =============================================================================
// THREAD TYPE
// =============================================================================

// Thread holds one complete conversation: identity, ordered messages,
// and an optional cached summary.
type Thread struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages, insertion order, never reordered
	Messages []Message `json:"messages"`

	// Summary is a cached digest of the messages. Empty means absent.
	Summary string `json:"summary,omitempty"`
}

// NewThread creates a thread with a generated ID and empty history.
// UUIDs make ids unique for the lifetime of the store; a deleted id is
// never handed out again.
func NewThread(title string) *Thread {
	if title == "" {
		title = DefaultTitlePlaceholder
	}
	now := time.Now()
	return &Thread{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the end of history and advances UpdatedAt.
func (t *Thread) Append(msg Message) {
	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = time.Now()
}

// Clear empties the history, drops the summary, and resets the title to
// the given placeholder.
func (t *Thread) Clear(placeholder string) {
	if placeholder == "" {
		placeholder = DefaultTitlePlaceholder
	}
	t.Messages = make([]Message, 0)
	t.Summary = ""
	t.Title = placeholder
	t.UpdatedAt = time.Now()
}

// SetSummary records a summary without touching the messages.
func (t *Thread) SetSummary(text string) {
	t.Summary = text
	t.UpdatedAt = time.Now()
}

// InvalidateSummary drops a cached summary. Called when messages change
// so a stale digest is never presented as current.
func (t *Thread) InvalidateSummary() {
	t.Summary = ""
}

// FirstUserMessage returns the earliest user message, or nil.
func (t *Thread) FirstUserMessage() *Message {
	for i := range t.Messages {
		if t.Messages[i].Role == RoleUser {
			return &t.Messages[i]
		}
	}
	return nil
}

// LastMessage returns the most recent message, or nil if empty.
func (t *Thread) LastMessage() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}

// MessageCount returns the number of messages in the thread.
func (t *Thread) MessageCount() int {
	return len(t.Messages)
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// DeriveTitle computes a thread's display title. Pure: the thread is not
// modified. If the current title is still the placeholder and a user
// message exists, the title becomes that message's content with
// whitespace collapsed and truncated to budget display columns.
// Otherwise the existing title is returned unchanged.
func DeriveTitle(t *Thread, placeholder string, budget int) string {
	if placeholder == "" {
		placeholder = DefaultTitlePlaceholder
	}
	if budget <= 0 {
		budget = DefaultTitleBudget
	}

	if t.Title != "" && t.Title != placeholder {
		return t.Title
	}

	msg := t.FirstUserMessage()
	if msg == nil {
		return t.Title
	}

	title := util.CollapseSpace(msg.Content)
	if title == "" {
		return t.Title
	}
	return util.TruncateWidth(title, budget)
}
