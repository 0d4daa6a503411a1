// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrThreadNotFound is returned when an operation references a thread
	// id that does not exist. Use errors.Is to check.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrInvalidRole is returned when a message role is outside the
	// closed user/assistant/system set.
	ErrInvalidRole = errors.New("invalid message role")
)

// StorageError wraps a failure of the underlying read/write/delete of
// persisted state: permissions, disk, or serialization corruption.
// Deterministic errors (ErrThreadNotFound, ErrInvalidRole) are never
// wrapped in it.
type StorageError struct {
	Op  string // "read", "write", "delete", "decode", "scan"
	ID  string // thread id, empty for directory-level failures
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.ID, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op, id string, err error) error {
	return &StorageError{Op: op, ID: id, Err: err}
}
