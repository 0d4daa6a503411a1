// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across threadstore packages:
// atomic file writes and width-aware string truncation.
//
// Nothing in this package knows about threads or messages; it exists so
// that storage, export, and the CLI agree on how files hit disk and how
// text gets shortened for display.
package util
