// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export converts stored threads to portable formats.
//
// Two exporters are provided: Markdown (human-readable, with optional
// YAML frontmatter) and JSON (complete thread structure, re-importable).
// ExportToFile handles filename generation and atomic writing.
package export
