// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export converts stored threads to portable formats.
package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/threadstore/internal/model"
	"github.com/jeranaias/threadstore/internal/util"
)

// =============================================================================
// EXPORTER INTERFACE
// =============================================================================

// Exporter converts a thread to a serialized format.
type Exporter interface {
	// Export renders the thread.
	Export(th *model.Thread) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g. ".md").
	FileExtension() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where exported files are written.
	// Default: current directory.
	OutputDir string

	// IncludeMetadata adds a metadata header to formats that support it.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message timestamps.
	IncludeTimestamps bool
}

// DefaultOptions returns the default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// =============================================================================
// FILE EXPORT
// =============================================================================

// ExportToFile renders the thread and writes it under the output
// directory, returning the path written. Filenames combine the
// sanitized thread title with a timestamp so repeated exports never
// collide.
func ExportToFile(th *model.Thread, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	data, err := exporter.Export(th)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("thread_%s_%s%s",
		sanitizeFilename(th.Title), timestamp, exporter.FileExtension())
	path := filepath.Join(opts.OutputDir, filename)

	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// sanitizeFilename makes a thread title safe to use as a file name.
func sanitizeFilename(s string) string {
	replacements := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
	}

	var sb strings.Builder
	for _, r := range s {
		if repl, ok := replacements[r]; ok {
			sb.WriteRune(repl)
		} else if r >= 32 && r != 127 {
			sb.WriteRune(r)
		}
	}

	out := sb.String()
	out = strings.Trim(out, "._-")
	if runes := []rune(out); len(runes) > 60 {
		out = string(runes[:60])
	}
	if out == "" {
		return "thread"
	}
	return out
}
