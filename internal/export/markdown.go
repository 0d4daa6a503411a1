// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/threadstore/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports threads to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a thread to Markdown.
func (e *MarkdownExporter) Export(th *model.Thread) ([]byte, error) {
	if th == nil {
		return nil, fmt.Errorf("thread is nil")
	}
	if th.CreatedAt.IsZero() {
		return nil, fmt.Errorf("thread has invalid creation timestamp")
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(th.Title)))
		sb.WriteString(fmt.Sprintf("id: %s\n", th.ID))
		sb.WriteString(fmt.Sprintf("date: %s\n", th.CreatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("updated: %s\n", th.UpdatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(th.Messages)))
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", th.Title))

	if th.Summary != "" {
		sb.WriteString("## Summary\n\n")
		sb.WriteString(th.Summary)
		sb.WriteString("\n\n")
	}

	for _, msg := range th.Messages {
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf("**%s** (%s):\n\n",
				msg.Role.DisplayName(), msg.Timestamp.Format("2006-01-02 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("**%s**:\n\n", msg.Role.DisplayName()))
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// escapeYAML quotes a value when it would break YAML frontmatter.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#{}[],&*?|<>=!%@`'\"\\") || strings.TrimSpace(s) != s {
		return fmt.Sprintf("%q", s)
	}
	return s
}
