// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"

	"github.com/jeranaias/threadstore/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports threads to JSON format.
// NOTE: JSON exports always include the complete thread structure and do
// not respect filtering options, so the output matches the stored file
// and can be re-imported.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a thread to pretty-printed JSON.
func (e *JSONExporter) Export(th *model.Thread) ([]byte, error) {
	if th == nil {
		return nil, fmt.Errorf("thread is nil")
	}
	return json.MarshalIndent(th, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
