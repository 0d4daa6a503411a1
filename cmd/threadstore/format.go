// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"strings"

	"github.com/jeranaias/threadstore/internal/storage"
)

// formatThreadList renders thread metadata as an aligned listing.
func formatThreadList(metas []storage.ThreadMeta) string {
	if len(metas) == 0 {
		return "No threads.\n"
	}

	var b strings.Builder
	for _, m := range metas {
		fmt.Fprintf(&b, "%s  %-16s  %3d msgs  %s\n",
			m.UpdatedAt.Format("2006-01-02 15:04"), m.ID[:min(16, len(m.ID))],
			m.MessageCount, m.Title)
		if m.Preview != "" {
			fmt.Fprintf(&b, "    %s\n", m.Preview)
		}
	}
	return b.String()
}
