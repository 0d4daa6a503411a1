// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main provides the threadstore CLI - a thin driver over the
// thread store for scripting and inspection.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jeranaias/threadstore/internal/config"
	"github.com/jeranaias/threadstore/internal/export"
	"github.com/jeranaias/threadstore/internal/index"
	"github.com/jeranaias/threadstore/internal/model"
	"github.com/jeranaias/threadstore/internal/session"
	"github.com/jeranaias/threadstore/internal/storage"
)

const version = "1.0.0"

func main() {
	args := os.Args[1:]

	// Global flags before the subcommand.
	configPath := ""
	for len(args) > 0 {
		switch {
		case args[0] == "--help" || args[0] == "-h":
			printHelp()
			return
		case args[0] == "--version" || args[0] == "-v":
			fmt.Printf("threadstore v%s\n", version)
			return
		case args[0] == "--config" && len(args) > 1:
			configPath = args[1]
			args = args[2:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		printHelp()
		os.Exit(1)
	}

	app, err := newApp(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.close()

	if err := app.run(args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// APP WIRING
// =============================================================================

// app bundles the store, session, and optional index for one invocation.
type app struct {
	cfg   *config.Config
	store *storage.Store
	sess  *session.Session
	ix    *index.ThreadIndex
}

func newApp(configPath string) (*app, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	dataDir, err := cfg.ResolvedDataDir()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewStoreWithOptions(dataDir, cfg.StoreOptions())
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: store, sess: session.Open(store)}

	if cfg.Index.Enabled {
		path, err := cfg.ResolvedIndexPath()
		if err != nil {
			return nil, err
		}
		ix, err := index.Open(path, store)
		if err != nil {
			// The index is a cache; a broken one must not block the
			// store. Degrade to metadata search.
			fmt.Fprintf(os.Stderr, "Warning: search index unavailable: %v\n", err)
		} else {
			a.ix = ix
			if cfg.Index.Watch {
				debounce := time.Duration(cfg.Index.DebounceMs) * time.Millisecond
				if _, err := ix.Watch(debounce); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: index watcher failed: %v\n", err)
				}
			}
		}
	}

	return a, nil
}

func (a *app) close() {
	a.sess.Close()
	if a.ix != nil {
		a.ix.Close()
	}
}

func (a *app) run(cmd string, args []string) error {
	switch cmd {
	case "list":
		return a.cmdList()
	case "new":
		return a.cmdNew(args)
	case "show":
		return a.cmdShow(args)
	case "append":
		return a.cmdAppend(args)
	case "summary":
		return a.cmdSummary(args)
	case "clear":
		return a.cmdClear(args)
	case "delete":
		return a.cmdDelete(args)
	case "search":
		return a.cmdSearch(args)
	case "export":
		return a.cmdExport(args)
	case "reindex":
		return a.cmdReindex()
	case "watch":
		return a.cmdWatch()
	case "help":
		printHelp()
		return nil
	default:
		return fmt.Errorf("unknown command %q (run 'threadstore help')", cmd)
	}
}

// indexUpdate refreshes the index after a store mutation, best-effort.
func (a *app) indexUpdate(th *model.Thread) {
	if a.ix != nil && th != nil {
		a.ix.UpdateThread(th)
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func (a *app) cmdList() error {
	metas, failed, err := a.store.List()
	if err != nil {
		return err
	}

	fmt.Print(formatThreadList(metas))
	for _, f := range failed {
		fmt.Fprintf(os.Stderr, "Warning: skipped unreadable thread %s: %v\n", f.ID, f.Err)
	}
	return nil
}

func (a *app) cmdNew(args []string) error {
	title := strings.Join(args, " ")
	th, err := a.store.Create(title)
	if err != nil {
		return err
	}
	if _, err := a.sess.Activate(th.ID); err != nil {
		return err
	}
	a.indexUpdate(th)

	fmt.Printf("Created thread %s (%s)\n", th.ID, th.Title)
	return nil
}

func (a *app) cmdShow(args []string) error {
	var th *model.Thread
	var err error
	if len(args) == 0 {
		// No id: fall back to the session's active thread, which is the
		// most recent one (created on first use if the store is empty).
		th, err = a.sess.EnsureActive()
	} else {
		th, err = a.store.Load(args[0])
	}
	if err != nil {
		return err
	}

	fmt.Printf("Thread:  %s\n", th.ID)
	fmt.Printf("Title:   %s\n", th.Title)
	fmt.Printf("Created: %s\n", th.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Updated: %s\n", th.UpdatedAt.Format("2006-01-02 15:04"))
	if th.Summary != "" {
		fmt.Printf("Summary: %s\n", th.Summary)
	}
	fmt.Println()

	for _, msg := range th.Messages {
		fmt.Printf("[%s] %s:\n%s\n\n",
			msg.Timestamp.Format("15:04"), msg.Role.DisplayName(), msg.Content)
	}
	return nil
}

func (a *app) cmdAppend(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: threadstore append <id> <role> <content>")
	}
	id, role := args[0], model.Role(args[1])
	content := strings.Join(args[2:], " ")

	th, err := a.store.AppendMessage(id, role, content, time.Time{})
	if err != nil {
		return err
	}
	a.indexUpdate(th)

	fmt.Printf("Appended to %s (%d messages)\n", th.ID, th.MessageCount())
	return nil
}

func (a *app) cmdSummary(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: threadstore summary <id> <text>")
	}
	id := args[0]
	text := strings.Join(args[1:], " ")

	if err := a.store.SetSummary(id, text); err != nil {
		return err
	}
	if th, err := a.store.Load(id); err == nil {
		a.indexUpdate(th)
	}
	fmt.Printf("Summary set on %s\n", id)
	return nil
}

func (a *app) cmdClear(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: threadstore clear <id>")
	}
	if err := a.store.ClearMessages(args[0]); err != nil {
		return err
	}
	if th, err := a.store.Load(args[0]); err == nil {
		a.indexUpdate(th)
	}
	fmt.Printf("Cleared %s\n", args[0])
	return nil
}

func (a *app) cmdDelete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: threadstore delete <id>")
	}
	id := args[0]

	if err := a.store.Delete(id); err != nil {
		return err
	}
	a.sess.ThreadDeleted(id)
	if a.ix != nil {
		a.ix.RemoveThread(id)
	}
	fmt.Printf("Deleted %s\n", id)
	return nil
}

func (a *app) cmdSearch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: threadstore search <query>")
	}
	query := strings.Join(args, " ")

	var metas []storage.ThreadMeta
	var err error
	if a.ix != nil {
		// Full-text over message content.
		metas, err = a.ix.Search(query)
	} else {
		// Metadata-only fallback.
		metas, err = a.store.Search(query)
	}
	if err != nil {
		return err
	}

	fmt.Print(formatThreadList(metas))
	return nil
}

func (a *app) cmdExport(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: threadstore export <id> [md|json]")
	}
	th, err := a.store.Load(args[0])
	if err != nil {
		return err
	}

	format := "md"
	if len(args) > 1 {
		format = args[1]
	}

	opts := export.DefaultOptions()
	var exporter export.Exporter
	switch format {
	case "md", "markdown":
		exporter = export.NewMarkdownExporter(opts)
	case "json":
		exporter = export.NewJSONExporter(opts)
	default:
		return fmt.Errorf("unknown export format %q (want md or json)", format)
	}

	path, err := export.ExportToFile(th, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

func (a *app) cmdReindex() error {
	if a.ix == nil {
		return fmt.Errorf("search index is disabled")
	}
	if err := a.ix.Rebuild(); err != nil {
		return err
	}
	n, _ := a.ix.ThreadCount()
	fmt.Printf("Indexed %d threads\n", n)
	return nil
}

// cmdWatch keeps the index in sync with the data directory until
// interrupted, so concurrent invocations always search fresh data.
func (a *app) cmdWatch() error {
	if a.ix == nil {
		return fmt.Errorf("search index is disabled")
	}
	if err := a.ix.Rebuild(); err != nil {
		return err
	}

	// Skip if the config already attached a watcher at startup.
	if !a.cfg.Index.Watch {
		debounce := time.Duration(a.cfg.Index.DebounceMs) * time.Millisecond
		if _, err := a.ix.Watch(debounce); err != nil {
			return err
		}
	}

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", a.store.BaseDir)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

// =============================================================================
// HELP
// =============================================================================

func printHelp() {
	fmt.Println(`threadstore v` + version + ` - local conversation thread store

Usage: threadstore [--config <path>] <command> [args]

Commands:
  list                          List threads, most recent first
  new [title]                   Create a thread
  show [id]                     Show a thread (default: most recent)
  append <id> <role> <content>  Append a message (role: user|assistant|system)
  summary <id> <text>           Set a thread's summary
  clear <id>                    Remove all messages from a thread
  delete <id>                   Delete a thread
  search <query>                Search threads
  export <id> [md|json]         Export a thread to a file
  reindex                       Rebuild the search index
  watch                         Keep the index synced until interrupted
  help                          Show this help`)
}
