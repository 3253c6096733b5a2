package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvoverlay/internal/adapter/output"
	"github.com/jmylchreest/tvoverlay/internal/core"
	"github.com/jmylchreest/tvoverlay/internal/model"
	"github.com/jmylchreest/tvoverlay/internal/store"
)

var historyOpts struct {
	// Filter options
	since  string
	types  string
	style  string
	limit  int
	search string
	filter string

	// Sort options
	sortBy    string
	sortOrder string

	// Output options
	format   string
	field    string
	template string

	follow bool
}

var historyCmd = &cobra.Command{
	Use:   "history [index|id]",
	Short: "Query the journal of shown notifications",
	Long: `Query the journal of notifications overlayd has shown.

With an index (1-based, after filtering and sorting) or a journal id, prints
that entry only.

Examples:
  # Everything from the last hour
  overlayctl history --since 1h

  # Errors and warnings as JSON
  overlayctl history --type error,warning --format json

  # Filter expressions
  overlayctl history --filter 'artist~bbc,timestamp>2h'

  # Pick an entry with a launcher and print its title
  overlayctl history -f dmenu | fuzzel -d | overlayctl history --field title

  # Print entries as they are shown
  overlayctl history --follow`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyOpts.since, "since", "",
		"Show entries from the last duration (e.g., 1h, 7d, 1w; default from config)")
	historyCmd.Flags().StringVar(&historyOpts.types, "type", "",
		"Comma separated notification types")
	historyCmd.Flags().StringVar(&historyOpts.style, "style", "",
		"Filter by theme style")
	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", -1,
		"Maximum number of entries (0 = unlimited; default from config)")
	historyCmd.Flags().StringVarP(&historyOpts.search, "search", "s", "",
		"Search in metadata values")
	historyCmd.Flags().StringVar(&historyOpts.filter, "filter", "",
		"Filter expression, such as 'type=error,artist~bbc'")

	historyCmd.Flags().StringVar(&historyOpts.sortBy, "sort", "timestamp",
		"Sort by field (timestamp, type, title)")
	historyCmd.Flags().StringVar(&historyOpts.sortOrder, "order", "",
		"Sort order (asc, desc; default from config)")

	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "",
		"Output format (plain, json, yaml, dmenu, ids)")
	historyCmd.Flags().StringVar(&historyOpts.field, "field", "",
		"Output a single field (id, title, artist, album, format, type, style, client, all)")
	historyCmd.Flags().StringVar(&historyOpts.template, "template", "",
		"Template name from the config, or a Go template")

	historyCmd.Flags().BoolVar(&historyOpts.follow, "follow", false,
		"Keep running and print new entries as they are written")
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openJournal()
	if err != nil {
		return err
	}
	defer s.Close()

	filter, sortOpts, err := historyQuery()
	if err != nil {
		return err
	}
	entries := s.Query(filter, sortOpts)

	if historyOpts.filter != "" {
		expr, err := core.ParseFilter(historyOpts.filter)
		if err != nil {
			return err
		}
		entries = core.FilterWithExpr(entries, expr)
	}
	entries = core.Search(entries, historyOpts.search)

	w := cmd.OutOrStdout()
	if len(args) > 0 {
		e := lookupEntry(entries, args[0])
		if e == nil {
			return fmt.Errorf("no journal entry %q", args[0])
		}
		return printEntry(w, e)
	}

	f, err := formatterFor(historyOpts.format, historyOpts.template)
	if err != nil {
		return err
	}
	if err := f.FormatEntries(w, entries); err != nil {
		return err
	}

	if historyOpts.follow {
		return followJournal(s, f, w)
	}
	return nil
}

// historyQuery turns the flags, with config defaults, into store options.
func historyQuery() (core.FilterOptions, core.SortOptions, error) {
	var filter core.FilterOptions

	since := historyOpts.since
	if since == "" {
		since = cfg.History.Since
	}
	if since != "" {
		d, err := core.ParseDuration(since)
		if err != nil {
			return filter, core.SortOptions{}, fmt.Errorf("invalid --since: %w", err)
		}
		filter.Since = d
	}

	if historyOpts.types != "" {
		types, err := core.ParseTypes(historyOpts.types)
		if err != nil {
			return filter, core.SortOptions{}, err
		}
		filter.Types = types
	}
	filter.Style = historyOpts.style

	filter.Limit = historyOpts.limit
	if filter.Limit < 0 {
		filter.Limit = cfg.History.Limit
	}

	field, err := core.ParseSortField(historyOpts.sortBy)
	if err != nil {
		return filter, core.SortOptions{}, err
	}
	orderName := historyOpts.sortOrder
	if orderName == "" {
		orderName = cfg.History.Order
	}
	order, err := core.ParseSortOrder(orderName)
	if err != nil {
		return filter, core.SortOptions{}, err
	}

	return filter, core.SortOptions{Field: field, Order: order}, nil
}

// lookupEntry finds an entry by 1-based index, journal id, or a dmenu line
// starting with an index.
func lookupEntry(entries []model.Entry, selection string) *model.Entry {
	selection = strings.TrimSpace(selection)
	if e := core.LookupByID(entries, selection); e != nil {
		return e
	}

	first, _, _ := strings.Cut(selection, "|")
	first = strings.TrimSpace(first)
	if idx, err := strconv.Atoi(first); err == nil {
		return core.LookupByIndex(entries, idx)
	}
	return nil
}

// printEntry prints one entry, as a single field when --field is given.
func printEntry(w io.Writer, e *model.Entry) error {
	if historyOpts.field != "" {
		_, err := fmt.Fprintln(w, output.FormatField(e, historyOpts.field))
		return err
	}

	format := historyOpts.format
	if format == "" || format == string(output.FormatDmenu) {
		format = string(output.FormatJSON)
	}
	f, err := formatterFor(format, historyOpts.template)
	if err != nil {
		return err
	}
	return f.FormatEntries(w, []model.Entry{*e})
}

// followJournal prints entries appended by overlayd until interrupted.
func followJournal(s *store.Store, f output.Formatter, w io.Writer) error {
	seen := make(map[string]bool)
	for _, e := range s.All() {
		seen[e.EntryID] = true
	}

	watcher, err := store.NewFileWatcher(s, journalPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to watch journal: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to watch journal: %w", err)
	}
	defer watcher.Stop()

	changes := s.Subscribe()
	defer s.Unsubscribe(changes)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-changes:
			if !ok {
				return nil
			}
			if ev.Type != store.ChangeTypeAdd {
				continue
			}

			var fresh []model.Entry
			entries := s.All()
			// oldest first
			for i := len(entries) - 1; i >= 0; i-- {
				if e := entries[i]; !seen[e.EntryID] {
					seen[e.EntryID] = true
					fresh = append(fresh, e)
				}
			}
			if err := f.FormatEntries(w, fresh); err != nil {
				return err
			}
		}
	}
}

var pruneOpts struct {
	olderThan string
	keep      int
	dryRun    bool
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old entries from the journal",
	Long: `Remove old entries from the journal.

Examples:
  # Remove entries older than 7 days
  overlayctl history prune --older-than 7d

  # Keep only the 100 most recent entries
  overlayctl history prune --keep 100

  # Preview what would be removed (dry run)
  overlayctl history prune --older-than 48h --dry-run`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	historyCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().StringVar(&pruneOpts.olderThan, "older-than", "",
		"Remove entries older than this duration (e.g., 48h, 7d, 1w)")
	pruneCmd.Flags().IntVar(&pruneOpts.keep, "keep", 0,
		"Keep only the N most recent entries (0=unlimited)")
	pruneCmd.Flags().BoolVar(&pruneOpts.dryRun, "dry-run", false,
		"Show what would be removed without actually removing")
}

func runPrune(cmd *cobra.Command, args []string) error {
	if pruneOpts.olderThan == "" && pruneOpts.keep == 0 {
		return fmt.Errorf("specify --older-than or --keep")
	}

	var maxAge time.Duration
	if pruneOpts.olderThan != "" {
		d, err := core.ParseDuration(pruneOpts.olderThan)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		maxAge = d
	}

	s, err := openJournal()
	if err != nil {
		return err
	}
	defer s.Close()

	w := cmd.OutOrStdout()
	if pruneOpts.dryRun {
		kept := s.Query(core.FilterOptions{Since: maxAge, Limit: pruneOpts.keep}, core.DefaultSortOptions())
		fmt.Fprintf(w, "Would remove %d of %d entries\n", s.Count()-len(kept), s.Count())
		return nil
	}

	removed, err := s.Prune(maxAge, pruneOpts.keep)
	if err != nil {
		return fmt.Errorf("failed to prune journal: %w", err)
	}
	fmt.Fprintf(w, "Removed %d entries\n", removed)
	return nil
}
