// Command rosterctl runs the roster engine against a local spreadsheet:
// list filter values, query pages, export rows and send mail.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/JonMunkholm/roster/internal/sheet"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel string
	json     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "rosterctl",
		Short: "Inspect, export and mail a student roster file",
		Long: `Run the roster viewer's filter, sort, selection and export logic
against a local spreadsheet.

Commands:
  filters  List the Branch, Year and Interest values of a file.
  query    Print one page of the filtered and sorted rows.
  export   Write the selected (or filtered) rows as CSV.
  send     Email the selected rows through EmailJS.

Examples:
  rosterctl filters students.xlsx
  rosterctl query students.csv --branch CS --sort Name --desc
  rosterctl export students.csv --rows 1,4 -o picked.csv
  rosterctl send students.csv --rows 2,3 --dry-run`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(opts.logLevel, "text")
		},
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Print JSON instead of text")

	root.AddCommand(
		newFiltersCmd(opts),
		newQueryCmd(opts),
		newExportCmd(opts),
		newSendCmd(opts),
	)
	return root
}

// viewFlags are the table controls shared by query, export and send.
type viewFlags struct {
	search   string
	branch   string
	year     string
	interest string
	sort     string
	desc     bool
	page     int
	perPage  int
	rows     string
}

func (f *viewFlags) register(cmd *cobra.Command, paging bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.search, "search", "", "Free-text search across all cells")
	fs.StringVar(&f.branch, "branch", "", "Branch filter (case-insensitive)")
	fs.StringVar(&f.year, "year", "", "Year filter (exact)")
	fs.StringVar(&f.interest, "interest", "", "Interest filter (substring)")
	fs.StringVar(&f.sort, "sort", "", "Column to sort by")
	fs.BoolVar(&f.desc, "desc", false, "Sort descending")
	fs.StringVar(&f.rows, "rows", "", "Comma-separated row IDs to select")
	if paging {
		fs.IntVar(&f.page, "page", 1, "Page number")
		fs.IntVar(&f.perPage, "per-page", core.DefaultRowsPerPage, "Rows per page")
	}
}

// events turns the flags into the view events a browser would send.
func (f *viewFlags) events() []core.Event {
	var evs []core.Event
	add := func(t core.EventType, v string) {
		evs = append(evs, core.Event{Type: t, Value: v})
	}
	if f.perPage > 0 {
		add(core.EventRowsPerPage, strconv.Itoa(f.perPage))
	}
	if f.search != "" {
		add(core.EventSearch, f.search)
	}
	if f.branch != "" {
		add(core.EventBranch, f.branch)
	}
	if f.year != "" {
		add(core.EventYear, f.year)
	}
	if f.interest != "" {
		add(core.EventInterest, f.interest)
	}
	if f.sort != "" {
		add(core.EventSort, f.sort)
		if f.desc {
			add(core.EventSort, f.sort)
		}
	}
	if f.page > 1 {
		add(core.EventGoToPage, strconv.Itoa(f.page))
	}
	return evs
}

// openSession loads path into a fresh session and replays the flags on it.
func openSession(path string, f *viewFlags) (*core.Session, core.Snapshot, error) {
	ds, err := loadFile(path)
	if err != nil {
		return nil, core.Snapshot{}, err
	}

	sess := core.NewSession("cli", core.DefaultRowsPerPage, core.ScopeFiltered)
	snap := sess.Load(path, ds)

	for _, ev := range f.events() {
		if snap, err = sess.Apply(ev); err != nil {
			return nil, core.Snapshot{}, err
		}
	}

	ids, err := parseRowIDs(f.rows)
	if err != nil {
		return nil, core.Snapshot{}, err
	}
	for _, id := range ids {
		if snap, err = sess.Toggle(id); err != nil {
			return nil, core.Snapshot{}, err
		}
	}
	return sess, snap, nil
}

func loadFile(path string) (core.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Dataset{}, err
	}
	header, records, err := sheet.Parse(path, data)
	if err != nil {
		return core.Dataset{}, err
	}
	return core.BuildDataset(header, records)
}

// parseRowIDs reads "1,3, 7". Duplicates are dropped.
func parseRowIDs(s string) ([]core.RowID, error) {
	var ids []core.RowID
	seen := make(map[core.RowID]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid row id %q", part)
		}
		id := core.RowID(n)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// userError prefixes the coded user message onto err for terminal output.
func userError(err error) error {
	if err == nil {
		return nil
	}
	msg := core.MapError(err)
	return fmt.Errorf("%s [%s]: %w", msg.Message, msg.Code, err)
}
