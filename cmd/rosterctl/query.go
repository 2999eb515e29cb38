package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/roster/internal/core"
)

type queryRow struct {
	ID       core.RowID            `json:"id"`
	Selected bool                  `json:"selected"`
	Cells    map[string]core.Value `json:"cells"`
}

type queryResult struct {
	View      core.ViewState `json:"view"`
	PageInfo  string         `json:"page_info"`
	SelectAll core.Tristate  `json:"select_all"`
	Rows      []queryRow     `json:"rows"`
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	f := &viewFlags{}
	cmd := &cobra.Command{
		Use:   "query FILE",
		Short: "Print one page of the filtered, sorted rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, snap, err := openSession(args[0], f)
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			if opts.json {
				res := queryResult{
					View:      snap.View,
					PageInfo:  snap.PageInfo(),
					SelectAll: snap.Tristate,
					Rows:      make([]queryRow, len(snap.Page.Rows)),
				}
				for i, r := range snap.Page.Rows {
					res.Rows[i] = queryRow{ID: r.ID, Selected: snap.Selected[r.ID], Cells: r.Cells}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, " \t#\t%s\n", strings.Join(snap.Headers, "\t"))
			for _, r := range snap.Page.Rows {
				mark := " "
				if snap.Selected[r.ID] {
					mark = "*"
				}
				cells := make([]string, len(snap.Headers))
				for i, h := range snap.Headers {
					cells[i] = r.Get(h).String()
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\n", mark, r.ID, strings.Join(cells, "\t"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out, snap.PageInfo())
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}
