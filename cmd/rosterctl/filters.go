package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/roster/internal/core"
)

func newFiltersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filters FILE",
		Short: "List the values offered by the Branch, Year and Interest filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadFile(args[0])
			if err != nil {
				return userError(err)
			}
			o := core.Options(ds)

			out := cmd.OutOrStdout()
			if opts.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(o)
			}
			fmt.Fprintf(out, "Branches:  %s\n", strings.Join(o.Branches, ", "))
			fmt.Fprintf(out, "Years:     %s\n", strings.Join(o.Years, ", "))
			fmt.Fprintf(out, "Interests: %s\n", strings.Join(o.Interests, ", "))
			return nil
		},
	}
}
