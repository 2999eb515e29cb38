package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/roster/internal/core"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	f := &viewFlags{}
	var output string

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the selected rows, or all filtered rows, as CSV",
		Long: `Export follows the viewer's rule: when --rows selects anything, only
those rows are written, in file order; otherwise every row matching the
filters is written regardless of paging.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := openSession(args[0], f)
			if err != nil {
				return userError(err)
			}
			csv, n, err := sess.Export()
			if err != nil {
				return userError(err)
			}

			if output == "" || output == "-" {
				_, err := io.WriteString(cmd.OutOrStdout(), csv)
				return err
			}
			if err := writeFile(output, csv); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", n, output)
			return nil
		},
	}
	f.register(cmd, false)
	cmd.Flags().StringVarP(&output, "output", "o", core.ExportFileName, `Output file ("-" for stdout)`)
	return cmd
}

// writeFile writes data to path. The close error is returned because a
// failed flush means the export is incomplete.
func writeFile(path, data string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(file, data); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
