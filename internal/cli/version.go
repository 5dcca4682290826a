package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"notra-backend/internal/version"
)

func newVersionCmd() *cobra.Command {
	var (
		verbose bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), info.Text())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print full build information")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print build information as JSON")
	return cmd
}
