package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/finance-notifier/internal/build"
)

// NewVersionCmd returns the "version" subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.String())
		},
	}
}
