// Package cmd implements the notifier command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/finance-notifier/internal/config"
)

// NewRootCmd builds the command tree over cfg.
func NewRootCmd(cfg *config.AppConfig) *cobra.Command {
	root := &cobra.Command{
		Use:           "notifier",
		Short:         "Finance notification service",
		Long:          "Consumes transaction events from RabbitMQ and sends email alerts for high-value transactions and exceeded budgets.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(NewConsumeCmd(cfg))
	root.AddCommand(NewTestEmailCmd(cfg))
	root.AddCommand(NewVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
