package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/finance-notifier/internal/config"
	"github.com/shaharia-lab/finance-notifier/internal/logger"
	"github.com/shaharia-lab/finance-notifier/internal/notification"
	"github.com/shaharia-lab/finance-notifier/internal/telemetry"
)

// NewTestEmailCmd returns the "test-email" subcommand that sends a fixed
// message through the configured SMTP transport.
func NewTestEmailCmd(cfg *config.AppConfig) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "test-email",
		Short: "Send a test notification email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if to == "" {
				return errors.New("--to is required")
			}
			log, closer, err := logger.New(logger.Options{
				Service: telemetry.ServiceName,
				Level:   cfg.SlogLevel(),
				File:    cfg.LogFile,
			})
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			defer func() { _ = closer.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			res := notification.NewEmailChannel(cfg.SMTP(), log).SendTest(ctx, to)
			if !res.Success {
				return fmt.Errorf("sending test email: %s", res.FailureReason())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "test email sent to %s (message id %s)\n", to, res.MessageID)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient address")
	return cmd
}
