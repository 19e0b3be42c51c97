package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newTickCmd is the entry point the OS scheduler invokes (cron, systemd
// timer, launchd). One bounded pass, one word of output.
func newTickCmd(app *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one background fetch pass over monitored actions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			result, err := app.service.BackgroundFetchTick(ctx)
			if _, printErr := fmt.Fprintln(cmd.OutOrStdout(), string(result)); printErr != nil {
				return printErr
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 25*time.Second, "Overall pass deadline")

	return cmd
}
