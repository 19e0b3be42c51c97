package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/walletsync/internal/domain"
)

func newActionsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Manage saving actions per category",
	}

	cmd.AddCommand(
		newActionsListCmd(app),
		newActionsAddCmd(app),
		newActionsRemoveCmd(app),
		newActionsMonitorCmd(app),
		newActionsHelpCmd(app),
	)

	return cmd
}

func newActionsListCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "list <category>",
		Short: "List saving actions in a category (cached unless --refresh)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actions, err := app.service.Actions(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			return writeJSON(cmd, actions)
		},
	}

	cmd.Flags().BoolVar(&force, "refresh", false, "Bypass the cache and fetch from the server")

	return cmd
}

func newActionsAddCmd(app *app) *cobra.Command {
	var action domain.Action

	cmd := &cobra.Command{
		Use:   "add <category>",
		Short: "Add a saving action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := app.service.AddAction(cmd.Context(), args[0], action)
			if err != nil {
				return err
			}
			return writeJSON(cmd, created)
		},
	}

	cmd.Flags().StringVar(&action.Title, "title", "", "What the action is about")
	cmd.Flags().Float64Var(&action.Total, "total", 0, "List price")
	cmd.Flags().BoolVar(&action.Monitored, "monitor", false, "Watch this action for price drops")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newActionsRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <category> <action-id>",
		Short: "Remove a saving action",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.RemoveAction(cmd.Context(), args[0], args[1])
		},
	}
}

func newActionsMonitorCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor <category> <action-id>",
		Short: "Watch an action for price drops",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.MonitorAction(cmd.Context(), args[0], args[1])
		},
	}
}

func newActionsHelpCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "request-help <category> <action-id>",
		Short: "Ask the service to hunt for a better price",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.RequestHelp(cmd.Context(), args[0], args[1])
		},
	}
}
