package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/walletsync/internal/application"
)

func newAgentCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Interact with the planning agent",
	}

	cmd.AddCommand(
		newAgentStatusCmd(app),
		newAgentStartCmd(app),
		newAgentObserveCmd(app),
		newAgentMilestoneCmd(app),
		newAgentTaskCmd(app),
	)

	return cmd
}

func newAgentStatusCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the agent state (cached unless --refresh)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := app.service.AgentState(cmd.Context(), force)
			if err != nil {
				return err
			}
			return writeJSON(cmd, state)
		},
	}

	cmd.Flags().BoolVar(&force, "refresh", false, "Bypass the cache and fetch from the server")

	return cmd
}

func newAgentStartCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the planning agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.service.StartAgent(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "agent started")
			return err
		},
	}
}

func newAgentObserveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "observe",
		Short: "Poll the agent until it finishes thinking",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result := app.service.ObserveAgent(cmd.Context())
			switch result.Outcome {
			case application.PollAbsent:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "agent has not been started yet")
				return err
			case application.PollExhausted:
				return fmt.Errorf("agent still thinking after %d attempts", result.Attempts)
			case application.PollCancelled:
				return fmt.Errorf("observation cancelled")
			}
			return writeJSON(cmd, result.State)
		},
	}
}

func newAgentMilestoneCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "milestone <milestone-id>",
		Short: "Mark a roadmap milestone as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.CompleteMilestone(cmd.Context(), args[0])
		},
	}
}

func newAgentTaskCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "task <task-id>",
		Short: "Mark a roadmap task as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.CompleteTask(cmd.Context(), args[0])
		},
	}
}
