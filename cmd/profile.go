package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newProfileCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and update the account profile",
	}

	cmd.AddCommand(newProfileShowCmd(app), newProfileOnboardCmd(app), newProfileUpdateCmd(app))

	return cmd
}

func newProfileShowCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the profile (cached unless --refresh)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := app.service.Profile(cmd.Context(), force)
			if err != nil {
				return err
			}
			return writeJSON(cmd, profile)
		},
	}

	cmd.Flags().BoolVar(&force, "refresh", false, "Bypass the cache and fetch from the server")

	return cmd
}

func newProfileOnboardCmd(app *app) *cobra.Command {
	var answers []string

	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Complete onboarding with key=value answers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed := make(map[string]string, len(answers))
			for _, answer := range answers {
				key, value, ok := strings.Cut(answer, "=")
				if !ok {
					return fmt.Errorf("answer %q is not key=value", answer)
				}
				parsed[key] = value
			}

			profile, err := app.service.CompleteOnboarding(cmd.Context(), parsed)
			if err != nil {
				return err
			}
			return writeJSON(cmd, profile)
		},
	}

	cmd.Flags().StringArrayVar(&answers, "answer", nil, "Onboarding answer as key=value (repeatable)")

	return cmd
}

func newProfileUpdateCmd(app *app) *cobra.Command {
	var displayName string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := app.service.Profile(cmd.Context(), false)
			if err != nil {
				return err
			}
			profile.DisplayName = displayName

			updated, err := app.service.UpdateProfile(cmd.Context(), profile)
			if err != nil {
				return err
			}
			return writeJSON(cmd, updated)
		},
	}

	cmd.Flags().StringVar(&displayName, "name", "", "New display name")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
