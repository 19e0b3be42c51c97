package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/walletsync/internal/ports"
)

func newLoginCmd(app *app) *cobra.Command {
	var creds ports.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.service.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", session.SubjectID)
			return err
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newSignupCmd(app *app) *cobra.Command {
	var creds ports.Credentials

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.service.Signup(cmd.Context(), creds)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "signed up as %s\n", session.SubjectID)
			return err
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the session and every cached snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.service.Logout(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return err
		},
	}
}
