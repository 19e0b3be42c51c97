package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "walletsync",
		Short:         "walletsync: offline-first savings assistant client",
		Long:          "walletsync keeps a local mirror of your savings-assistant account (cards, saving actions, agent roadmap, transactions) and synchronizes it with the backend: cached reads, optimistic writes, agent polling and background price-drop checks.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}
	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		newLoginCmd(app),
		newSignupCmd(app),
		newLogoutCmd(app),
		newProfileCmd(app),
		newCardsCmd(app),
		newActionsCmd(app),
		newAgentCmd(app),
		newTransactionsCmd(app),
		newTickCmd(app),
	)

	return rootCmd
}
