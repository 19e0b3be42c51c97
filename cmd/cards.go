package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/walletsync/internal/domain"
)

func newCardsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Manage tracked payment cards",
	}

	cmd.AddCommand(
		newCardsListCmd(app),
		newCardsAddCmd(app),
		newCardsRemoveCmd(app),
		newCardsBonusCmd(app),
	)

	return cmd
}

func newCardsListCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cards (cached unless --refresh)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cards, err := app.service.Cards(cmd.Context(), force)
			if err != nil {
				return err
			}
			return writeJSON(cmd, cards)
		},
	}

	cmd.Flags().BoolVar(&force, "refresh", false, "Bypass the cache and fetch from the server")

	return cmd
}

func newCardsAddCmd(app *app) *cobra.Command {
	var card domain.Card

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a card",
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := app.service.AddCard(cmd.Context(), card)
			if err != nil {
				return err
			}
			return writeJSON(cmd, created)
		},
	}

	cmd.Flags().StringVar(&card.Name, "name", "", "Card name")
	cmd.Flags().StringVar(&card.Issuer, "issuer", "", "Issuing bank")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newCardsRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <card-id>",
		Short: "Remove a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.RemoveCard(cmd.Context(), args[0])
		},
	}
}

func newCardsBonusCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bonus",
		Short: "Manage a card's welcome bonus",
	}

	cmd.AddCommand(newCardsBonusSetCmd(app), newCardsBonusClearCmd(app))

	return cmd
}

func newCardsBonusSetCmd(app *app) *cobra.Command {
	var (
		bonus    domain.CardBonus
		deadline string
	)

	cmd := &cobra.Command{
		Use:   "set <card-id>",
		Short: "Set the card's active bonus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deadline != "" {
				parsed, err := time.Parse("2006-01-02", deadline)
				if err != nil {
					return fmt.Errorf("parse deadline: %w", err)
				}
				bonus.Deadline = parsed
			}
			return app.service.SetCardBonus(cmd.Context(), args[0], bonus)
		},
	}

	cmd.Flags().StringVar(&bonus.Description, "description", "", "Bonus description")
	cmd.Flags().Int64Var(&bonus.ValueCents, "value-cents", 0, "Bonus value in cents")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Bonus deadline as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func newCardsBonusClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <card-id>",
		Short: "Clear the card's bonus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.service.ClearCardBonus(cmd.Context(), args[0])
		},
	}
}
