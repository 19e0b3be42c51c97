package api

import (
	"context"
	"net/url"

	"github.com/bnema/walletsync/internal/domain"
)

type cardsResponse struct {
	Cards []domain.Card `json:"cards"`
}

func (c *Client) Cards(ctx context.Context) (map[string]domain.Card, error) {
	var resp cardsResponse
	if err := c.callJSON(ctx, classMetadata, "GET", "/me/cards", nil, &resp); err != nil {
		return nil, err
	}

	cards := make(map[string]domain.Card, len(resp.Cards))
	for _, card := range resp.Cards {
		cards[card.ID] = card
	}
	return cards, nil
}

func (c *Client) AddCard(ctx context.Context, card domain.Card) (domain.Card, error) {
	var created domain.Card
	if err := c.callJSON(ctx, classMetadata, "POST", "/me/cards", card, &created); err != nil {
		return domain.Card{}, err
	}
	return created, nil
}

func (c *Client) RemoveCard(ctx context.Context, id string) error {
	return c.callJSON(ctx, classMetadata, "DELETE", "/me/cards/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SetCardBonus(ctx context.Context, id string, bonus domain.CardBonus) error {
	return c.callJSON(ctx, classMetadata, "POST", "/me/cards/"+url.PathEscape(id)+"/bonus", bonus, nil)
}

func (c *Client) ClearCardBonus(ctx context.Context, id string) error {
	return c.callJSON(ctx, classMetadata, "DELETE", "/me/cards/"+url.PathEscape(id)+"/bonus", nil, nil)
}
