package api

import (
	"context"
	"net/url"

	"github.com/bnema/walletsync/internal/domain"
)

type actionsResponse struct {
	Actions []domain.Action `json:"actions"`
}

func (c *Client) Actions(ctx context.Context, category string) (map[string]domain.Action, error) {
	var resp actionsResponse
	if err := c.callJSON(ctx, classMetadata, "GET", "/actions/"+url.PathEscape(category), nil, &resp); err != nil {
		return nil, err
	}

	actions := make(map[string]domain.Action, len(resp.Actions))
	for _, action := range resp.Actions {
		actions[action.ID] = action
	}
	return actions, nil
}

func (c *Client) AddAction(ctx context.Context, category string, action domain.Action) (domain.Action, error) {
	var created domain.Action
	if err := c.callJSON(ctx, classMetadata, "POST", "/actions/"+url.PathEscape(category), action, &created); err != nil {
		return domain.Action{}, err
	}
	return created, nil
}

func (c *Client) RemoveAction(ctx context.Context, category, id string) error {
	return c.callJSON(ctx, classMetadata, "DELETE", actionPath(category, id), nil, nil)
}

func (c *Client) MonitorAction(ctx context.Context, category, id string) error {
	return c.callJSON(ctx, classMetadata, "POST", actionPath(category, id)+"/monitor", nil, nil)
}

func (c *Client) RequestHelp(ctx context.Context, category, id string) error {
	return c.callJSON(ctx, classMetadata, "POST", actionPath(category, id)+"/help", nil, nil)
}

func actionPath(category, id string) string {
	return "/actions/" + url.PathEscape(category) + "/" + url.PathEscape(id)
}
