package api

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/bnema/walletsync/internal/domain"
)

type agentStateResponse struct {
	Status       string          `json:"status"`
	Plan         json.RawMessage `json:"plan,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

func (c *Client) AgentState(ctx context.Context) (domain.AgentState, error) {
	var resp agentStateResponse
	if err := c.callJSON(ctx, classMetadata, "GET", "/agent/state", nil, &resp); err != nil {
		return domain.AgentState{}, err
	}

	state := domain.AgentState{
		Plan:         resp.Plan,
		ErrorMessage: resp.ErrorMessage,
	}
	switch resp.Status {
	case "absent", "":
		// The service reports "absent" when the agent never ran; locally
		// that is the not-started status, not a missing value.
		state.Status = domain.AgentNotStarted
	case "idle":
		state.Status = domain.AgentIdle
	case "thinking":
		state.Status = domain.AgentThinking
	case "error":
		state.Status = domain.AgentError
	case "done":
		state.Status = domain.AgentDone
	default:
		state.Status = domain.AgentStatus(resp.Status)
	}

	return state, nil
}

func (c *Client) StartAgent(ctx context.Context) error {
	return c.callJSON(ctx, classMetadata, "POST", "/agent/start", nil, nil)
}

func (c *Client) CompleteMilestone(ctx context.Context, id string) error {
	return c.callJSON(ctx, classMetadata, "POST", "/agent/milestone/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CompleteTask(ctx context.Context, id string) error {
	return c.callJSON(ctx, classMetadata, "POST", "/agent/task/"+url.PathEscape(id)+"/complete", nil, nil)
}
