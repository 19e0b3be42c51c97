package api

import (
	"context"

	"github.com/bnema/walletsync/internal/domain"
)

func (c *Client) Profile(ctx context.Context) (domain.Profile, error) {
	var profile domain.Profile
	if err := c.callJSON(ctx, classMetadata, "GET", "/me", nil, &profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

func (c *Client) CompleteOnboarding(ctx context.Context, answers map[string]string) (domain.Profile, error) {
	var profile domain.Profile
	in := struct {
		Answers map[string]string `json:"answers"`
	}{Answers: answers}
	if err := c.callJSON(ctx, classMetadata, "POST", "/me/onboarding", in, &profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	var profile domain.Profile
	if err := c.callJSON(ctx, classMetadata, "POST", "/me/profile-update", p, &profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}
