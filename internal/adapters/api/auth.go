package api

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/walletsync/internal/domain"
	"github.com/bnema/walletsync/internal/ports"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	UserID       string `json:"user_id"`
}

func (c *Client) Login(ctx context.Context, creds ports.Credentials) (domain.Session, error) {
	return c.bootstrapSession(ctx, "/login", creds)
}

func (c *Client) Signup(ctx context.Context, creds ports.Credentials) (domain.Session, error) {
	return c.bootstrapSession(ctx, "/signup", creds)
}

func (c *Client) bootstrapSession(ctx context.Context, path string, creds ports.Credentials) (domain.Session, error) {
	var resp sessionResponse
	in := credentialsRequest{Email: creds.Email, Password: creds.Password}
	if err := c.callJSON(ctx, classAuth, "POST", path, in, &resp); err != nil {
		return domain.Session{}, err
	}
	return c.toSession(resp)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	var resp sessionResponse
	if err := c.callJSON(ctx, classAuth, "POST", "/refresh", refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return domain.Session{}, err
	}
	return c.toSession(resp)
}

func (c *Client) toSession(resp sessionResponse) (domain.Session, error) {
	session := domain.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		SubjectID:    resp.UserID,
	}
	if resp.ExpiresIn > 0 {
		session.Expiry = c.clock.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	if !session.Valid() {
		return domain.Session{}, fmt.Errorf("session payload missing token or subject: %w", domain.ErrDecodeFailed)
	}
	return session, nil
}
