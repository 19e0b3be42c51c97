// Package api implements the HTTP/JSON client for the wallet service.
//
// Every authenticated call attaches a bearer token from the TokenSource.
// A 401 triggers exactly one forced refresh and retry; a second 401 is
// surfaced as domain.ErrAuthExpired. Transport failures, malformed bodies
// and non-2xx responses map onto the domain error taxonomy so callers can
// branch with errors.Is.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/walletsync/internal/domain"
	"github.com/bnema/walletsync/internal/ports"
)

const maxResponseBytes = 1 << 20

// TokenSource supplies bearer tokens for authenticated calls. ForceRefresh
// is the 401 recovery path and must not return the token that just failed.
// Expire tells the source its session is dead: the server rejected a token
// that was just renewed, so retrying is pointless.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) (string, error)
	Expire(ctx context.Context)
}

type callClass int

const (
	classAuth callClass = iota
	classMetadata
	classUpload
)

// Timeouts holds per-call-class deadlines. Uploads carry large multipart
// bodies and need materially more time than a metadata GET.
type Timeouts struct {
	Auth     time.Duration
	Metadata time.Duration
	Upload   time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Auth:     15 * time.Second,
		Metadata: 10 * time.Second,
		Upload:   3 * time.Minute,
	}
}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Timeouts   Timeouts
	Clock      ports.Clock
	Logger     *slog.Logger
}

type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	timeouts Timeouts
	clock    ports.Clock
	logger   *slog.Logger
}

var _ ports.RemoteAPI = (*Client)(nil)
var _ ports.AuthAPI = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("api base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse api base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeouts := cfg.Timeouts
	if timeouts == (Timeouts{}) {
		timeouts = DefaultTimeouts()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL:  base,
		http:     httpClient,
		tokens:   cfg.Tokens,
		timeouts: timeouts,
		clock:    clock,
		logger:   logger,
	}, nil
}

// SetTokenSource installs the token source after construction. The session
// store needs the client for login and refresh while the client needs the
// session store for bearer tokens; wiring breaks the cycle here, before any
// authenticated request is made.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

func (c *Client) timeoutFor(class callClass) time.Duration {
	switch class {
	case classAuth:
		return c.timeouts.Auth
	case classUpload:
		return c.timeouts.Upload
	default:
		return c.timeouts.Metadata
	}
}

// callJSON marshals in (when non-nil), performs the request and decodes the
// response into out (when non-nil).
func (c *Client) callJSON(ctx context.Context, class callClass, method, path string, in, out any) error {
	var payload []byte
	contentType := ""
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = encoded
		contentType = "application/json"
	}
	return c.call(ctx, class, method, path, payload, contentType, class != classAuth, out)
}

func (c *Client) call(ctx context.Context, class callClass, method, path string, payload []byte, contentType string, authed bool, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeoutFor(class))
	defer cancel()

	var token string
	if authed {
		if c.tokens == nil {
			return fmt.Errorf("%s %s: %w", method, path, domain.ErrAuthRequired)
		}
		var err error
		token, err = c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	resp, err := c.send(ctx, method, path, payload, contentType, token)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && authed {
		drainAndClose(resp)

		token, err = c.tokens.ForceRefresh(ctx)
		if err != nil {
			return fmt.Errorf("%s %s: refresh after 401: %w", method, path, err)
		}

		resp, err = c.send(ctx, method, path, payload, contentType, token)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drainAndClose(resp)
			// Even the renewed token is rejected: the session is dead
			// server-side and must not be retried on later calls.
			c.tokens.Expire(ctx)
			return fmt.Errorf("%s %s: %w", method, path, domain.ErrAuthExpired)
		}
	}
	defer drainAndClose(resp)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s %s: %w", method, path, remoteError(resp))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, errors.Join(domain.ErrDecodeFailed, err))
	}

	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, contentType, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("send request: %w", errors.Join(domain.ErrCancelled, err))
		}
		return nil, fmt.Errorf("send request: %w", errors.Join(domain.ErrNetworkUnavailable, err))
	}

	return resp, nil
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func remoteError(resp *http.Response) error {
	var payload errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload)
	return &domain.RemoteError{Status: resp.StatusCode, Message: payload.Detail}
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}
