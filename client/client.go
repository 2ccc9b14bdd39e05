// Package client is the HTTP client of the auth endpoints. It implements
// session.ProfileFetcher so a session.Manager can check stored tokens.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-welfare-auth"
	"github.com/goliatone/go-welfare-auth/session"
)

// Client calls the auth endpoints of a gateway
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ session.ProfileFetcher = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Login exchanges credentials for an access token and the identity
func (c *Client) Login(ctx context.Context, username, password string) (auth.LoginResponse, error) {
	var out auth.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	return out, err
}

// FetchProfile returns the identity bound to token
func (c *Client) FetchProfile(ctx context.Context, token string) (auth.Profile, error) {
	var out auth.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/auth/profile", token, nil, &out); err != nil {
		return auth.Profile{}, err
	}
	return out.Identity, nil
}

// CheckUsername reports whether username can still be registered
func (c *Client) CheckUsername(ctx context.Context, username string) (bool, error) {
	var out auth.AvailabilityResponse
	path := "/auth/check-username?username=" + url.QueryEscape(username)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// Register creates a member account
func (c *Client) Register(ctx context.Context, payload auth.RegistrationPayload) (auth.Profile, error) {
	var out auth.RegistrationResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", payload, &out); err != nil {
		return auth.Profile{}, err
	}
	return out.Identity, nil
}

// Refresh exchanges a token for a new one
func (c *Client) Refresh(ctx context.Context, token string) (string, error) {
	var out auth.RefreshResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", token, nil, &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "auth request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func decodeError(status int, body []byte) error {
	var payload auth.ErrorResponse
	_ = json.Unmarshal(body, &payload)

	switch status {
	case http.StatusUnauthorized:
		return auth.ErrUnauthorized.Clone()
	case http.StatusForbidden:
		return auth.ErrForbidden.Clone()
	case http.StatusBadRequest:
		return auth.ValidationFailed(payload.Error.Message, payload.Error.Fields)
	case http.StatusConflict:
		err := auth.ErrConflict.Clone()
		if payload.Error.Message != "" {
			err.Message = payload.Error.Message
		}
		if len(payload.Error.Fields) > 0 {
			err = err.WithMetadata(map[string]any{"fields": payload.Error.Fields})
		}
		return err
	case http.StatusTooManyRequests:
		return auth.ErrTooManyLoginAttempts.Clone()
	default:
		return goerrors.New(fmt.Sprintf("auth server returned HTTP %d", status), goerrors.CategoryOperation).
			WithCode(status)
	}
}
