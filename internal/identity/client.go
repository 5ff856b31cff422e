package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"equipment-portal/internal/model"
)

const maxErrorBody = 64 << 10

// Endpoints holds the identity backend paths, relative to the base URL.
type Endpoints struct {
	TokenCreate  string
	TokenRefresh string
	Me           string
	Users        string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		TokenCreate:  "/api/auth/jwt/create/",
		TokenRefresh: "/api/auth/jwt/refresh/",
		Me:           "/api/me/",
		Users:        "/api/auth/users/",
	}
}

type Client struct {
	baseURL   string
	endpoints Endpoints
	http      *http.Client
}

func NewClient(baseURL string, endpoints Endpoints, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: endpoints,
		http:      &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) CreateToken(ctx context.Context, creds model.Credentials) (model.TokenPair, error) {
	var pair model.TokenPair
	if err := c.do(ctx, http.MethodPost, c.endpoints.TokenCreate, "", creds, &pair); err != nil {
		return model.TokenPair{}, fmt.Errorf("create token: %w", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return model.TokenPair{}, fmt.Errorf("create token: %w", errIncompletePair)
	}

	return pair, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	var out struct {
		Access string `json:"access"`
	}
	body := map[string]string{"refresh": refreshToken}
	if err := c.do(ctx, http.MethodPost, c.endpoints.TokenRefresh, "", body, &out); err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	if out.Access == "" {
		return "", fmt.Errorf("refresh token: %w", errIncompletePair)
	}

	return out.Access, nil
}

func (c *Client) Me(ctx context.Context, accessToken string) (model.UserStatus, error) {
	var user model.UserStatus
	if err := c.do(ctx, http.MethodGet, c.endpoints.Me, accessToken, nil, &user); err != nil {
		return model.UserStatus{}, fmt.Errorf("fetch current user: %w", err)
	}

	return user, nil
}

func (c *Client) RegisterUser(ctx context.Context, reg model.Registration) error {
	if err := c.do(ctx, http.MethodPost, c.endpoints.Users, "", reg, nil); err != nil {
		return fmt.Errorf("register user: %w", err)
	}

	return nil
}

var errIncompletePair = errors.New("identity response is missing tokens")

func (c *Client) do(ctx context.Context, method string, path string, bearer string, in any, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: raw}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
