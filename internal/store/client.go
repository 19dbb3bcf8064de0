// Package store talks to the external account store service. It carries no
// business logic: list and upsert, nothing else mutates accounts.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/croftd/mailbridge-mcp/internal/model"
)

// ErrStoreUnavailable indicates the account store could not be reached or
// rejected the request. Callers must not assume retries.
var ErrStoreUnavailable = errors.New("account store unavailable")

// Client is a thin HTTP client for the account store RPC surface.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewClient creates a store client. baseURL is the root URL of the store
// service; apiToken is optional Bearer auth.
func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// List returns all accounts owned by ownerID.
func (c *Client) List(ctx context.Context, ownerID string) ([]model.Account, error) {
	endpoint := c.baseURL + "/accounts?owner_id=" + url.QueryEscape(ownerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: list returned status %d: %s", ErrStoreUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var accounts []model.Account
	if err := json.NewDecoder(resp.Body).Decode(&accounts); err != nil {
		return nil, fmt.Errorf("%w: decoding list response: %v", ErrStoreUnavailable, err)
	}

	return accounts, nil
}

// Upsert creates or replaces one account record.
func (c *Client) Upsert(ctx context.Context, account model.Account) error {
	payload, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("json.Marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/accounts", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: upsert returned status %d: %s", ErrStoreUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}
