// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/expokds/expo/internal/config"
	"github.com/expokds/expo/internal/models"
)

// RemoteStatusError is returned when the upstream answers with a
// non-2xx status. It marks a business rejection rather than a
// transport failure, so callers must not retry or fall back.
type RemoteStatusError struct {
	StatusCode int
	Body       string
}

func (e *RemoteStatusError) Error() string {
	return fmt.Sprintf("remote returned %d: %s", e.StatusCode, e.Body)
}

// RemoteClient talks to the upstream KOT system over HTTP. All calls
// share a client-side rate limit so snapshot polling and command
// dispatch cannot hammer the upstream together.
type RemoteClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewRemoteClient builds a client from the remote configuration.
func NewRemoteClient(cfg config.Remote) *RemoteClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteClient{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

// FetchTickets retrieves the full set of live tickets.
func (c *RemoteClient) FetchTickets(ctx context.Context) ([]models.Ticket, error) {
	body, err := c.do(ctx, http.MethodGet, "/tickets", nil)
	if err != nil {
		return nil, err
	}

	var tickets []models.Ticket
	if err := json.Unmarshal(body, &tickets); err != nil {
		return nil, fmt.Errorf("decode ticket snapshot: %w", err)
	}
	return tickets, nil
}

// AdvanceTicket asks the upstream to move a ticket to the given state.
func (c *RemoteClient) AdvanceTicket(ctx context.Context, ticketID, status string) error {
	payload := map[string]string{"status": status}
	_, err := c.do(ctx, http.MethodPost, "/tickets/"+ticketID+"/state", payload)
	return err
}

// AdvanceItem asks the upstream to move a single line item.
func (c *RemoteClient) AdvanceItem(ctx context.Context, ticketID string, item models.ItemRef, status string) error {
	payload := map[string]any{"status": status, "item": item}
	_, err := c.do(ctx, http.MethodPost, "/tickets/"+ticketID+"/items/state", payload)
	return err
}

func (c *RemoteClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteStatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
