package syncqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/tcadams/tcg-tracker/internal/models"
)

const requestTimeout = 30 * time.Second

// Remote applies mirror mutations to the remote backend.
type Remote interface {
	// Upsert inserts or updates a row keyed by its id, so a retried create
	// after a partial failure is safe.
	Upsert(ctx context.Context, table models.Table, row map[string]any) error

	// Delete removes a row by id. Deleting an already-absent row is not an
	// error.
	Delete(ctx context.Context, table models.Table, id string) error
}

// HTTPRemote talks to a PostgREST-style endpoint with rate limiting. Upserts
// rely on the remote table's primary key being `id`: the merge-duplicates
// preference makes a reseed `create` over an existing row merge instead of
// conflict, which the bulk reseed depends on.
type HTTPRemote struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewHTTPRemote creates a remote mirror client. requestsPerSecond bounds the
// drain loop's request rate.
func NewHTTPRemote(baseURL, apiKey string, requestsPerSecond float64) *HTTPRemote {
	return &HTTPRemote{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (c *HTTPRemote) do(req *http.Request) (int, error) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return resp.StatusCode, fmt.Errorf("remote returned %d: %s", resp.StatusCode, string(body))
}

// Upsert inserts or updates a row keyed by id.
func (c *HTTPRemote) Upsert(ctx context.Context, table models.Table, row map[string]any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	u := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	if _, err := c.do(req); err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", table, err)
	}
	return nil
}

// Delete removes a row by id; an absent row is treated as already deleted.
func (c *HTTPRemote) Delete(ctx context.Context, table models.Table, id string) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	u := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", c.baseURL, table, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}

	status, err := c.do(req)
	if status == http.StatusNotFound {
		// Already absent remotely; delete is idempotent.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}
