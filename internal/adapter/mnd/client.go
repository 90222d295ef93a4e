// Package mnd reads the mart catalog from the national open data API.
package mnd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/mart-locator/internal/domain"
)

const (
	// DefaultBaseURL is the public open data endpoint.
	DefaultBaseURL = "http://openapi.mnd.go.kr"
	table          = "TB_MND_MART_CURRENT"

	// MaxWindow caps a single fetch to keep a run bounded.
	MaxWindow = 5000
)

// Client fetches catalog rows by index range.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a catalog source client.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchRange returns rows [start, end] (1-based, inclusive). The window is
// capped at MaxWindow rows. Every failure wraps domain.ErrFetchFailed.
func (c *Client) FetchRange(ctx context.Context, start, end int) (domain.CatalogPage, error) {
	if start < 1 || end < start {
		return domain.CatalogPage{}, fmt.Errorf("invalid range %d-%d: %w", start, end, domain.ErrFetchFailed)
	}
	if end-start+1 > MaxWindow {
		end = start + MaxWindow - 1
	}

	u := fmt.Sprintf("%s/%s/json/%s/%d/%d/", c.baseURL, url.PathEscape(c.apiKey), table, start, end)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.CatalogPage{}, fmt.Errorf("create request: %w: %w", domain.ErrFetchFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.CatalogPage{}, fmt.Errorf("catalog request: %w: %w", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.CatalogPage{}, fmt.Errorf("catalog API status %d: %s: %w", resp.StatusCode, body, domain.ErrFetchFailed)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.CatalogPage{}, fmt.Errorf("decode catalog: %w: %w", domain.ErrFetchFailed, err)
	}
	if payload.Table == nil {
		msg := payload.Result.Message
		if msg == "" {
			msg = "missing " + table
		}
		return domain.CatalogPage{}, fmt.Errorf("catalog API: %s: %w", msg, domain.ErrFetchFailed)
	}

	c.logger.Debug("catalog rows fetched",
		"start", start,
		"end", end,
		"rows", len(payload.Table.Rows),
		"total", payload.Table.TotalCount,
	)
	return domain.CatalogPage{
		TotalCount: payload.Table.TotalCount,
		Rows:       payload.Table.Rows,
	}, nil
}

// Open data API response types.

type response struct {
	Table  *tableBody `json:"TB_MND_MART_CURRENT"`
	Result result     `json:"RESULT"`
}

type tableBody struct {
	TotalCount int              `json:"list_total_count"`
	Result     result           `json:"RESULT"`
	Rows       []domain.MartRow `json:"row"`
}

type result struct {
	Code    string `json:"CODE"`
	Message string `json:"MESSAGE"`
}
