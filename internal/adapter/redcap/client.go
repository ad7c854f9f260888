// Package redcap fetches record and metadata exports from the REDCap API.
//
// The API is a single endpoint taking form-encoded POSTs; the content
// parameter selects the export. Fetch failures are fatal to the run — the
// pipeline cannot reconcile without a base record set.
package redcap

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

	"github.com/heatrelief/site-registry-etl/internal/domain"
	"github.com/heatrelief/site-registry-etl/internal/schema"
)

// Client talks to one REDCap project.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a REDCap API client.
func NewClient(apiURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiURL: apiURL,
		token:  token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchRecords pulls the flat record export: every preseason and in-season
// update row of the project.
func (c *Client) FetchRecords(ctx context.Context) ([]domain.RawRecord, error) {
	body, err := c.post(ctx, url.Values{
		"content": {"record"},
		"format":  {"json"},
		"type":    {"flat"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	var rows []domain.RawRecord
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("fetch records: malformed export: %w", err)
	}
	c.logger.Info("records fetched", "count", len(rows))
	return rows, nil
}

// FetchMetadata pulls the project's field metadata (the data dictionary),
// from which the run's decode tables are built.
func (c *Client) FetchMetadata(ctx context.Context) ([]schema.Field, error) {
	body, err := c.post(ctx, url.Values{
		"content": {"metadata"},
		"format":  {"json"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}

	var fields []schema.Field
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("fetch metadata: malformed export: %w", err)
	}
	c.logger.Info("metadata fetched", "fields", len(fields))
	return fields, nil
}

func (c *Client) post(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("REDCap API error: status %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
