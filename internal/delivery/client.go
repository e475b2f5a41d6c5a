// Package delivery relays statement batches to the configured ingestion
// endpoints, one request at a time.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/extrato-relay/internal/domain"
	"github.com/rs/zerolog"
)

const (
	// DefaultIngestPath is appended to every destination base URL.
	DefaultIngestPath = "/api/ext-salva-movimentacoes-externas"
	// DefaultTimeout bounds a single POST.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
)

// Sender posts one batch to one destination.
type Sender interface {
	Send(ctx context.Context, baseURL string, batch []*domain.Statement) (json.RawMessage, error)
}

// Client is the HTTP Sender.
type Client struct {
	httpClient *http.Client
	ingestPath string
	timeout    time.Duration
	log        zerolog.Logger
}

// NewClient creates a new ingestion client. Zero values select the defaults.
func NewClient(ingestPath string, timeout time.Duration, log zerolog.Logger) *Client {
	if ingestPath == "" {
		ingestPath = DefaultIngestPath
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		ingestPath: ingestPath,
		timeout:    timeout,
		log:        log.With().Str("component", "ingest_client").Logger(),
	}
}

// Endpoint returns the full ingestion URL for a destination base URL.
func (c *Client) Endpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(c.ingestPath, "/")
}

// Send posts the batch and returns the response body. Any non-2xx status or
// transport failure is returned as *domain.DeliveryError.
func (c *Client) Send(ctx context.Context, baseURL string, batch []*domain.Statement) (json.RawMessage, error) {
	endpoint := c.Endpoint(baseURL)

	body, err := json.Marshal(NewPayload(batch))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.DeliveryError{URL: baseURL, Detail: quote(err.Error()), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().
		Str("url", endpoint).
		Int("statements", len(batch)).
		Int("bytes", len(body)).
		Msg("Posting batch")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.DeliveryError{URL: baseURL, Detail: quote(err.Error()), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.DeliveryError{
			URL:        baseURL,
			StatusCode: resp.StatusCode,
			Detail:     quote(err.Error()),
			Err:        fmt.Errorf("failed to read response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.DeliveryError{
			URL:        baseURL,
			StatusCode: resp.StatusCode,
			Detail:     normalizeBody(respBody),
		}
	}

	return normalizeBody(respBody), nil
}
