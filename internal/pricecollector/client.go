// Package pricecollector fetches minute-aligned OHLCV bars over HTTP CSV
// (spec.md §4.3, §6 "OHLCV ingestion") and persists them idempotently.
// Grounded on the teacher's internal/clients/yahoo and
// internal/clients/tradernet HTTP client shape: a bounded *http.Client
// with a fixed timeout and structured per-request logging.
package pricecollector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gpwsignals/engine/internal/errkind"
	"github.com/gpwsignals/engine/internal/reliability"
)

const requestTimeout = 15 * time.Second

// Client fetches the raw OHLCV CSV body for one symbol.
type Client struct {
	http        *http.Client
	urlTemplate string
	backoff     reliability.Backoff
	log         zerolog.Logger
}

// NewClient builds a Client. urlTemplate is an fmt.Sprintf pattern with
// one %s verb for the ticker symbol.
func NewClient(urlTemplate string, backoff reliability.Backoff, log zerolog.Logger) *Client {
	return &Client{
		http:        &http.Client{Timeout: requestTimeout},
		urlTemplate: urlTemplate,
		backoff:     backoff,
		log:         log.With().Str("client", "pricecollector").Logger(),
	}
}

// FetchCSV retrieves the CSV body for symbol, retrying transient HTTP
// failures (timeouts, 5xx) with the configured backoff.
func (c *Client) FetchCSV(ctx context.Context, symbol string) ([]byte, error) {
	url := fmt.Sprintf(c.urlTemplate, symbol)

	var body []byte
	err := c.backoff.Retry(ctx, 3, func(attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errkind.AsMalformedInput(fmt.Errorf("build request for %s: %w", symbol, err))
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Int("attempt", attempt).Msg("ohlcv fetch failed")
			return errkind.AsTransient(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return errkind.AsTransient(fmt.Errorf("ohlcv fetch %s: server error %d", symbol, resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return errkind.AsMalformedInput(fmt.Errorf("ohlcv fetch %s: status %d", symbol, resp.StatusCode))
		}

		buf, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return errkind.AsTransient(fmt.Errorf("read body for %s: %w", symbol, rerr))
		}
		body = buf
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
