// Package wris talks to the India-WRIS groundwater-level dataset endpoint.
package wris

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"groundwatch/internal/models"
	"groundwatch/internal/observability"
)

// maxBackoff caps the retry sleep so a long outage does not stall a district
// slot for minutes.
const maxBackoff = 30 * time.Second

// UpstreamError is a non-transient rejection from the API: client errors,
// malformed payloads, or an error status inside the response envelope.
// Districts failing this way are skipped, not retried.
type UpstreamError struct {
	District   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream rejected %s: status %d: %s", e.District, e.StatusCode, e.Message)
}

// envelope is the wrapper the dataset endpoint puts around station data.
type envelope struct {
	StatusCode int                 `json:"statusCode"`
	Message    string              `json:"message"`
	Data       []models.RawReading `json:"data"`
}

// Client fetches per-district groundwater readings with bounded retry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	agency     string
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Agency     string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// NewClient builds a Client with its own timeout-bounded http.Client.
func NewClient(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		agency:     opts.Agency,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchDistrict retrieves all readings for one district within the window.
// Transient failures (network errors, 5xx) are retried with exponential
// backoff up to the configured maximum; non-transient failures return a
// *UpstreamError immediately.
func (c *Client) FetchDistrict(ctx context.Context, district models.DistrictRef, w models.DateWindow) ([]models.RawReading, error) {
	backoff := c.backoff

	for attempt := 0; ; attempt++ {
		readings, retryable, err := c.fetchOnce(ctx, district, w)
		if err == nil {
			return readings, nil
		}
		if !retryable || attempt >= c.maxRetries {
			return nil, err
		}

		c.metrics.FetchRetries.Inc()
		c.logger.Warn("fetch failed, retrying",
			"district", district.District,
			"attempt", attempt+1,
			"backoff", backoff.String(),
			"error", err,
		)

		if !sleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = nextBackoff(backoff)
	}
}

// fetchOnce performs a single request. The bool result reports whether the
// failure is worth retrying.
func (c *Client) fetchOnce(ctx context.Context, district models.DistrictRef, w models.DateWindow) ([]models.RawReading, bool, error) {
	params := url.Values{
		"stateName":    {district.State},
		"districtName": {district.District},
		"agencyName":   {c.agency},
		"startdate":    {w.StartDate()},
		"enddate":      {w.EndDate()},
		"download":     {"false"},
		"page":         {"0"},
		"size":         {"1000"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, err
	}
	// The endpoint rejects requests without browser-like headers.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Referer", "https://indiawris.gov.in/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request %s: %w", district.District, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("fetch %s: unexpected status %s", district.District, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, false, &UpstreamError{District: district.District, StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var payload envelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, &UpstreamError{District: district.District, StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}

	switch {
	case payload.StatusCode >= 500:
		return nil, true, fmt.Errorf("fetch %s: envelope status %d: %s", district.District, payload.StatusCode, payload.Message)
	case payload.StatusCode != 0 && payload.StatusCode != http.StatusOK:
		return nil, false, &UpstreamError{District: district.District, StatusCode: payload.StatusCode, Message: payload.Message}
	}

	return payload.Data, false, nil
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
