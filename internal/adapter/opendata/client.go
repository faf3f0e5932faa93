// Package opendata downloads the TEHIK COVID-19 open data feeds.
package opendata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
	"github.com/couchcryptid/covid-dashboard-etl/internal/observability"
)

// URLs locates the four feeds.
type URLs struct {
	TestResults     string
	Locations       string
	Hospitalization string
	Vaccination     string
}

// Transient failures (transport errors and 5xx) are retried with
// exponential backoff: start at 200ms, double each retry, cap at 5s.
const (
	defaultAttempts = 3
	initialBackoff  = 200 * time.Millisecond
	maxBackoff      = 5 * time.Second
)

// Client implements pipeline.FeedSource over HTTP.
type Client struct {
	urls       URLs
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
	attempts   int
	backoff    time.Duration
}

// NewClient creates an open data client.
func NewClient(urls URLs, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		urls: urls,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics:  metrics,
		logger:   logger,
		attempts: defaultAttempts,
		backoff:  initialBackoff,
	}
}

// FetchFeeds downloads and decodes all four feeds. Any failure aborts the
// whole fetch.
func (c *Client) FetchFeeds(ctx context.Context) (domain.Feeds, error) {
	var feeds domain.Feeds
	var err error

	if feeds.TestResults, err = getJSON[domain.TestResult](ctx, c, domain.FeedTestResults, c.urls.TestResults); err != nil {
		return domain.Feeds{}, err
	}
	if feeds.Locations, err = getJSON[domain.LocationRecord](ctx, c, domain.FeedLocations, c.urls.Locations); err != nil {
		return domain.Feeds{}, err
	}
	if feeds.Hospitalizations, err = getJSON[domain.HospitalRecord](ctx, c, domain.FeedHospitalization, c.urls.Hospitalization); err != nil {
		return domain.Feeds{}, err
	}
	if feeds.Vaccinations, err = getJSON[domain.VaccinationRecord](ctx, c, domain.FeedVaccination, c.urls.Vaccination); err != nil {
		return domain.Feeds{}, err
	}
	return feeds, nil
}

// LocationsLastModified returns the Last-Modified header of the locations
// feed. A missing header yields the zero time, which the freshness gate
// treats as stale.
func (c *Client) LocationsLastModified(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.urls.Locations, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s head request: %w", domain.FeedLocations, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("%s head request: status %d", domain.FeedLocations, resp.StatusCode)
	}

	header := resp.Header.Get("Last-Modified")
	if header == "" {
		c.logger.Warn("feed has no Last-Modified header", "feed", domain.FeedLocations)
		return time.Time{}, nil
	}
	modified, err := http.ParseTime(header)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s Last-Modified %q: %w", domain.FeedLocations, header, err)
	}
	return modified, nil
}

func getJSON[T any](ctx context.Context, c *Client, feed, url string) ([]T, error) {
	start := time.Now()
	records, err := getWithRetry[T](ctx, c, feed, url)
	c.metrics.FeedDuration.WithLabelValues(feed).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FeedFetchTotal.WithLabelValues(feed, "error").Inc()
		return nil, err
	}

	c.metrics.FeedFetchTotal.WithLabelValues(feed, "success").Inc()
	c.metrics.FeedRecords.WithLabelValues(feed).Set(float64(len(records)))
	c.logger.Debug("feed fetched", "feed", feed, "records", len(records), "duration", time.Since(start))
	return records, nil
}

func getWithRetry[T any](ctx context.Context, c *Client, feed, url string) ([]T, error) {
	backoff := c.backoff
	for attempt := 1; ; attempt++ {
		records, transient, err := doGet[T](ctx, c.httpClient, feed, url)
		if err == nil || !transient || attempt >= c.attempts {
			return records, err
		}
		c.logger.Warn("feed fetch failed, retrying", "feed", feed, "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, fmt.Errorf("%s: %w", feed, ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// doGet performs one request. transient reports whether a retry may succeed.
func doGet[T any](ctx context.Context, client *http.Client, feed, url string) (records []T, transient bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("%s request: %w", feed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, resp.StatusCode >= http.StatusInternalServerError, fmt.Errorf("%s: status %d: %s", feed, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", feed, err)
	}
	return records, false, nil
}
