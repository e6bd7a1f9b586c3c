package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// RecordsPath is the batch endpoint served by pkg/server.
const RecordsPath = "/api/v1/records"

// Prometheus metrics for remote batch requests.
var (
	sourceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_source_requests_total",
		Help: "Total remote batch requests by status",
	}, []string{"status"})

	sourceRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_source_request_duration_seconds",
		Help:    "Remote batch request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	sourceErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_source_errors_total",
		Help: "Total remote batch errors by class",
	}, []string{"class"})
)

// HTTPConfig holds HTTP fetcher configuration.
type HTTPConfig struct {
	// BaseURL is the scheme and host of the batch API, e.g. http://localhost:8080.
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string
}

// HTTPFetcher fetches batches from a remote records endpoint.
type HTTPFetcher struct {
	httpClient *http.Client
	base       *url.URL
	config     HTTPConfig
	logger     zerolog.Logger
}

// NewHTTPFetcher creates a fetcher for the API rooted at cfg.BaseURL.
func NewHTTPFetcher(cfg HTTPConfig, logger zerolog.Logger) (*HTTPFetcher, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "infinite-feed/0.1.0"
	}

	return &HTTPFetcher{
		httpClient: &http.Client{},
		base:       base,
		config:     cfg,
		logger:     logger.With().Str("component", "http-source").Logger(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (f *HTTPFetcher) SetHTTPClient(client *http.Client) {
	f.httpClient = client
}

// Endpoint returns the URL requested for page and size.
func (f *HTTPFetcher) Endpoint(page, size int) string {
	u := *f.base
	u.Path = u.Path + RecordsPath
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchBatch implements pagination.BatchFetcher.
func (f *HTTPFetcher) FetchBatch(ctx context.Context, page, size int) (pagination.Batch, error) {
	start := time.Now()
	defer func() {
		sourceRequestDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint(page, size), nil)
	if err != nil {
		return pagination.Batch{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		sourceRequestsTotal.WithLabelValues("network_error").Inc()
		sourceErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		f.logger.Warn().Err(err).Int("page", page).Msg("Batch request failed")
		return pagination.Batch{}, &StatusError{Class: ErrorClassNetwork, Page: page, Err: err}
	}
	defer resp.Body.Close()

	sourceRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if class := classifyStatus(resp.StatusCode); class != "" {
		sourceErrorsTotal.WithLabelValues(string(class)).Inc()
		f.logger.Warn().
			Int("page", page).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Batch source error")
		return pagination.Batch{}, &StatusError{StatusCode: resp.StatusCode, Class: class, Page: page}
	}

	var batch pagination.Batch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		sourceErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return pagination.Batch{}, &StatusError{StatusCode: resp.StatusCode, Class: ErrorClassDecode, Page: page, Err: err}
	}
	if batch.Page == 0 {
		batch.Page = page
	}

	f.logger.Debug().
		Int("page", batch.Page).
		Int("records", len(batch.Records)).
		Dur("duration", time.Since(start)).
		Msg("Batch received")

	return batch, nil
}
