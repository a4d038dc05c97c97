package anilist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/edumarques81/animekun-backend/internal/infra/store"
	"github.com/edumarques81/animekun-backend/internal/metrics"
	"github.com/edumarques81/animekun-backend/internal/version"
)

// DefaultTimeout for HTTP requests
const DefaultTimeout = 30 * time.Second

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client executes GraphQL queries against AniList with a shared response
// cache in front of the network.
type Client struct {
	baseURL    string
	httpClient Doer
	cache      store.KV
	limiter    *rate.Limiter
	breaker    *breaker
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithBaseURL sets a custom endpoint (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client Doer) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithCache sets the response cache. A nil store disables caching.
func WithCache(kv store.KV) Option {
	return func(c *Client) {
		c.cache = kv
	}
}

// WithRequestsPerMinute throttles outgoing requests. Zero disables throttling.
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// WithCircuitBreaker stops sending requests for timeout after the given
// number of consecutive transport, rate-limit or server failures. A zero
// threshold disables the breaker.
func WithCircuitBreaker(consecutiveFailures uint32, timeout time.Duration) Option {
	return func(c *Client) {
		if consecutiveFailures == 0 {
			c.breaker = nil
			return
		}
		c.breaker = newBreaker("anilist", consecutiveFailures, timeout)
	}
}

// NewClient creates a new AniList client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/DefaultRequestsPerMinute), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Execute runs the query registered under queryID. A cached response is
// returned without touching the network; otherwise one request is sent and
// any failure comes back as a *QueryError.
func (c *Client) Execute(ctx context.Context, queryID string, vars Variables) (*Response, error) {
	query, ok := queries[queryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuery, queryID)
	}

	key, err := CacheKey(queryID, vars)
	if err != nil {
		return nil, fmt.Errorf("cache key: %w", err)
	}

	if resp, ok := c.cached(queryID, key); ok {
		return resp, nil
	}
	metrics.CacheMisses.WithLabelValues(queryID).Inc()

	var (
		resp *Response
		body []byte
	)
	if c.breaker != nil {
		resp, body, err = c.breaker.execute(func() (*Response, []byte, error) {
			return c.roundTrip(ctx, queryID, query, vars)
		})
	} else {
		resp, body, err = c.roundTrip(ctx, queryID, query, vars)
	}
	if err != nil {
		var qe *QueryError
		if errors.As(err, &qe) {
			metrics.AniListRequests.WithLabelValues(queryID, string(qe.Kind)).Inc()
		}
		return nil, err
	}
	metrics.AniListRequests.WithLabelValues(queryID, "ok").Inc()

	c.store(key, body)
	return resp, nil
}

// cached returns the cached response for key, if any. Read failures are
// treated as misses.
func (c *Client) cached(queryID, key string) (*Response, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, ok, err := c.cache.Get(key)
	if err != nil {
		log.Warn().Err(err).Str("query", queryID).Msg("Failed to read response cache")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		log.Warn().Err(err).Str("query", queryID).Msg("Failed to parse cached response")
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(queryID).Inc()
	log.Debug().Str("query", queryID).Msg("Response cache hit")
	return &resp, true
}

// store writes a successful response body. On quota exhaustion one entry of
// the cache namespace is evicted and the write retried once; a second
// failure is dropped.
func (c *Client) store(key string, body []byte) {
	if c.cache == nil {
		return
	}
	err := c.cache.Set(key, body)
	if err == nil {
		return
	}
	log.Warn().Err(err).Msg("Failed to write response cache")
	if !errors.Is(err, store.ErrQuotaExceeded) {
		return
	}

	keys, err := c.cache.Keys(CacheKeyPrefix)
	if err != nil || len(keys) == 0 {
		return
	}
	if err := c.cache.Delete(keys[0]); err != nil {
		log.Warn().Err(err).Str("key", keys[0]).Msg("Failed to evict cache entry")
		return
	}
	metrics.CacheEvictions.Inc()

	if err := c.cache.Set(key, body); err != nil {
		metrics.CacheWriteFailures.Inc()
		log.Warn().Err(err).Msg("Failed to write response cache even after cleanup")
	}
}

// roundTrip performs the network request and classifies the outcome. On
// success it also returns the raw body for caching.
func (c *Client) roundTrip(ctx context.Context, queryID, query string, vars Variables) (*Response, []byte, error) {
	requestID := uuid.NewString()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, classifyTransport(fmt.Errorf("rate limiter: %w", err))
		}
	}

	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": vars,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	if log.Debug().Enabled() {
		log.Debug().
			Str("request_id", requestID).
			Str("query", queryID).
			RawJSON("variables", mustJSON(vars)).
			Msg("Sending AniList query")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.AniListRequestDuration.WithLabelValues(queryID).Observe(time.Since(start).Seconds())
	if err != nil {
		qe := classifyTransport(err)
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Str("query", queryID).
			Msg("AniList request failed before a response arrived")
		return nil, nil, qe
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		qe := classifyTransport(fmt.Errorf("read response: %w", err))
		log.Error().Err(err).Str("request_id", requestID).Msg("Failed to read AniList response")
		return nil, nil, qe
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusText := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
		qe := classifyStatus(resp.StatusCode, statusText, body)
		log.Error().
			Str("request_id", requestID).
			Str("query", queryID).
			Int("status", resp.StatusCode).
			Str("kind", string(qe.Kind)).
			Str("body", truncate(string(body), 512)).
			Msg("AniList HTTP error")
		return nil, nil, qe
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("Failed to parse AniList response")
		return nil, nil, classifyMalformed(err)
	}

	if len(result.Errors) > 0 {
		qe := classifyGraphQL(result.Errors)
		log.Error().
			Str("request_id", requestID).
			Str("query", queryID).
			Str("errors", qe.Detail).
			Msg("AniList GraphQL errors")
		return nil, nil, qe
	}

	log.Debug().
		Str("request_id", requestID).
		Str("query", queryID).
		Dur("elapsed", time.Since(start)).
		Msg("AniList query succeeded")
	return &result, body, nil
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return data
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
