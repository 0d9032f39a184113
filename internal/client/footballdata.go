// Package client implements the football-data.org v4 API client with
// bounded retries and fixed backoff. Every failure is reported as a typed
// *FetchError; no other error shape escapes a fetch.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"epl_v4/etl/internal/metrics"
)

// FailureKind classifies why a fetch attempt or attempt sequence failed.
type FailureKind int

const (
	// KindHTTP is a non-200 response status.
	KindHTTP FailureKind = iota
	// KindNetwork is a transport-level failure (timeout, DNS, refused).
	KindNetwork
	// KindExhausted means all retries for the resource were consumed.
	KindExhausted
)

func (k FailureKind) String() string {
	switch k {
	case KindHTTP:
		return "http_error"
	case KindNetwork:
		return "network_error"
	case KindExhausted:
		return "exhausted"
	}
	return "unknown"
}

// FetchError is the failure variant of a fetch outcome.
type FetchError struct {
	Kind   FailureKind
	Status int // set when Kind == KindHTTP
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	case KindExhausted:
		return fmt.Sprintf("fetch %s: all attempts exhausted", e.URL)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// PayloadCache is an optional read-through cache for raw response bodies.
// Implementations must fail open: a miss and an unavailable cache look the
// same to the client.
type PayloadCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
}

// Config holds client construction parameters.
type Config struct {
	BaseURL     string
	Token       string
	Competition string
	Retries     int           // attempts per URL, >= 1
	RetryDelay  time.Duration // sleep between attempts
	Timeout     time.Duration
}

// Client is the football-data.org API client.
type Client struct {
	baseURL     string
	token       string
	competition string
	retries     int
	retryDelay  time.Duration
	httpClient  *http.Client
	cache       PayloadCache
	logger      zerolog.Logger
}

// New creates a football-data.org client.
func New(cfg Config, logger zerolog.Logger) *Client {
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		competition: cfg.Competition,
		retries:     retries,
		retryDelay:  cfg.RetryDelay,
		logger:      logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithCache attaches a read-through payload cache. Cached bodies bypass the
// network entirely.
func (c *Client) WithCache(pc PayloadCache) *Client {
	c.cache = pc
	return c
}

// fetchJSON performs a GET with up to c.retries attempts. A 200 response is
// decoded and returned immediately. Any other status or transport error is
// logged, the client sleeps the retry delay (after every failed attempt,
// the final one included), and tries again. When all attempts are consumed
// the returned *FetchError has KindExhausted. The resource is the logical
// name used for metrics labels.
func (c *Client) fetchJSON(ctx context.Context, url, resource string) (interface{}, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, url); ok {
			var payload interface{}
			if err := json.Unmarshal(body, &payload); err == nil {
				return payload, nil
			}
		}
	}

	for attempt := 1; attempt <= c.retries; attempt++ {
		payload, ferr := c.attempt(ctx, url)
		if ferr == nil {
			metrics.RecordAPICall(resource, "success")
			return payload, nil
		}

		metrics.RecordAPICall(resource, ferr.Kind.String())
		evt := c.logger.Warn().Str("url", url).Int("attempt", attempt)
		if ferr.Kind == KindHTTP {
			evt = evt.Int("status", ferr.Status)
		} else {
			evt = evt.Err(ferr.Err)
		}
		evt.Msg("Fetch attempt failed")

		if attempt < c.retries {
			metrics.APIRetriesTotal.Inc()
		}

		// The delay applies after every failed attempt, the last one
		// included.
		select {
		case <-ctx.Done():
			return nil, &FetchError{Kind: KindNetwork, URL: url, Err: ctx.Err()}
		case <-time.After(c.retryDelay):
		}
	}

	c.logger.Error().Str("url", url).Int("attempts", c.retries).Msg("Failed to fetch")
	return nil, &FetchError{Kind: KindExhausted, URL: url}
}

// attempt performs one GET and classifies the outcome.
func (c *Client) attempt(ctx context.Context, url string) (interface{}, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}
	req.Header.Set("X-Auth-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Kind: KindHTTP, Status: resp.StatusCode, URL: url}
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}

	if c.cache != nil {
		c.cache.Set(ctx, url, body)
	}
	return payload, nil
}

// FetchTeams fetches the competition's teams. A payload without a "teams"
// array yields an empty slice, not an error.
func (c *Client) FetchTeams(ctx context.Context) ([]map[string]interface{}, error) {
	url := fmt.Sprintf("%s/competitions/%s/teams", c.baseURL, c.competition)
	payload, err := c.fetchJSON(ctx, url, "teams")
	if err != nil {
		return nil, err
	}
	return extractRecords(payload, "teams"), nil
}

// FetchMatches fetches the competition's matches for a season.
func (c *Client) FetchMatches(ctx context.Context, season int) ([]map[string]interface{}, error) {
	url := fmt.Sprintf("%s/competitions/%s/matches?season=%d", c.baseURL, c.competition, season)
	payload, err := c.fetchJSON(ctx, url, "matches")
	if err != nil {
		return nil, err
	}
	return extractRecords(payload, "matches"), nil
}

// FetchTeamSquad fetches a single team's player squad.
func (c *Client) FetchTeamSquad(ctx context.Context, teamID int) ([]map[string]interface{}, error) {
	url := fmt.Sprintf("%s/teams/%d", c.baseURL, teamID)
	payload, err := c.fetchJSON(ctx, url, "squad")
	if err != nil {
		return nil, err
	}
	return extractRecords(payload, "squad"), nil
}

// extractRecords pulls the named array of objects out of a response body.
func extractRecords(payload interface{}, key string) []map[string]interface{} {
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return nil
	}
	arr, ok := obj[key].([]interface{})
	if !ok {
		return nil
	}
	records := make([]map[string]interface{}, 0, len(arr))
	for _, item := range arr {
		if rec, ok := item.(map[string]interface{}); ok {
			records = append(records, rec)
		}
	}
	return records
}
