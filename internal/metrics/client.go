package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fleetops/rollctl/internal/cache"
	"github.com/fleetops/rollctl/internal/config"
	"github.com/fleetops/rollctl/internal/util"
)

// API endpoints per region.
const (
	endpointUS = "https://api.newrelic.com/graphql"
	endpointEU = "https://api.eu.newrelic.com/graphql"
)

// ErrCircuitOpen is returned without attempting the network call while the
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open, metrics service likely degraded")

// QueryError carries the query text together with the underlying transport
// or parse failure.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("metrics query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// QueryResult is the opaque outcome of one analytics query. Rows are keyed
// by whatever facet field the query used; the client performs no semantic
// interpretation.
type QueryResult struct {
	Results    []map[string]any `json:"results"`
	DurationMs float64          `json:"duration_ms"`
}

// Querier is the capability the validator depends on.
type Querier interface {
	Query(ctx context.Context, nrql string) (*QueryResult, error)
}

// Client executes NRQL queries against the metrics store through its
// GraphQL API. Every call goes through an instance-scoped circuit breaker;
// results are optionally cached per query text.
type Client struct {
	cfg        config.MetricsConfig
	endpoint   string
	httpClient *http.Client
	breaker    *CircuitBreaker
	cache      cache.Cache
	logger     *slog.Logger
}

// NewClient creates a metrics client. A missing API key or account ID is a
// configuration error reported here, never at query time.
func NewClient(cfg config.MetricsConfig, queryCache cache.Cache, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("metrics API key is required")
	}
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("metrics account ID is required")
	}

	endpoint := endpointUS
	if cfg.Region == "eu" {
		endpoint = endpointEU
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
	}
	if cfg.TLS != nil {
		tlsConfig, err := util.LoadTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to load metrics TLS config: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
	}

	return &Client{
		cfg:        cfg,
		endpoint:   endpoint,
		httpClient: httpClient,
		breaker:    NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerResetWindow),
		cache:      queryCache,
		logger:     logger,
	}, nil
}

// Breaker exposes the client's circuit breaker for status reporting.
func (c *Client) Breaker() *CircuitBreaker {
	return c.breaker
}

// graphqlRequest is the wire shape of one GraphQL call.
type graphqlRequest struct {
	Query string `json:"query"`
}

// graphqlResponse is the subset of the response the client reads.
type graphqlResponse struct {
	Data struct {
		Actor struct {
			Account struct {
				NRQL struct {
					Results []map[string]any `json:"results"`
				} `json:"nrql"`
			} `json:"account"`
		} `json:"actor"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query executes an NRQL query. The breaker is consulted first: when open
// the call fails fast with ErrCircuitOpen instead of touching the network.
// Cache hits bypass both the breaker and the network.
func (c *Client) Query(ctx context.Context, nrql string) (*QueryResult, error) {
	if c.cache != nil && c.cfg.CacheTTL > 0 {
		if cached, ok := c.cache.Get(nrql); ok {
			if result, ok := cached.(*QueryResult); ok {
				c.logger.Debug("metrics query served from cache")
				return result, nil
			}
		}
	}

	if !c.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	result, err := c.doQuery(ctx, nrql)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, &QueryError{Query: nrql, Err: err}
	}
	c.breaker.RecordSuccess()

	if c.cache != nil && c.cfg.CacheTTL > 0 {
		c.cache.Set(nrql, result, c.cfg.CacheTTL)
	}

	return result, nil
}

// doQuery performs the network call and response parsing.
func (c *Client) doQuery(ctx context.Context, nrql string) (*QueryResult, error) {
	gql := fmt.Sprintf(
		`{ actor { account(id: %s) { nrql(query: %q) { results } } } }`,
		c.cfg.AccountID, strings.TrimSpace(nrql),
	)

	body, err := json.Marshal(graphqlRequest{Query: gql})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.Errors) > 0 {
		messages := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			messages = append(messages, e.Message)
		}
		return nil, fmt.Errorf("graphql error: %s", strings.Join(messages, "; "))
	}

	durationMs := float64(time.Since(start).Microseconds()) / 1000.0

	c.logger.Debug("metrics query executed",
		slog.Int("rows", len(parsed.Data.Actor.Account.NRQL.Results)),
		slog.Float64("duration_ms", durationMs),
	)

	return &QueryResult{
		Results:    parsed.Data.Actor.Account.NRQL.Results,
		DurationMs: durationMs,
	}, nil
}
