package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/rollctl/internal/cache"
	"github.com/fleetops/rollctl/internal/config"
	"github.com/fleetops/rollctl/internal/logger"
)

func testMetricsConfig() config.MetricsConfig {
	return config.MetricsConfig{
		APIKey:             "test-key",
		AccountID:          "12345",
		Region:             "us",
		Timeout:            5 * time.Second,
		BreakerThreshold:   3,
		BreakerResetWindow: time.Minute,
	}
}

func newTestClient(t *testing.T, cfg config.MetricsConfig, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var queryCache cache.Cache
	if cfg.CacheTTL > 0 {
		queryCache = cache.New(cfg.CacheTTL)
	}

	client, err := NewClient(cfg, queryCache, logger.New())
	require.NoError(t, err)
	client.endpoint = srv.URL

	return client, srv
}

func TestNewClientRequiresCredentials(t *testing.T) {
	cfg := testMetricsConfig()
	cfg.APIKey = ""
	_, err := NewClient(cfg, nil, logger.New())
	assert.ErrorContains(t, err, "API key")

	cfg = testMetricsConfig()
	cfg.AccountID = ""
	_, err = NewClient(cfg, nil, logger.New())
	assert.ErrorContains(t, err, "account ID")
}

func TestQueryParsesResults(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("API-Key"))
		fmt.Fprint(w, `{"data":{"actor":{"account":{"nrql":{"results":[
			{"hostname":"h1","giBIngested":12.5},
			{"hostname":"h2","giBIngested":3.0}
		]}}}}}`)
	})

	client, _ := newTestClient(t, testMetricsConfig(), handler)

	result, err := client.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "h1", result.Results[0]["hostname"])
	assert.Equal(t, 12.5, result.Results[0]["giBIngested"])
}

func TestQueryWrapsTransportError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	client, _ := newTestClient(t, testMetricsConfig(), handler)

	_, err := client.Query(context.Background(), "SELECT 1")
	require.Error(t, err)

	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, qerr.Error(), "502")
}

func TestQueryWrapsGraphQLError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"invalid NRQL"}]}`)
	})

	client, _ := newTestClient(t, testMetricsConfig(), handler)

	_, err := client.Query(context.Background(), "SELECT nonsense")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid NRQL")
}

func TestQueryFailsFastWhileBreakerOpen(t *testing.T) {
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "down", http.StatusInternalServerError)
	})

	cfg := testMetricsConfig()
	client, _ := newTestClient(t, cfg, handler)

	for i := 0; i < cfg.BreakerThreshold; i++ {
		_, err := client.Query(context.Background(), "SELECT 1")
		require.Error(t, err)
	}
	assert.Equal(t, cfg.BreakerThreshold, requests)

	// Breaker is open now: the next call must not touch the server.
	_, err := client.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, cfg.BreakerThreshold, requests)
}

func TestQueryServedFromCache(t *testing.T) {
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"data":{"actor":{"account":{"nrql":{"results":[{"hostname":"h1","giBIngested":1.0}]}}}}}`)
	})

	cfg := testMetricsConfig()
	cfg.CacheTTL = time.Minute
	client, _ := newTestClient(t, cfg, handler)

	_, err := client.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	_, err = client.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)

	assert.Equal(t, 1, requests, "second identical query must come from cache")
}
