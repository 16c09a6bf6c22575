package deviceconfig

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hardwareConfigJSON = `{
  "systemType": "empirbus",
  "outputs": [
    {"id": "cabin", "signals": {"toggle": 47, "dimmer": 49}},
    {"id": "pump", "signalId": 12}
  ]
}`

const schemaJSON = `{
  "title": "Boat",
  "hardware": {"outputs": [{"id": "nav", "signals": {"toggle": 7}}]}
}`

// newTestServer serves body at path with status and counts requests.
func newTestServer(t *testing.T, path string, status int, body string) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := NewClientWithURL(srv.URL + "/")
	c.RetryDelay = time.Millisecond
	c.MaxRetryDelay = 5 * time.Millisecond
	return c, &hits
}

func TestNewClient(t *testing.T) {
	c := NewClient("192.168.1.1:8080")
	assert.Equal(t, "http://192.168.1.1:8080", c.BaseURL)
	assert.Equal(t, DefaultMaxRetries, c.MaxRetries)
	assert.Equal(t, DefaultTimeout, c.HTTPClient.Timeout)

	c.SetTimeout(time.Second)
	c.SetRetry(1, 2*time.Second)
	assert.Equal(t, time.Second, c.HTTPClient.Timeout)
	assert.Equal(t, 1, c.MaxRetries)
	assert.Equal(t, 2*time.Second, c.RetryDelay)
}

func TestFetchHardwareConfig(t *testing.T) {
	c, hits := newTestServer(t, HardwareConfigPath, http.StatusOK, hardwareConfigJSON)

	cfg, err := c.FetchHardwareConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "empirbus", cfg.SystemType)
	require.Len(t, cfg.Outputs, 2)
	assert.Equal(t, uint16(47), *cfg.Outputs[0].Signals.Toggle)

	// Served from cache.
	_, err = c.LoadHardware(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	c.InvalidateCache()
	assert.Nil(t, c.GetCachedHardwareConfig())
	_, err = c.FetchHardwareConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestFetchHardwareConfigNoCache(t *testing.T) {
	c, hits := newTestServer(t, HardwareConfigPath, http.StatusOK, hardwareConfigJSON)
	c.CacheDuration = 0

	for i := 0; i < 2; i++ {
		_, err := c.FetchHardwareConfig(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestNotFoundIsNotRetried(t *testing.T) {
	c, hits := newTestServer(t, "/elsewhere", http.StatusOK, "{}")

	_, err := c.FetchHardwareConfig(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestServerErrorIsRetried(t *testing.T) {
	c, hits := newTestServer(t, SchemaPath, http.StatusInternalServerError, "oops")
	c.MaxRetries = 2

	_, err := c.FetchSchema(context.Background())
	require.Error(t, err)
	assert.True(t, IsHTTPError(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestMalformedHardwareConfig(t *testing.T) {
	c, hits := newTestServer(t, HardwareConfigPath, http.StatusOK, "{not json")

	_, err := c.FetchHardwareConfig(context.Background())
	require.Error(t, err)
	assert.True(t, IsParseError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestFetchSchemaHardware(t *testing.T) {
	c, _ := newTestServer(t, SchemaPath, http.StatusOK, schemaJSON)

	raw, err := c.FetchSchema(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, schemaJSON, string(raw))

	cfg, err := c.FetchSchemaHardware(context.Background())
	require.NoError(t, err)
	require.Len(t, cfg.Outputs, 1)
	assert.Equal(t, "nav", cfg.Outputs[0].ID)
}

func TestFetchCancelled(t *testing.T) {
	c, _ := newTestServer(t, SchemaPath, http.StatusServiceUnavailable, "")
	c.MaxRetries = 100
	c.RetryDelay = time.Hour
	c.MaxRetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.FetchSchema(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
