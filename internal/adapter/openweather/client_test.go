package openweather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-pipeline-service/internal/observability"
)

const (
	testKey           = "test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string, timeout time.Duration) *Client {
	return NewClient(testKey, baseURL, timeout, observability.NewMetricsForTesting(), discardLogger(), nil)
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "delhi", r.URL.Query().Get("q"))
		assert.Equal(t, testKey, r.URL.Query().Get("appid"))
		assert.Empty(t, r.URL.Query().Get("units"), "temperatures must arrive in Kelvin")

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"name":"Delhi","main":{"temp":300.0,"humidity":80}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	raw, err := c.Fetch(context.Background(), "delhi")
	require.NoError(t, err)

	assert.Equal(t, "Delhi", raw["name"])
	main, ok := raw["main"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 300.0, main["temp"])
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues("success")))
}

func TestClient_Fetch_EscapesCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "new delhi,in", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"name":"New Delhi"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background(), "new delhi,in")
	require.NoError(t, err)
}

func TestClient_Fetch_Non200(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"cod":"x","message":"nope"}`))
			}))
			defer srv.Close()

			c := testClient(srv.URL, 5*time.Second)
			raw, err := c.Fetch(context.Background(), "assam")
			require.Error(t, err)
			assert.Nil(t, raw)
			assert.Contains(t, err.Error(), "assam")
			assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues("http_error")))
		})
	}
}

func TestClient_Fetch_MalformedBody(t *testing.T) {
	cases := map[string]string{
		"truncated": `{"name":"Delhi"`,
		"not json":  `<html>oops</html>`,
		"array":     `[{"name":"Delhi"}]`,
		"scalar":    `42`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c := testClient(srv.URL, 5*time.Second)
			_, err := c.Fetch(context.Background(), "delhi")
			require.Error(t, err)
			assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues("decode_error")))
		})
	}
}

func TestClient_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 50*time.Millisecond)
	_, err := c.Fetch(context.Background(), "delhi")
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues("network_error")))
}

func TestClient_Fetch_SingleAttempt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background(), "delhi")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClient_Fetch_CityFailuresNeverOpenBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("q") {
		case "delhi":
			_, _ = w.Write([]byte(`{"name":"Delhi"}`))
		case "atlantis":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	for range 10 {
		_, err := c.Fetch(context.Background(), "assam")
		require.Error(t, err)
		_, err = c.Fetch(context.Background(), "atlantis")
		require.Error(t, err)
	}

	raw, err := c.Fetch(context.Background(), "delhi")
	require.NoError(t, err)
	assert.Equal(t, "Delhi", raw["name"])
	assert.Equal(t, 21, calls, "every fetch must reach the upstream")
	assert.Zero(t, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues("circuit_open")))
}

func TestClient_Fetch_BreakerOpensOnRejectedKey(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key."}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	for range rejectedKeysToTrip {
		_, err := c.Fetch(context.Background(), "delhi")
		require.Error(t, err)
		assert.ErrorIs(t, err, errKeyRejected)
	}

	_, err := c.Fetch(context.Background(), "mumbai")
	require.Error(t, err)
	assert.Equal(t, rejectedKeysToTrip, calls, "open breaker must not reach the upstream")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues("circuit_open")))
}

func TestClient_Fetch_DurationUsesClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		clock.Advance(1500 * time.Millisecond)
		_, _ = w.Write([]byte(`{"name":"Pune"}`))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := NewClient(testKey, srv.URL, 5*time.Second, metrics, discardLogger(), clock)
	_, err := c.Fetch(context.Background(), "pune")
	require.NoError(t, err)

	var m dto.Metric
	require.NoError(t, metrics.UpstreamDuration.Write(&m))
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
	assert.InDelta(t, 1.5, m.GetHistogram().GetSampleSum(), 1e-9)
}
