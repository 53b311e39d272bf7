//go:build openweather

package openweather

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-pipeline-service/internal/domain"
	"github.com/couchcryptid/weather-pipeline-service/internal/observability"
)

const liveBaseURL = "https://api.openweathermap.org/data/2.5"

// These tests hit the real OpenWeatherMap API and require a valid
// OPENWEATHER_API_KEY env var.
// Run with: go test -tags=openweather ./internal/adapter/openweather/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("OPENWEATHER_API_KEY")
	if key == "" {
		t.Fatal("OPENWEATHER_API_KEY must be set to run smoke tests")
	}
	return NewClient(key, liveBaseURL, 10*time.Second, observability.NewMetricsForTesting(), discardLogger(), nil)
}

func TestSmoke_FetchAndNormalize(t *testing.T) {
	c := smokeClient(t)

	raw, err := c.Fetch(context.Background(), "delhi")
	require.NoError(t, err)

	rec := domain.Normalize(raw)
	require.NotNil(t, rec)
	assert.Equal(t, "Delhi", rec.City)
	require.NotNil(t, rec.Country)
	assert.Equal(t, "IN", *rec.Country)
	assert.Equal(t, 19800, rec.TimezoneOffsetSeconds)
	require.NotNil(t, rec.TemperatureCelsius)
	assert.InDelta(t, 25, *rec.TemperatureCelsius, 30, "temperature should be plausible in Celsius")
	require.NotNil(t, rec.Coordinates.Lat)
	assert.InDelta(t, 28.6, *rec.Coordinates.Lat, 0.5)
}

func TestSmoke_UnknownCity(t *testing.T) {
	c := smokeClient(t)

	_, err := c.Fetch(context.Background(), "xyznonexistent99")
	require.Error(t, err)
}

func TestSmoke_BadKey(t *testing.T) {
	c := NewClient("not-a-real-key", liveBaseURL, 10*time.Second, observability.NewMetricsForTesting(), discardLogger(), nil)

	_, err := c.Fetch(context.Background(), "delhi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
