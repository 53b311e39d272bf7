package prediction

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestCityFeature(t *testing.T) {
	assert.Equal(t, "city_mumbai", CityFeature("mumbai"))
	assert.Equal(t, "city_mumbai", CityFeature("  Mumbai "))
	assert.Equal(t, "city_new delhi", CityFeature("New Delhi"))
}

func TestBuildFeatures(t *testing.T) {
	got := BuildFeatures(Input{City: "Delhi", Humidity: f64(58)})
	assert.Equal(t, map[string]float64{"city_delhi": 1, "humidity": 58}, got)

	got = BuildFeatures(Input{City: "pune", Humidity: f64(40), TemperatureCelsius: f64(31.5)})
	assert.Equal(t, map[string]float64{"city_pune": 1, "humidity": 40, "temperature_celsius": 31.5}, got)
}

func TestAlign(t *testing.T) {
	m, err := LoadModel(filepath.Join("testdata", "regression.json"))
	require.NoError(t, err)

	t.Run("known city fills its column", func(t *testing.T) {
		row, dropped := Align(m, BuildFeatures(Input{City: "mumbai", Humidity: f64(60)}))
		assert.Equal(t, []float64{60, 0, 0, 1}, row)
		assert.Empty(t, dropped)
	})

	t.Run("missing features are zero", func(t *testing.T) {
		row, dropped := Align(m, map[string]float64{"city_delhi": 1})
		assert.Equal(t, []float64{0, 0, 1, 0}, row)
		assert.Empty(t, dropped)
	})

	t.Run("unknown features are dropped", func(t *testing.T) {
		row, dropped := Align(m, BuildFeatures(Input{City: "Shimla", Humidity: f64(70), TemperatureCelsius: f64(12)}))
		assert.Equal(t, []float64{70, 0, 0, 0}, row)
		assert.Equal(t, []string{"city_shimla", "temperature_celsius"}, dropped)
	})

	t.Run("row length follows the model", func(t *testing.T) {
		row, _ := Align(m, nil)
		assert.Len(t, row, len(m.Features()))
	})
}
