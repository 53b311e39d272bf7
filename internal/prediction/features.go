package prediction

import (
	"sort"
	"strings"
)

const (
	featureHumidity    = "humidity"
	featureTemperature = "temperature_celsius"
	cityFeaturePrefix  = "city_"
)

// CityFeature is the one-hot column name for a city.
func CityFeature(city string) string {
	return cityFeaturePrefix + strings.ToLower(strings.TrimSpace(city))
}

// BuildFeatures turns a request into named feature values.
func BuildFeatures(in Input) map[string]float64 {
	f := map[string]float64{
		CityFeature(in.City): 1,
	}
	if in.Humidity != nil {
		f[featureHumidity] = *in.Humidity
	}
	if in.TemperatureCelsius != nil {
		f[featureTemperature] = *in.TemperatureCelsius
	}
	return f
}

// Align lays out features in the model's training-time order. Columns the
// request does not supply are zero. Features the model does not know are
// returned sorted in dropped.
func Align(m *Model, features map[string]float64) (row []float64, dropped []string) {
	row = make([]float64, len(m.features))
	for name, v := range features {
		i, ok := m.index[name]
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		row[i] = v
	}
	sort.Strings(dropped)
	return row, dropped
}
