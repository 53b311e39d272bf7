package domain

import (
	"math"
	"time"
)

const (
	// absoluteZeroCelsius is the Kelvin-to-Celsius offset.
	absoluteZeroCelsius = 273.15

	// LocalTimeLayout is the layout of the *_local fields in WeatherRecord.
	LocalTimeLayout = "2006-01-02 15:04:05"
)

// Normalize maps one provider payload onto a WeatherRecord.
// It returns nil for a nil or empty payload and never panics on malformed
// fields: values that are missing or of the wrong type become nil.
func Normalize(raw RawObservation) *WeatherRecord {
	if len(raw) == 0 {
		return nil
	}
	m := map[string]any(raw)

	coord := object(m, "coord")
	cond := firstObject(m, "weather")
	main := object(m, "main")
	wind := object(m, "wind")
	clouds := object(m, "clouds")
	sys := object(m, "sys")

	offset := 0
	if tz := integer(m, "timezone"); tz != nil {
		offset = *tz
	}

	rec := &WeatherRecord{
		Coordinates: Coordinates{
			Lon: number(coord, "lon"),
			Lat: number(coord, "lat"),
		},
		Weather: Conditions{
			Main:        str(cond, "main"),
			Description: str(cond, "description"),
			Icon:        str(cond, "icon"),
		},

		TemperatureCelsius: kelvinToCelsius(number(main, "temp")),
		FeelsLikeCelsius:   kelvinToCelsius(number(main, "feels_like")),
		TempMinCelsius:     kelvinToCelsius(number(main, "temp_min")),
		TempMaxCelsius:     kelvinToCelsius(number(main, "temp_max")),

		PressureHPa:     integer(main, "pressure"),
		HumidityPercent: integer(main, "humidity"),

		Wind: Wind{
			SpeedMS:      number(wind, "speed"),
			DirectionDeg: number(wind, "deg"),
			GustMS:       number(wind, "gust"),
		},
		CloudsPercent: integer(clouds, "all"),
		VisibilityM:   integer(m, "visibility"),

		SunriseLocal:   epochToLocal(number(sys, "sunrise"), offset),
		SunsetLocal:    epochToLocal(number(sys, "sunset"), offset),
		TimestampLocal: epochToLocal(number(m, "dt"), offset),

		TimezoneOffsetSeconds: offset,
		Country:               str(sys, "country"),
	}
	if name := str(m, "name"); name != nil {
		rec.City = *name
	}
	return rec
}

// KelvinToCelsius converts a Kelvin temperature to Celsius rounded to two decimals.
func KelvinToCelsius(k float64) float64 {
	return Round2(k - absoluteZeroCelsius)
}

// Round2 rounds to two decimal places, half away from zero. Applying it to
// its own result returns the same value. Values too large to scale have no
// fractional digits and are returned unchanged.
func Round2(x float64) float64 {
	scaled := x * 100
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return x
	}
	return math.Round(scaled) / 100
}

// UnixToLocal renders a Unix epoch as the local civil time of a zone that is
// offsetSeconds east of UTC. An epoch of 0 is the provider's "not supplied"
// sentinel and yields nil regardless of the offset.
func UnixToLocal(epoch int64, offsetSeconds int) *string {
	if epoch == 0 {
		return nil
	}
	return formatLocal(epoch, offsetSeconds)
}

func formatLocal(epoch int64, offsetSeconds int) *string {
	s := time.Unix(epoch+int64(offsetSeconds), 0).UTC().Format(LocalTimeLayout)
	return &s
}

func kelvinToCelsius(k *float64) *float64 {
	if k == nil {
		return nil
	}
	c := KelvinToCelsius(*k)
	return &c
}

// epochToLocal treats only an exact 0 as absent. Fractional epochs are floored
// to the whole second they fall in.
func epochToLocal(epoch *float64, offsetSeconds int) *string {
	if epoch == nil || *epoch == 0 {
		return nil
	}
	return formatLocal(int64(math.Floor(*epoch)), offsetSeconds)
}
