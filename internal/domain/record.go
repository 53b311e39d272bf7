package domain

// RawObservation is one decoded JSON object returned by the provider for a
// single city. Its shape is not guaranteed; read it through the accessors in
// access.go.
type RawObservation map[string]any

// Coordinates holds the city's WGS-84 position as reported by the provider.
type Coordinates struct {
	Lon *float64 `json:"lon"`
	Lat *float64 `json:"lat"`
}

// Conditions is the first entry of the provider's "weather" array.
type Conditions struct {
	Main        *string `json:"main"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

// Wind holds wind measurements in SI units.
type Wind struct {
	SpeedMS      *float64 `json:"speed_m_s"`
	DirectionDeg *float64 `json:"direction_deg"`
	GustMS       *float64 `json:"gust_m_s"`
}

// WeatherRecord is the canonical normalized record for one city.
// Pointer fields are null in JSON when the provider omitted the source value.
type WeatherRecord struct {
	City        string      `json:"city"`
	Coordinates Coordinates `json:"coordinates"`
	Weather     Conditions  `json:"weather"`

	TemperatureCelsius *float64 `json:"temperature_celsius"`
	FeelsLikeCelsius   *float64 `json:"feels_like_celsius"`
	TempMinCelsius     *float64 `json:"temp_min_celsius"`
	TempMaxCelsius     *float64 `json:"temp_max_celsius"`

	PressureHPa     *int `json:"pressure_hpa"`
	HumidityPercent *int `json:"humidity_percent"`

	Wind          Wind `json:"wind"`
	CloudsPercent *int `json:"clouds_percent"`
	VisibilityM   *int `json:"visibility_m"`

	SunriseLocal   *string `json:"sunrise_local"`
	SunsetLocal    *string `json:"sunset_local"`
	TimestampLocal *string `json:"timestamp_local"`

	TimezoneOffsetSeconds int     `json:"timezone_offset_seconds"`
	Country               *string `json:"country"`
}
