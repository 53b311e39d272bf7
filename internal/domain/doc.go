// Package domain models OpenWeatherMap current-weather observations and the
// normalized records the service produces from them.
//
// # Data Source
//
// Observations come from the OpenWeatherMap "current weather data" endpoint,
// https://api.openweathermap.org/data/2.5/weather?q={city}&appid={key}.
// No units parameter is sent, so temperatures arrive in Kelvin.
//
// # Payload Shape
//
// The relevant parts of a response look like:
//
//	{
//	  "coord":   {"lon": 77.22, "lat": 28.67},
//	  "weather": [{"main": "Haze", "description": "haze", "icon": "50d"}],
//	  "main":    {"temp": 303.2, "feels_like": 305.1, "temp_min": 303.2,
//	              "temp_max": 303.2, "pressure": 1004, "humidity": 58},
//	  "visibility": 3000,
//	  "wind":    {"speed": 3.6, "deg": 290, "gust": 5.1},
//	  "clouds":  {"all": 20},
//	  "dt": 1717233000,
//	  "sys":     {"country": "IN", "sunrise": 1717199102, "sunset": 1717249286},
//	  "timezone": 19800,
//	  "name": "Delhi"
//	}
//
// Any of these objects may be missing, and the provider has changed the shape
// across API versions. [Normalize] therefore reads every nested object through
// accessors that substitute an empty object for a missing or wrongly typed one,
// and every leaf through accessors that return nil instead of a zero value.
//
// # Conversions
//
// Temperatures: Celsius = Kelvin - 273.15, rounded to two decimals with
// round-half-away-from-zero (see [Round2]).
//
// Times: "dt", "sys.sunrise" and "sys.sunset" are Unix epochs in UTC.
// "timezone" is the city's offset from UTC in seconds. Local civil time is
// rendered by adding the offset to the epoch and formatting the result as a
// UTC wall clock (see [UnixToLocal]). An epoch of exactly 0 means the field was
// not supplied and renders as null.
//
// Absent numeric fields stay null in the record; a missing "main.temp" never
// becomes -273.15.
package domain
