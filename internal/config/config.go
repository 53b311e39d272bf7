package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultCities is the allow-list of cities fetched on every pipeline run.
var DefaultCities = []string{
	"ahmedabad", "assam", "bengaluru", "chennai", "delhi",
	"kolkata", "mumbai", "panaji", "pune", "shimla",
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	// OpenWeatherMap upstream configuration.
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	OpenWeatherTimeout time.Duration
	Cities             []string

	// Model artifact configuration.
	ModelPath           string
	ModelStrictFeatures bool

	// Optional Kafka record sink.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	// RunInterval schedules background pipeline runs. Zero disables them.
	RunInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// The OpenWeatherMap API key has no default: a missing key is a startup error.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	owTimeout, err := parsePositiveDuration("OPENWEATHER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	runInterval, err := parseRunInterval()
	if err != nil {
		return nil, err
	}

	strict, err := parseBool("MODEL_STRICT_FEATURES", false)
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("API_KEY"))
	}

	brokers := splitList(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		OpenWeatherAPIKey:  apiKey,
		OpenWeatherBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"), "/"),
		OpenWeatherTimeout: owTimeout,
		Cities:             parseCities(os.Getenv("CITIES")),

		ModelPath:           sharedcfg.EnvOrDefault("MODEL_PATH", "models/model.json"),
		ModelStrictFeatures: strict,

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   brokers,
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "weather-records"),

		RunInterval: runInterval,
	}

	if cfg.OpenWeatherAPIKey == "" {
		return nil, errors.New("OPENWEATHER_API_KEY is required")
	}
	if len(cfg.Cities) == 0 {
		return nil, errors.New("CITIES must list at least one city")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseRunInterval() (time.Duration, error) {
	s := os.Getenv("RUN_INTERVAL")
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.New("invalid RUN_INTERVAL")
	}
	if d > 0 && d < time.Minute {
		return 0, errors.New("RUN_INTERVAL must be at least 1m")
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return def, nil
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s", key)
	}
}

// parseCities splits a comma-separated city list, lowercasing and trimming
// each entry. An empty value yields DefaultCities.
func parseCities(s string) []string {
	if strings.TrimSpace(s) == "" {
		return append([]string(nil), DefaultCities...)
	}
	var cities []string
	for _, c := range strings.Split(s, ",") {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			cities = append(cities, c)
		}
	}
	return cities
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
