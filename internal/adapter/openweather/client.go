package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/couchcryptid/weather-pipeline-service/internal/domain"
	"github.com/couchcryptid/weather-pipeline-service/internal/observability"
)

// rejectedKeysToTrip opens the breaker once the provider has rejected the API
// key this many times in a row. Only key rejections count: every later call
// would fail the same way, so an open breaker never changes a run's result.
const rejectedKeysToTrip = 3

var (
	errStatus      = errors.New("unexpected status")
	errKeyRejected = errors.New("api key rejected")
	errNotAnObject = errors.New("response body is not a JSON object")
)

// Client implements pipeline.Fetcher against the OpenWeatherMap current
// weather endpoint. Each Fetch is a single attempt; nothing is retried.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
	clock      clockwork.Clock
}

// NewClient creates an OpenWeatherMap client. The timeout bounds every fetch.
// A nil clock uses the real clock.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger, clock clockwork.Clock) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		breaker: newBreaker(logger),
		metrics: metrics,
		logger:  logger,
		clock:   clock,
	}
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= rejectedKeysToTrip
		},
		// A city-specific failure (404, 5xx, timeout, bad body) says nothing
		// about the next city and must not count towards tripping.
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, errKeyRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Fetch requests the current observation for city and returns the decoded body.
// Any non-200 status, transport error, timeout, or body that is not a JSON
// object is returned as an error.
func (c *Client) Fetch(ctx context.Context, city string) (domain.RawObservation, error) {
	start := c.clock.Now()

	result, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, city)
	})
	c.metrics.UpstreamDuration.Observe(c.clock.Since(start).Seconds())

	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(outcome(err)).Inc()
		c.logger.Warn("weather fetch failed", "city", city, "error", err)
		return nil, fmt.Errorf("fetch %s: %w", city, err)
	}

	c.metrics.UpstreamRequests.WithLabelValues("success").Inc()
	c.logger.Info("weather fetched", "city", city)
	return result.(domain.RawObservation), nil
}

func (c *Client) doRequest(ctx context.Context, city string) (domain.RawObservation, error) {
	params := url.Values{
		"q":     {city},
		"appid": {c.apiKey},
	}
	u := c.baseURL + "/weather?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("openweathermap API error: %w %d: %s", errStatus, resp.StatusCode, body)
		if resp.StatusCode == http.StatusUnauthorized {
			err = fmt.Errorf("%w: %w", errKeyRejected, err)
		}
		return nil, err
	}

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errNotAnObject
	}
	return domain.RawObservation(obj), nil
}

func outcome(err error) string {
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, errStatus):
		return "http_error"
	case errors.Is(err, errNotAnObject), errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "decode_error"
	default:
		return "network_error"
	}
}
