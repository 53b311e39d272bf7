package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-pipeline-service/internal/config"
	"github.com/couchcryptid/weather-pipeline-service/internal/domain"
	"github.com/couchcryptid/weather-pipeline-service/internal/prediction"
)

const (
	rootMessage        = "Weather pipeline backend is live. Use /run to fetch weather data."
	runMessage         = "Weather pipeline completed successfully."
	maxPredictBody     = 1 << 20
	minWriteTimeout    = 10 * time.Second
	writeTimeoutMargin = 5 * time.Second
)

// Runner executes one pipeline pass over a city list.
type Runner interface {
	Run(ctx context.Context, cities []string) []domain.WeatherRecord
}

// Predictor scores a single prediction request.
type Predictor interface {
	Available() bool
	Predict(ctx context.Context, in prediction.Input) (prediction.Prediction, error)
}

// Server exposes the pipeline, prediction, health, readiness, and metrics
// HTTP endpoints.
type Server struct {
	httpServer *http.Server
	runner     Runner
	predictor  Predictor
	cities     []string
	logger     *slog.Logger
}

type runResponse struct {
	Message string                 `json:"message"`
	Results []domain.WeatherRecord `json:"results"`
}

// NewServer creates an HTTP server for cfg.HTTPAddr.
func NewServer(cfg *config.Config, runner Runner, predictor Predictor, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      cors(cfg.CORSAllowedOrigins, requestLogger(logger, mux)),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: writeTimeout(cfg),
			IdleTimeout:  60 * time.Second,
		},
		runner:    runner,
		predictor: predictor,
		cities:    append([]string(nil), cfg.Cities...),
		logger:    logger,
	}

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /run", s.handleRun)
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// writeTimeout leaves room for /run, which makes one upstream call per city
// in sequence.
func writeTimeout(cfg *config.Config) time.Duration {
	d := time.Duration(len(cfg.Cities))*cfg.OpenWeatherTimeout + writeTimeoutMargin
	return max(d, minWriteTimeout)
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	records := s.runner.Run(r.Context(), s.cities)
	writeJSON(w, http.StatusOK, runResponse{Message: runMessage, Results: records})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	// An unloaded model answers the same way whatever the body holds.
	if !s.predictor.Available() {
		writeError(w, http.StatusOK, prediction.ErrUnavailable)
		return
	}

	var in prediction.Input
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictBody)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	out, err := s.predictor.Predict(r.Context(), in)
	if err != nil {
		status := predictStatus(err)
		if status >= http.StatusUnprocessableEntity {
			s.logger.Warn("prediction failed", "city", in.City, "error", err)
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{out.Key(): out.Result()})
}

func predictStatus(err error) int {
	switch {
	case errors.Is(err, prediction.ErrUnavailable):
		return http.StatusOK
	case errors.Is(err, prediction.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
