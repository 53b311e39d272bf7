// Command mockowm serves recorded OpenWeatherMap current-weather payloads so
// the service can be run locally without an API key. Point the service at it
// with OPENWEATHER_BASE_URL=http://localhost:8081.
//
// With -records-out it instead normalizes every fixture through the domain
// package and writes the resulting records, which is handy for regenerating
// dashboard fixtures.
//
// Usage:
//
//	go run ./cmd/mockowm -fixtures data/mock/observations.json -addr :8081 -fail assam
//	go run ./cmd/mockowm -fixtures data/mock/observations.json -records-out data/mock/records.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/couchcryptid/weather-pipeline-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mockowm failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	fixtures := flag.String("fixtures", "data/mock/observations.json", "JSON object of recorded payloads keyed by city")
	addr := flag.String("addr", ":8081", "listen address")
	fail := flag.String("fail", "", "comma-separated cities that answer with HTTP 500")
	recordsOut := flag.String("records-out", "", "write normalized records to this path and exit")
	flag.Parse()

	payloads, err := loadFixtures(*fixtures)
	if err != nil {
		return err
	}

	if *recordsOut != "" {
		return writeRecords(*recordsOut, payloads)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newHandler(payloads, splitList(*fail)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("mock openweathermap listening", "addr", *addr, "cities", len(payloads))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func loadFixtures(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var payloads map[string]json.RawMessage
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return payloads, nil
}

// newHandler answers GET /weather?q=<city>&appid=<key> the way the real
// endpoint does for the cases the service cares about.
func newHandler(payloads map[string]json.RawMessage, failing []string) http.Handler {
	fail := make(map[string]bool, len(failing))
	for _, c := range failing {
		fail[c] = true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /weather", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		city := strings.ToLower(strings.TrimSpace(q.Get("q")))
		w.Header().Set("Content-Type", "application/json")

		switch {
		case q.Get("appid") == "":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key."}`))
		case fail[city]:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"cod":500,"message":"Internal error"}`))
		default:
			body, ok := payloads[city]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
				return
			}
			_, _ = w.Write(body)
		}
	})
	return mux
}

func writeRecords(path string, payloads map[string]json.RawMessage) error {
	cities := make([]string, 0, len(payloads))
	for c := range payloads {
		cities = append(cities, c)
	}
	sort.Strings(cities)

	records := make([]domain.WeatherRecord, 0, len(cities))
	for _, c := range cities {
		var raw domain.RawObservation
		if err := json.Unmarshal(payloads[c], &raw); err != nil {
			return fmt.Errorf("decode fixture %s: %w", c, err)
		}
		rec := domain.Normalize(raw)
		if rec == nil {
			slog.Warn("fixture skipped", "city", c)
			continue
		}
		records = append(records, *rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // fixture output
		return fmt.Errorf("write records: %w", err)
	}
	slog.Info("wrote records", "path", path, "count", len(records))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
