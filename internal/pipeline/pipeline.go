package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-pipeline-service/internal/domain"
	"github.com/couchcryptid/weather-pipeline-service/internal/observability"
)

// Fetcher retrieves the raw provider payload for one city.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (domain.RawObservation, error)
}

// BatchLoader publishes the records of a completed run to a downstream sink.
type BatchLoader interface {
	LoadBatch(ctx context.Context, records []domain.WeatherRecord) error
}

var errEmptyPayload = errors.New("empty payload")

// Pipeline runs the fetch-normalize loop over a list of cities.
type Pipeline struct {
	fetcher Fetcher
	loader  BatchLoader
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	// starved is set when the latest run produced no records for a non-empty
	// city list, typically because the API key is wrong.
	starved atomic.Bool
}

// New creates a Pipeline. loader may be nil to disable publishing.
func New(f Fetcher, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		fetcher: f,
		loader:  l,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
	}
}

// CheckReadiness returns an error when the most recent run could not produce
// a single record.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.starved.Load() {
		return errors.New("last pipeline run produced no weather records")
	}
	return nil
}

// Run fetches and normalizes every city in order and returns the successful
// records in the same order. Failed cities are logged and omitted. The result
// is never nil.
func (p *Pipeline) Run(ctx context.Context, cities []string) []domain.WeatherRecord {
	start := p.clock.Now()
	records := make([]domain.WeatherRecord, 0, len(cities))

	for _, city := range cities {
		rec, err := p.process(ctx, city)
		if err != nil {
			p.logger.Warn("city skipped", "city", city, "error", err)
			p.metrics.CitiesDropped.Inc()
			continue
		}
		records = append(records, rec)
	}

	p.metrics.PipelineRuns.Inc()
	p.metrics.RecordsProduced.Add(float64(len(records)))
	p.metrics.RunDuration.Observe(p.clock.Since(start).Seconds())
	p.starved.Store(len(cities) > 0 && len(records) == 0)

	p.publish(ctx, records)

	p.logger.Info("pipeline completed",
		"cities", len(cities),
		"records", len(records),
		"dropped", len(cities)-len(records),
	)
	return records
}

// process fetches and normalizes one city. The record is only returned when
// both steps succeed.
func (p *Pipeline) process(ctx context.Context, city string) (domain.WeatherRecord, error) {
	raw, err := p.fetcher.Fetch(ctx, city)
	if err != nil {
		return domain.WeatherRecord{}, err
	}

	rec := domain.Normalize(raw)
	if rec == nil {
		return domain.WeatherRecord{}, fmt.Errorf("normalize %s: %w", city, errEmptyPayload)
	}
	if rec.City == "" {
		rec.City = city
	}
	return *rec, nil
}

func (p *Pipeline) publish(ctx context.Context, records []domain.WeatherRecord) {
	if p.loader == nil || len(records) == 0 {
		return
	}
	if err := p.loader.LoadBatch(ctx, records); err != nil {
		p.metrics.SinkPublishFailures.Inc()
		p.logger.Error("publish records failed", "error", err, "batch_size", len(records))
	}
}
