package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/weather-pipeline-service/internal/domain"
	"github.com/couchcryptid/weather-pipeline-service/internal/observability"
)

var (
	// ErrUnavailable is returned for every prediction when no model is loaded.
	ErrUnavailable = errors.New("ML model not loaded")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid prediction input")
	// ErrFeatureMismatch is returned in strict mode when the request carries
	// features the model was not trained on.
	ErrFeatureMismatch = errors.New("feature mismatch")
	// ErrScoring wraps estimator failures, including recovered panics.
	ErrScoring = errors.New("scoring failed")
)

// Input is a single prediction request.
type Input struct {
	City               string   `json:"city" validate:"required"`
	Humidity           *float64 `json:"humidity" validate:"required,gte=0,lte=100"`
	TemperatureCelsius *float64 `json:"temperature_celsius,omitempty" validate:"omitempty,gte=-100,lte=100"`
}

// Prediction is the scored output. Exactly one of Value or Label is set.
type Prediction struct {
	Target string
	Kind   Kind
	Value  *float64
	Label  *string
}

// Key is the response field name, e.g. "predicted_temperature".
func (p Prediction) Key() string {
	return "predicted_" + p.Target
}

// Result returns the scored value as a plain JSON-friendly value.
func (p Prediction) Result() any {
	if p.Label != nil {
		return *p.Label
	}
	if p.Value != nil {
		return *p.Value
	}
	return nil
}

// Predictor scores requests against a loaded model. A nil model means the
// artifact could not be loaded; every call then returns ErrUnavailable.
type Predictor struct {
	model    *Model
	strict   bool
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewPredictor creates a Predictor. model may be nil.
func NewPredictor(model *Model, strict bool, logger *slog.Logger, metrics *observability.Metrics) *Predictor {
	return &Predictor{
		model:    model,
		strict:   strict,
		validate: newValidator(),
		logger:   logger,
		metrics:  metrics,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Available reports whether a model is loaded.
func (p *Predictor) Available() bool {
	return p.model != nil
}

// Predict validates in, aligns its features and scores them.
func (p *Predictor) Predict(_ context.Context, in Input) (Prediction, error) {
	out, err := p.predict(in)
	p.metrics.Predictions.WithLabelValues(predictionOutcome(err)).Inc()
	return out, err
}

func (p *Predictor) predict(in Input) (Prediction, error) {
	if p.model == nil {
		return Prediction{}, ErrUnavailable
	}
	if strings.TrimSpace(in.City) == "" {
		return Prediction{}, fmt.Errorf("%w: city is required", ErrInvalidInput)
	}
	if err := p.validate.Struct(in); err != nil {
		return Prediction{}, fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}

	row, dropped := Align(p.model, BuildFeatures(in))
	if len(dropped) > 0 {
		if p.strict {
			return Prediction{}, fmt.Errorf("%w: model has no feature %s", ErrFeatureMismatch, strings.Join(dropped, ", "))
		}
		p.metrics.DroppedFeatures.Add(float64(len(dropped)))
		p.logger.Warn("features not in model dropped", "features", dropped, "city", in.City)
	}

	return p.score(row)
}

// score runs the estimator, turning panics and non-finite results into errors.
func (p *Predictor) score(row []float64) (out Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrScoring, r)
		}
	}()

	out = Prediction{Target: p.model.target, Kind: p.model.kind}
	switch p.model.kind {
	case KindClassification:
		label, err := p.model.classify(row)
		if err != nil {
			return Prediction{}, fmt.Errorf("%w: %w", ErrScoring, err)
		}
		out.Label = &label
	default:
		y, err := p.model.regress(row)
		if err != nil {
			return Prediction{}, fmt.Errorf("%w: %w", ErrScoring, err)
		}
		y = domain.Round2(y)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return Prediction{}, fmt.Errorf("%w: rounded prediction is not finite", ErrScoring)
		}
		out.Value = &y
	}
	return out, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		default:
			parts = append(parts, fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(parts, "; ")
}

func predictionOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
