package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
)

// Kind identifies which estimator family an artifact holds.
type Kind string

const (
	KindRegression     Kind = "regression"
	KindClassification Kind = "classification"
)

// artifact is the on-disk JSON layout written by the training tooling.
type artifact struct {
	Kind         Kind            `json:"kind"`
	Target       string          `json:"target"`
	Features     []string        `json:"features"`
	Coefficients json.RawMessage `json:"coefficients"`
	Intercept    float64         `json:"intercept"`
	Intercepts   []float64       `json:"intercepts"`
	Classes      []string        `json:"classes"`
}

// Model is a fitted linear estimator with a fixed, ordered feature list.
// It is immutable once loaded and safe for concurrent use.
type Model struct {
	kind     Kind
	target   string
	features []string
	index    map[string]int

	// regression
	weights   []float64
	intercept float64

	// classification, one row per class
	classes    []string
	classW     [][]float64
	intercepts []float64
}

// LoadModel reads and validates a model artifact from path.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	return ParseModel(data)
}

// ParseModel decodes and validates a model artifact.
func ParseModel(data []byte) (*Model, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if len(a.Features) == 0 {
		return nil, errors.New("model artifact declares no features")
	}

	m := &Model{
		kind:     a.Kind,
		target:   strings.TrimSpace(a.Target),
		features: append([]string(nil), a.Features...),
		index:    make(map[string]int, len(a.Features)),
	}
	if m.target == "" {
		m.target = "value"
	}
	for i, f := range a.Features {
		if f == "" {
			return nil, fmt.Errorf("model feature %d is empty", i)
		}
		if _, dup := m.index[f]; dup {
			return nil, fmt.Errorf("model feature %q is duplicated", f)
		}
		m.index[f] = i
	}

	switch a.Kind {
	case KindRegression:
		if err := json.Unmarshal(a.Coefficients, &m.weights); err != nil {
			return nil, fmt.Errorf("decode regression coefficients: %w", err)
		}
		if len(m.weights) != len(a.Features) {
			return nil, fmt.Errorf("regression has %d coefficients for %d features", len(m.weights), len(a.Features))
		}
		m.intercept = a.Intercept
	case KindClassification:
		if err := json.Unmarshal(a.Coefficients, &m.classW); err != nil {
			return nil, fmt.Errorf("decode classification coefficients: %w", err)
		}
		if len(a.Classes) < 2 {
			return nil, errors.New("classification needs at least two classes")
		}
		if len(m.classW) != len(a.Classes) || len(a.Intercepts) != len(a.Classes) {
			return nil, fmt.Errorf("classification has %d classes, %d coefficient rows and %d intercepts",
				len(a.Classes), len(m.classW), len(a.Intercepts))
		}
		for i, row := range m.classW {
			if len(row) != len(a.Features) {
				return nil, fmt.Errorf("class %q has %d coefficients for %d features", a.Classes[i], len(row), len(a.Features))
			}
		}
		m.classes = append([]string(nil), a.Classes...)
		m.intercepts = append([]float64(nil), a.Intercepts...)
	default:
		return nil, fmt.Errorf("unknown model kind %q", a.Kind)
	}

	return m, nil
}

// Kind reports the estimator family.
func (m *Model) Kind() Kind { return m.kind }

// Target is the name of the predicted attribute, e.g. "temperature".
func (m *Model) Target() string { return m.target }

// Features returns a copy of the training-time feature order.
func (m *Model) Features() []string { return append([]string(nil), m.features...) }

// Classes returns a copy of the class labels; nil for regression models.
func (m *Model) Classes() []string { return append([]string(nil), m.classes...) }

// Has reports whether feature is part of the model's input schema.
func (m *Model) Has(feature string) bool {
	_, ok := m.index[feature]
	return ok
}

// regress scores an aligned row with the regression weights.
func (m *Model) regress(row []float64) (float64, error) {
	y := dot(m.weights, row) + m.intercept
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, errors.New("regression produced a non-finite value")
	}
	return y, nil
}

// classify returns the label with the highest linear score. Ties go to the
// class listed first.
func (m *Model) classify(row []float64) (string, error) {
	best, bestScore := -1, math.Inf(-1)
	for i, w := range m.classW {
		s := dot(w, row) + m.intercepts[i]
		if math.IsNaN(s) {
			return "", fmt.Errorf("class %q produced a non-finite score", m.classes[i])
		}
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return "", errors.New("no class could be scored")
	}
	return m.classes[best], nil
}

func dot(w, x []float64) float64 {
	var sum float64
	for i := range w {
		sum += w[i] * x[i]
	}
	return sum
}
