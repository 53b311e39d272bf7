// Command modelcheck loads a model artifact and checks that it can serve the
// configured cities: the artifact parses, every city has a one-hot column, and
// a sample request for each city scores to a finite, repeatable value.
//
// Usage:
//
//	go run ./cmd/modelcheck -model models/model.json
//	go run ./cmd/modelcheck -model models/model.json -cities delhi,mumbai -strict
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/weather-pipeline-service/internal/config"
	"github.com/couchcryptid/weather-pipeline-service/internal/observability"
	"github.com/couchcryptid/weather-pipeline-service/internal/prediction"
)

const sampleHumidity = 60.0

// phase tracks pass/fail for a check phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	modelPath := flag.String("model", "models/model.json", "path to the model artifact")
	cityList := flag.String("cities", strings.Join(config.DefaultCities, ","), "comma-separated cities the service will be asked about")
	strict := flag.Bool("strict", false, "treat features unknown to the model as errors")
	flag.Parse()

	os.Exit(run(os.Stdout, *modelPath, splitCities(*cityList), *strict))
}

func run(out io.Writer, modelPath string, cities []string, strict bool) int {
	fmt.Fprintln(out, "=== Model Artifact Check ===")
	fmt.Fprintln(out)

	model, err := prediction.LoadModel(modelPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Artifact: %s (%s, target %q, %d features)\n",
		modelPath, model.Kind(), model.Target(), len(model.Features()))

	phases := []*phase{
		checkCityCoverage(model, cities),
		checkScoring(model, cities, strict),
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll checks passed.")
		return 0
	}
	fmt.Fprintln(out, "\nCheck FAILED.")
	return 1
}

func checkCityCoverage(model *prediction.Model, cities []string) *phase {
	p := &phase{name: "City coverage"}
	for _, c := range cities {
		if f := prediction.CityFeature(c); !model.Has(f) {
			p.errorf("%s: model has no %q column", c, f)
		}
	}
	return p
}

func checkScoring(model *prediction.Model, cities []string, strict bool) *phase {
	p := &phase{name: "Sample scoring"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	predictor := prediction.NewPredictor(model, strict, logger, observability.NewMetricsForTesting())

	humidity := sampleHumidity
	for _, c := range cities {
		in := prediction.Input{City: c, Humidity: &humidity}
		first, err := predictor.Predict(context.Background(), in)
		if err != nil {
			p.errorf("%s: %v", c, err)
			continue
		}
		again, err := predictor.Predict(context.Background(), in)
		if err != nil || first.Result() != again.Result() {
			p.errorf("%s: repeated scoring gave %v then %v", c, first.Result(), again.Result())
		}
	}
	return p
}

func splitCities(s string) []string {
	var cities []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			cities = append(cities, c)
		}
	}
	return cities
}
