package flavors

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"
)

// LinearClassifier is a logistic-regression export: coef is k x d (k = 1 for
// binary models), intercept has k entries, classes optionally relabels the
// output classes.
type LinearClassifier struct {
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
	Classes   []float64   `json:"classes,omitempty"`

	weights *mat.Dense
}

func (m *LinearClassifier) validate() error {
	if len(m.Coef) == 0 || len(m.Coef[0]) == 0 {
		return fmt.Errorf("linear model has no coefficients")
	}
	d := len(m.Coef[0])
	data := make([]float64, 0, len(m.Coef)*d)
	for i, row := range m.Coef {
		if len(row) != d {
			return fmt.Errorf("coef row %d has %d values, want %d", i, len(row), d)
		}
		data = append(data, row...)
	}
	if len(m.Intercept) == 0 {
		m.Intercept = make([]float64, len(m.Coef))
	}
	if len(m.Intercept) != len(m.Coef) {
		return fmt.Errorf("intercept has %d values, coef has %d rows", len(m.Intercept), len(m.Coef))
	}
	if m.Classes != nil && len(m.Classes) != m.nClasses() {
		return fmt.Errorf("classes has %d values, model outputs %d", len(m.Classes), m.nClasses())
	}
	m.weights = mat.NewDense(len(m.Coef), d, data)
	return nil
}

func (m *LinearClassifier) nClasses() int {
	if len(m.Coef) == 1 {
		return 2
	}
	return len(m.Coef)
}

func (m *LinearClassifier) Flavor() string { return Linear }

func (m *LinearClassifier) PredictProba(rows [][]float64) ([][]float64, error) {
	_, d := m.weights.Dims()
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != d {
			return nil, fmt.Errorf("%w: row %d has %d features, model expects %d",
				domain.ErrFeatureMismatch, i, len(row), d)
		}

		var z mat.VecDense
		z.MulVec(m.weights, mat.NewVecDense(d, row))
		scores := make([]float64, z.Len())
		for j := range scores {
			scores[j] = z.AtVec(j) + m.Intercept[j]
		}

		if len(scores) == 1 {
			p := sigmoid(scores[0])
			out[i] = []float64{1 - p, p}
		} else {
			out[i] = softmax(scores)
		}
	}
	return out, nil
}

func (m *LinearClassifier) Predict(rows [][]float64) ([]float64, error) {
	proba, err := m.PredictProba(rows)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(proba, m.Classes), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func softmax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	top := floats.Max(scores)
	for i, s := range scores {
		out[i] = math.Exp(s - top)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// LoadLinear decodes the linear flavor (data: model.json).
func LoadLinear(dir string) (ports.NativeModel, error) {
	path, err := flavorDataPath(dir, Linear, "data", "model.json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m LinearClassifier
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode linear model %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("linear model %s: %w", path, err)
	}
	return &m, nil
}
