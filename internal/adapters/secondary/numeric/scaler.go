package numeric

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"card-approval-service/internal/core/domain"
)

// StandardScaler centers each column on its training mean and divides by
// its training standard deviation.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) validate() error {
	if len(s.Mean) == 0 {
		return fmt.Errorf("scaler has no fitted columns")
	}
	if len(s.Scale) != len(s.Mean) {
		return fmt.Errorf("scaler mean has %d columns, scale has %d", len(s.Mean), len(s.Scale))
	}
	// Constant training columns have zero variance and pass through centered.
	for i, v := range s.Scale {
		if v == 0 {
			s.Scale[i] = 1
		}
	}
	return nil
}

func (s *StandardScaler) InputWidth() int  { return len(s.Mean) }
func (s *StandardScaler) OutputWidth() int { return len(s.Mean) }

func (s *StandardScaler) Transform(rows [][]float64) ([][]float64, error) {
	x, err := toDense(rows, len(s.Mean))
	if err != nil {
		return nil, err
	}

	x.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return fromDense(x), nil
}

func toDense(rows [][]float64, width int) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", domain.ErrFeatureMismatch)
	}
	data := make([]float64, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", domain.ErrFeatureMismatch, i, len(row), width)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), width, data), nil
}

func fromDense(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
