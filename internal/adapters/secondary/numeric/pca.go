package numeric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// PCA projects centered rows onto the fitted principal axes. Components is
// k x d with one axis per row.
type PCA struct {
	Mean              []float64   `json:"mean"`
	Components        [][]float64 `json:"components"`
	ExplainedVariance []float64   `json:"explained_variance,omitempty"`
	Whiten            bool        `json:"whiten,omitempty"`

	axes *mat.Dense
}

func (p *PCA) validate() error {
	d := len(p.Mean)
	if d == 0 || len(p.Components) == 0 {
		return fmt.Errorf("pca has no fitted components")
	}
	data := make([]float64, 0, len(p.Components)*d)
	for i, c := range p.Components {
		if len(c) != d {
			return fmt.Errorf("pca component %d has %d values, mean has %d", i, len(c), d)
		}
		data = append(data, c...)
	}
	if p.Whiten && len(p.ExplainedVariance) != len(p.Components) {
		return fmt.Errorf("pca whitening needs %d explained variances, got %d",
			len(p.Components), len(p.ExplainedVariance))
	}
	p.axes = mat.NewDense(len(p.Components), d, data)
	return nil
}

func (p *PCA) InputWidth() int  { return len(p.Mean) }
func (p *PCA) OutputWidth() int { return len(p.Components) }

func (p *PCA) Transform(rows [][]float64) ([][]float64, error) {
	x, err := toDense(rows, len(p.Mean))
	if err != nil {
		return nil, err
	}
	x.Apply(func(_, j int, v float64) float64 { return v - p.Mean[j] }, x)

	var out mat.Dense
	out.Mul(x, p.axes.T())

	if p.Whiten {
		out.Apply(func(_, j int, v float64) float64 {
			if p.ExplainedVariance[j] <= 0 {
				return v
			}
			return v / math.Sqrt(p.ExplainedVariance[j])
		}, &out)
	}
	return fromDense(&out), nil
}
