package flavors

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitryikh/leaves"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"
)

// Flavor tags, in the order the native chain tries them.
const (
	XGBoost  = "xgboost"
	LightGBM = "lightgbm"
	Sklearn  = "sklearn"
	Linear   = "linear"
)

// DefaultFlavors is the native loader chain.
func DefaultFlavors() []ports.Flavor {
	return []ports.Flavor{
		{Name: XGBoost, Load: LoadXGBoost},
		{Name: LightGBM, Load: LoadLightGBM},
		{Name: Sklearn, Load: LoadSklearn},
		{Name: Linear, Load: LoadLinear},
	}
}

// TreeEnsemble serves gradient-boosted trees decoded by leaves. The ensemble
// is loaded with its output transformation, so raw outputs are already
// probabilities: one value for binary models, one per class otherwise.
type TreeEnsemble struct {
	ensemble *leaves.Ensemble
	flavor   string
}

func (m *TreeEnsemble) Flavor() string { return m.flavor }

func (m *TreeEnsemble) PredictProba(rows [][]float64) ([][]float64, error) {
	groups := m.ensemble.NOutputGroups()
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != m.ensemble.NFeatures() {
			return nil, fmt.Errorf("%w: row %d has %d features, model expects %d",
				domain.ErrFeatureMismatch, i, len(row), m.ensemble.NFeatures())
		}
		raw := make([]float64, groups)
		if err := m.ensemble.Predict(row, 0, raw); err != nil {
			return nil, fmt.Errorf("%s predict: %w", m.flavor, err)
		}
		if groups == 1 {
			out[i] = []float64{1 - raw[0], raw[0]}
		} else {
			out[i] = raw
		}
	}
	return out, nil
}

func (m *TreeEnsemble) Predict(rows [][]float64) ([]float64, error) {
	proba, err := m.PredictProba(rows)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(proba, nil), nil
}

type ensembleDecoder func(path string, loadTransformation bool) (*leaves.Ensemble, error)

// treeLoader builds a FlavorLoader that reads the data file declared under
// flavor in MLmodel, or fallback when the descriptor names none.
func treeLoader(flavor, dataKey, fallback string, decode ensembleDecoder) ports.FlavorLoader {
	return func(dir string) (ports.NativeModel, error) {
		path, err := flavorDataPath(dir, flavor, dataKey, fallback)
		if err != nil {
			return nil, err
		}
		ensemble, err := decode(path, true)
		if err != nil {
			return nil, fmt.Errorf("decode %s model %s: %w", flavor, path, err)
		}
		return &TreeEnsemble{ensemble: ensemble, flavor: flavor}, nil
	}
}

var (
	LoadXGBoost  = treeLoader(XGBoost, "data", "model.xgb", leaves.XGEnsembleFromFile)
	LoadLightGBM = treeLoader(LightGBM, "data", "model.lgb", leaves.LGEnsembleFromFile)
	LoadSklearn  = treeLoader(Sklearn, "pickled_model", "model.pkl", leaves.SKEnsembleFromFile)
)

// flavorDataPath resolves the model file of flavor, failing with
// ErrFlavorMismatch when the model was not logged in that flavor.
func flavorDataPath(dir, flavor, dataKey, fallback string) (string, error) {
	desc, err := ReadDescriptor(dir)
	if err != nil {
		return "", err
	}
	if !desc.Declares(flavor) {
		return "", fmt.Errorf("%w: %s", domain.ErrFlavorMismatch, flavor)
	}

	name := desc.Option(flavor, dataKey)
	if name == "" {
		name = fallback
	}
	path := filepath.Join(dir, filepath.FromSlash(name))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s data file %s missing", domain.ErrFlavorMismatch, flavor, name)
		}
		return "", err
	}
	return path, nil
}

// argmaxLabels maps each distribution to its most likely class. classes
// relabels class indices when non-nil.
func argmaxLabels(proba [][]float64, classes []float64) []float64 {
	labels := make([]float64, len(proba))
	for i, p := range proba {
		best := 0
		for j := range p {
			if p[j] > p[best] {
				best = j
			}
		}
		if classes != nil {
			labels[i] = classes[best]
		} else {
			labels[i] = float64(best)
		}
	}
	return labels
}
