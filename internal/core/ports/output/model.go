package ports

// Predictor is the flavor-agnostic predict capability of a loaded model.
// Predict returns one raw class value per row.
type Predictor interface {
	Predict(rows [][]float64) ([]float64, error)
}

// GenericModel is the predictor loaded through the model descriptor. It
// reports the flavors the descriptor declares so a native model picked by
// the fallback chain can be cross-checked against it.
type GenericModel interface {
	Predictor
	DeclaredFlavors() []string
}

// NativeModel is a model decoded by a flavor-specific loader. It exposes the
// class probability distribution for each row.
type NativeModel interface {
	Predictor
	PredictProba(rows [][]float64) ([][]float64, error)
	Flavor() string
}

// FlavorLoader decodes the model directory in one native format. It returns
// an error wrapping domain.ErrFlavorMismatch when the directory does not hold
// a model of its flavor.
type FlavorLoader func(dir string) (NativeModel, error)

// Flavor pairs a flavor tag with its loader. Loaders are tried in slice order.
type Flavor struct {
	Name string
	Load FlavorLoader
}

// GenericLoader loads the flavor-agnostic predictor from a model directory.
type GenericLoader func(dir string) (GenericModel, error)
