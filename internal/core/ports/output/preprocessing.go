package ports

// Transformer is a fitted, stateless-at-inference transform (scaler, reducer).
type Transformer interface {
	Transform(rows [][]float64) ([][]float64, error)
	InputWidth() int
	OutputWidth() int
}

// PreprocessingDecoder reads fitted preprocessing artifacts from disk.
type PreprocessingDecoder interface {
	DecodeScaler(path string) (Transformer, error)
	DecodeReducer(path string) (Transformer, error)
	DecodeFeatureNames(path string) ([]string, error)
}
