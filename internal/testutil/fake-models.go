package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"
)

// FakeModel answers every row with the same label and distribution.
type FakeModel struct {
	Label      float64
	Proba      []float64
	PredictErr error
	ProbaErr   error
	Flavors    []string
	FlavorName string
	Calls      int
}

func (m *FakeModel) Predict(rows [][]float64) ([]float64, error) {
	m.Calls++
	if m.PredictErr != nil {
		return nil, m.PredictErr
	}
	out := make([]float64, len(rows))
	for i := range out {
		out[i] = m.Label
	}
	return out, nil
}

func (m *FakeModel) PredictProba(rows [][]float64) ([][]float64, error) {
	if m.ProbaErr != nil {
		return nil, m.ProbaErr
	}
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = append([]float64(nil), m.Proba...)
	}
	return out, nil
}

func (m *FakeModel) DeclaredFlavors() []string { return m.Flavors }

func (m *FakeModel) Flavor() string { return m.FlavorName }

// IdentityTransformer passes rows through unchanged after a width check.
type IdentityTransformer struct {
	Width int
}

func (t IdentityTransformer) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != t.Width {
			return nil, fmt.Errorf("%w: got %d columns, want %d", domain.ErrFeatureMismatch, len(row), t.Width)
		}
		out[i] = append([]float64(nil), row...)
	}
	return out, nil
}

func (t IdentityTransformer) InputWidth() int  { return t.Width }
func (t IdentityTransformer) OutputWidth() int { return t.Width }

// FakeDecoder returns fixed transformers regardless of file content.
type FakeDecoder struct {
	Scaler  ports.Transformer
	Reducer ports.Transformer
	Names   []string
	Err     error
}

func NewFakeDecoder(names ...string) *FakeDecoder {
	return &FakeDecoder{
		Scaler:  IdentityTransformer{Width: len(names)},
		Reducer: IdentityTransformer{Width: len(names)},
		Names:   names,
	}
}

func (d *FakeDecoder) DecodeScaler(string) (ports.Transformer, error) {
	return d.Scaler, d.Err
}

func (d *FakeDecoder) DecodeReducer(string) (ports.Transformer, error) {
	return d.Reducer, d.Err
}

func (d *FakeDecoder) DecodeFeatureNames(string) ([]string, error) {
	return d.Names, d.Err
}

// WriteArtifactDir lays out an embedded artifact directory under root with a
// model subdirectory and placeholder preprocessing files. meta is optional.
func WriteArtifactDir(t *testing.T, root string, meta *domain.ModelMetadata) string {
	t.Helper()

	modelDir := filepath.Join(root, "model")
	require.NoError(t, os.MkdirAll(modelDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, domain.ModelDescriptorFile), []byte("flavors: {}\n"), 0o644))

	preDir := filepath.Join(root, domain.PreprocessorsDir)
	require.NoError(t, os.MkdirAll(preDir, 0o755))
	for _, name := range domain.RequiredPreprocessingFiles {
		require.NoError(t, os.WriteFile(filepath.Join(preDir, name), []byte("{}"), 0o644))
	}

	if meta != nil {
		data, err := json.Marshal(meta)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(root, domain.MetadataFile), data, 0o644))
	}
	return modelDir
}

// GenericLoaderFor returns a loader that always yields model.
func GenericLoaderFor(model ports.GenericModel) ports.GenericLoader {
	return func(string) (ports.GenericModel, error) { return model, nil }
}

// FlavorFor returns a flavor whose loader yields model, or err when set.
func FlavorFor(name string, model ports.NativeModel, err error) ports.Flavor {
	return ports.Flavor{
		Name: name,
		Load: func(string) (ports.NativeModel, error) {
			if err != nil {
				return nil, err
			}
			return model, nil
		},
	}
}
