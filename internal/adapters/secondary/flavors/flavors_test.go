package flavors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-approval-service/internal/core/domain"
)

const linearDescriptor = `artifact_path: model
run_id: abc123
flavors:
  python_function:
    loader_module: mlflow.linear
    data: model.json
  linear:
    data: model.json
`

func writeModel(t *testing.T, descriptor string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ModelDescriptorFile), []byte(descriptor), 0o644))
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestReadDescriptor(t *testing.T) {
	dir := writeModel(t, linearDescriptor, nil)

	desc, err := ReadDescriptor(dir)
	require.NoError(t, err)
	assert.Equal(t, "abc123", desc.RunID)
	assert.Equal(t, []string{"linear", "python_function"}, desc.FlavorNames())
	assert.Equal(t, "linear", desc.LoaderFlavor())
	assert.Equal(t, "model.json", desc.Option(Linear, "data"))
	assert.Empty(t, desc.Option(XGBoost, "data"))
}

func TestReadDescriptor_Missing(t *testing.T) {
	_, err := ReadDescriptor(t.TempDir())
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
}

func TestLoadLinear_Binary(t *testing.T) {
	dir := writeModel(t, linearDescriptor, map[string]string{
		"model.json": `{"coef":[[1,-1]],"intercept":[0]}`,
	})

	model, err := LoadLinear(dir)
	require.NoError(t, err)
	assert.Equal(t, Linear, model.Flavor())

	proba, err := model.PredictProba([][]float64{{0, 0}, {3, 0}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, proba[0], 1e-12)
	assert.InDelta(t, sigmoid(3), proba[1][1], 1e-12)

	labels, err := model.Predict([][]float64{{3, 0}, {0, 3}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, labels)
}

func TestLoadLinear_Multiclass(t *testing.T) {
	dir := writeModel(t, linearDescriptor, map[string]string{
		"model.json": `{"coef":[[1,0],[0,1],[0,0]],"intercept":[0,0,0],"classes":[10,20,30]}`,
	})

	model, err := LoadLinear(dir)
	require.NoError(t, err)

	proba, err := model.PredictProba([][]float64{{0, 5}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, proba[0][0]+proba[0][1]+proba[0][2], 1e-12)

	labels, err := model.Predict([][]float64{{0, 5}})
	require.NoError(t, err)
	assert.Equal(t, []float64{20}, labels)
}

func TestLoadLinear_FeatureMismatch(t *testing.T) {
	dir := writeModel(t, linearDescriptor, map[string]string{"model.json": `{"coef":[[1,1]]}`})

	model, err := LoadLinear(dir)
	require.NoError(t, err)

	_, err = model.PredictProba([][]float64{{1}})
	assert.ErrorIs(t, err, domain.ErrFeatureMismatch)
}

func TestTreeLoaders_FlavorMismatch(t *testing.T) {
	dir := writeModel(t, linearDescriptor, map[string]string{"model.json": `{"coef":[[1]]}`})

	for _, load := range []func(string) (interface{}, error){
		func(d string) (interface{}, error) { return LoadXGBoost(d) },
		func(d string) (interface{}, error) { return LoadLightGBM(d) },
		func(d string) (interface{}, error) { return LoadSklearn(d) },
	} {
		_, err := load(dir)
		assert.ErrorIs(t, err, domain.ErrFlavorMismatch)
	}
}

func TestLoadXGBoost_DeclaredButMissingFile(t *testing.T) {
	dir := writeModel(t, "flavors:\n  xgboost:\n    data: model.xgb\n", nil)

	_, err := LoadXGBoost(dir)
	assert.ErrorIs(t, err, domain.ErrFlavorMismatch)
}

func TestLoadXGBoost_CorruptFile(t *testing.T) {
	dir := writeModel(t, "flavors:\n  xgboost:\n    data: model.xgb\n", map[string]string{"model.xgb": "garbage"})

	_, err := LoadXGBoost(dir)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrFlavorMismatch)
}

func TestGenericLoader(t *testing.T) {
	dir := writeModel(t, linearDescriptor, map[string]string{
		"model.json": `{"coef":[[2]],"intercept":[-1]}`,
	})

	model, err := NewGenericLoader(DefaultFlavors())(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"linear", "python_function"}, model.DeclaredFlavors())

	labels, err := model.Predict([][]float64{{1}, {0}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, labels)

	_, hasProba := model.(interface {
		PredictProba([][]float64) ([][]float64, error)
	})
	assert.False(t, hasProba)
}

func TestGenericLoader_UnsupportedFlavor(t *testing.T) {
	dir := writeModel(t, "flavors:\n  python_function:\n    loader_module: mlflow.catboost\n  catboost:\n    data: model.cb\n", nil)

	_, err := NewGenericLoader(DefaultFlavors())(dir)
	assert.Error(t, err)
}

func TestDefaultFlavorsOrder(t *testing.T) {
	var names []string
	for _, f := range DefaultFlavors() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{XGBoost, LightGBM, Sklearn, Linear}, names)
}
