package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"
	"card-approval-service/internal/testutil"
)

type modelFixture struct {
	root    string
	generic *testutil.FakeModel
	native  *testutil.FakeModel
	loads   *atomic.Int32
}

func newLocalModelService(t *testing.T, names ...string) (*ModelService, *modelFixture) {
	t.Helper()

	fx := &modelFixture{
		root:    t.TempDir(),
		generic: &testutil.FakeModel{Label: 1, Flavors: []string{"python_function", "xgboost"}},
		native:  &testutil.FakeModel{Label: 1, Proba: []float64{0.1, 0.9}, FlavorName: "xgboost"},
		loads:   new(atomic.Int32),
	}
	testutil.WriteArtifactDir(t, fx.root, &domain.ModelMetadata{
		ModelName: "card_approval_model",
		Version:   "3",
		RunID:     "run-3",
		Stage:     domain.StageProduction,
	})

	generic := func(string) (ports.GenericModel, error) {
		fx.loads.Add(1)
		time.Sleep(10 * time.Millisecond)
		return fx.generic, nil
	}

	svc := NewModelService(
		ModelServiceConfig{Name: "card_approval_model", Stage: domain.StageProduction, LocalPath: fx.root},
		NewArtifactLocator(nil, t.TempDir()),
		NewModelLoader(generic, []ports.Flavor{testutil.FlavorFor("xgboost", fx.native, nil)}),
		NewPreprocessingLoader(testutil.NewFakeDecoder(names...), nil, t.TempDir()),
	)
	return svc, fx
}

func TestModelService_LoadAndPredict(t *testing.T) {
	svc, _ := newLocalModelService(t, domain.ColumnIncome, "CODE_GENDER_M")

	assert.False(t, svc.Ready())
	require.NoError(t, svc.Load(context.Background()))
	assert.True(t, svc.Ready())

	info := svc.Info()
	assert.True(t, info.Loaded)
	assert.Equal(t, "3", info.Version)
	assert.Equal(t, "run-3", info.RunID)
	assert.Equal(t, "xgboost", info.Flavor)
	assert.True(t, info.HasProba)
	assert.Equal(t, 2, info.Features)
	assert.Equal(t, domain.ModelSourceLocal, info.Source)

	outcome, err := svc.Predict(context.Background(), sampleRequest(nil).Row())
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionApproved, outcome.Decision)
	assert.InDelta(t, 0.9, outcome.ProbabilityApproved, 1e-9)
}

func TestModelService_ConcurrentLoadRunsOnce(t *testing.T) {
	svc, fx := newLocalModelService(t, "a")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Load(context.Background()))
		}()
	}
	wg.Wait()

	require.NoError(t, svc.Load(context.Background()))
	assert.Equal(t, int32(1), fx.loads.Load())
}

func TestModelService_PredictBeforeLoad(t *testing.T) {
	svc, _ := newLocalModelService(t, "a")

	_, err := svc.Predict(context.Background(), sampleRequest(nil).Row())
	assert.ErrorIs(t, err, domain.ErrModelNotReady)

	info := svc.Info()
	assert.False(t, info.Loaded)
	assert.Equal(t, "card_approval_model", info.Name)
}

func TestModelService_LoadFailureLeavesNotReady(t *testing.T) {
	svc := NewModelService(
		ModelServiceConfig{Name: "m", Stage: domain.StageProduction, LocalPath: t.TempDir()},
		NewArtifactLocator(nil, t.TempDir()),
		NewModelLoader(testutil.GenericLoaderFor(&testutil.FakeModel{}), nil),
		NewPreprocessingLoader(testutil.NewFakeDecoder("a"), nil, t.TempDir()),
	)

	err := svc.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	assert.False(t, svc.Ready())
}

func TestModelService_RegistryMode(t *testing.T) {
	registry := new(testutil.MockRegistryClient)
	registry.On("SearchModelVersions", mock.Anything, "m").Return(nil, errors.New("unreachable"))

	svc := NewModelService(
		ModelServiceConfig{Name: "m", Stage: domain.StageProduction},
		NewArtifactLocator(registry, t.TempDir()),
		NewModelLoader(testutil.GenericLoaderFor(&testutil.FakeModel{}), nil),
		NewPreprocessingLoader(testutil.NewFakeDecoder("a"), registry, t.TempDir()),
	)

	assert.Error(t, svc.Load(context.Background()))
	assert.Equal(t, domain.ModelSourceRegistry, svc.Info().Source)
}
