package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/testutil"
)

func TestSelectLatestVersion(t *testing.T) {
	versions := []domain.ModelVersion{
		{Name: "m", Version: "1", CurrentStage: domain.StageProduction, RunID: "r1"},
		{Name: "m", Version: "3", CurrentStage: domain.StageProduction, RunID: "r3"},
		{Name: "m", Version: "2", CurrentStage: domain.StageStaging, RunID: "r2"},
		{Name: "m", Version: "10", CurrentStage: domain.StageArchived, RunID: "r10"},
		{Name: "m", Version: "abc", CurrentStage: domain.StageProduction, RunID: "rx"},
	}

	latest, err := SelectLatestVersion(versions, "m", domain.StageProduction)
	require.NoError(t, err)
	assert.Equal(t, "3", latest.Version)
	assert.Equal(t, "r3", latest.RunID)

	staging, err := SelectLatestVersion(versions, "m", domain.StageStaging)
	require.NoError(t, err)
	assert.Equal(t, "2", staging.Version)
}

func TestSelectLatestVersion_NumericNotLexicographic(t *testing.T) {
	versions := []domain.ModelVersion{
		{Version: "9", CurrentStage: domain.StageProduction},
		{Version: "12", CurrentStage: domain.StageProduction},
	}

	latest, err := SelectLatestVersion(versions, "m", domain.StageProduction)
	require.NoError(t, err)
	assert.Equal(t, "12", latest.Version)
}

func TestSelectLatestVersion_NoneInStage(t *testing.T) {
	versions := []domain.ModelVersion{{Version: "1", CurrentStage: domain.StageStaging}}

	_, err := SelectLatestVersion(versions, "m", domain.StageProduction)
	assert.ErrorIs(t, err, domain.ErrNoVersionFound)

	_, err = SelectLatestVersion(nil, "m", domain.StageProduction)
	assert.ErrorIs(t, err, domain.ErrNoVersionFound)
}

func TestFindModelDirectory(t *testing.T) {
	t.Run("root holds descriptor", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, domain.ModelDescriptorFile), nil, 0o644))

		dir, err := FindModelDirectory(root)
		require.NoError(t, err)
		assert.Equal(t, root, dir)
	})

	t.Run("first child in name order", func(t *testing.T) {
		root := t.TempDir()
		for _, name := range []string{"b", "a"} {
			require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(root, name, domain.ModelDescriptorFile), nil, 0o644))
		}

		dir, err := FindModelDirectory(root)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "a"), dir)
	})

	t.Run("nested two levels", func(t *testing.T) {
		root := t.TempDir()
		nested := filepath.Join(root, "card_approval_model", "3")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(nested, domain.ModelDescriptorFile), nil, 0o644))

		dir, err := FindModelDirectory(root)
		require.NoError(t, err)
		assert.Equal(t, nested, dir)
	})

	t.Run("not found", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

		_, err := FindModelDirectory(root)
		assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := FindModelDirectory(filepath.Join(t.TempDir(), "nope"))
		assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	})
}

func TestArtifactLocator_ResolveLocal(t *testing.T) {
	root := t.TempDir()
	modelDir := testutil.WriteArtifactDir(t, root, &domain.ModelMetadata{
		ModelName: "card_approval_model",
		Version:   "7",
		RunID:     "abc123",
		Stage:     domain.StageProduction,
	})

	res, err := NewArtifactLocator(nil, t.TempDir()).ResolveLocal(root)
	require.NoError(t, err)
	assert.Equal(t, "7", res.Version)
	assert.Equal(t, "abc123", res.RunID)
	assert.Equal(t, "card_approval_model", res.Name)
	assert.Equal(t, domain.ModelSourceLocal, res.Source)
	assert.Equal(t, modelDir, res.ModelDir)
	assert.Equal(t, filepath.Join(root, domain.PreprocessorsDir), res.PreprocessingDir)
}

func TestArtifactLocator_ResolveLocal_NoMetadata(t *testing.T) {
	root := t.TempDir()
	testutil.WriteArtifactDir(t, root, nil)

	res, err := NewArtifactLocator(nil, t.TempDir()).ResolveLocal(root)
	require.NoError(t, err)
	assert.Equal(t, domain.PlaceholderVersion, res.Version)
	assert.Equal(t, domain.PlaceholderRunID, res.RunID)
}

func TestArtifactLocator_ResolveLocal_PartialMetadata(t *testing.T) {
	root := t.TempDir()
	testutil.WriteArtifactDir(t, root, nil)
	require.NoError(t, os.WriteFile(filepath.Join(root, domain.MetadataFile), []byte(`{"version":"2"}`), 0o644))

	res, err := NewArtifactLocator(nil, t.TempDir()).ResolveLocal(root)
	require.NoError(t, err)
	assert.Equal(t, "2", res.Version)
	assert.Equal(t, domain.UnknownMetadataValue, res.RunID)
}

func TestArtifactLocator_ResolveRegistry(t *testing.T) {
	registry := new(testutil.MockRegistryClient)
	cacheDir := t.TempDir()
	locator := NewArtifactLocator(registry, cacheDir)

	registry.On("SearchModelVersions", mock.Anything, "card_approval_model").Return([]domain.ModelVersion{
		{Version: "1", CurrentStage: domain.StageProduction, RunID: "r1"},
		{Version: "3", CurrentStage: domain.StageProduction, RunID: "r3", Source: "runs:/r3/model"},
		{Version: "4", CurrentStage: domain.StageStaging, RunID: "r4"},
	}, nil)
	dst := filepath.Join(cacheDir, "card_approval_model", "3")
	registry.On("DownloadArtifacts", mock.Anything, "r3", "model", dst).Return(filepath.Join(dst, "model"), nil)

	res, err := locator.ResolveRegistry(context.Background(), "card_approval_model", domain.StageProduction)
	require.NoError(t, err)
	assert.Equal(t, "3", res.Version)
	assert.Equal(t, "r3", res.RunID)
	assert.Equal(t, domain.ModelSourceRegistry, res.Source)
	assert.Equal(t, filepath.Join(dst, "model"), res.ModelDir)
	assert.Empty(t, res.PreprocessingDir)
	registry.AssertExpectations(t)
}

func TestArtifactLocator_ResolveRegistry_SearchFails(t *testing.T) {
	registry := new(testutil.MockRegistryClient)
	registry.On("SearchModelVersions", mock.Anything, "m").Return(nil, errors.New("connection refused"))

	_, err := NewArtifactLocator(registry, t.TempDir()).ResolveRegistry(context.Background(), "m", domain.StageProduction)
	assert.Error(t, err)
	registry.AssertNotCalled(t, "DownloadArtifacts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestArtifactLocator_NoRegistry(t *testing.T) {
	_, err := NewArtifactLocator(nil, t.TempDir()).LatestVersion(context.Background(), "m", domain.StageProduction)
	assert.ErrorIs(t, err, domain.ErrRegistryUnavailable)
}
