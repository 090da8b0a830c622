package services

import (
	"context"
	"encoding/json"
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

func TestModelDownloader_Download(t *testing.T) {
	out := filepath.Join(t.TempDir(), "models")
	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "stale.txt"), []byte("x"), 0o644))

	registry := new(testutil.MockRegistryClient)
	registry.On("SearchModelVersions", mock.Anything, "m").Return([]domain.ModelVersion{
		{Version: "2", CurrentStage: domain.StageProduction, RunID: "r2", Source: "runs:/r2/model"},
	}, nil)
	registry.On("DownloadArtifacts", mock.Anything, "r2", "model", out).Return(filepath.Join(out, "model"), nil)
	registry.On("DownloadArtifacts", mock.Anything, "r2", domain.PreprocessorsDir, out).
		Run(func(args mock.Arguments) {
			dir := filepath.Join(out, domain.PreprocessorsDir)
			require.NoError(t, os.MkdirAll(dir, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ScalerFile), []byte("{}"), 0o644))
		}).
		Return(filepath.Join(out, domain.PreprocessorsDir), nil)

	d := NewModelDownloader(NewArtifactLocator(registry, t.TempDir()), registry)
	result, err := d.Download(context.Background(), "m", domain.StageProduction, out)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(out, "stale.txt"))
	assert.Equal(t, "2", result.Metadata.Version)
	assert.Equal(t, "r2", result.Metadata.RunID)
	assert.Equal(t, []string{domain.ReducerFile, domain.FeatureNamesFile}, result.MissingFiles)
	assert.NoError(t, result.PreprocessingErr)

	data, err := os.ReadFile(filepath.Join(out, domain.MetadataFile))
	require.NoError(t, err)
	var meta domain.ModelMetadata
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, "m", meta.ModelName)
	assert.Equal(t, domain.StageProduction, meta.Stage)
	assert.Equal(t, "runs:/r2/model", meta.Source)
}

func TestModelDownloader_PreprocessingUnavailable(t *testing.T) {
	out := filepath.Join(t.TempDir(), "models")
	registry := new(testutil.MockRegistryClient)
	registry.On("SearchModelVersions", mock.Anything, "m").Return([]domain.ModelVersion{
		{Version: "1", CurrentStage: domain.StageProduction, RunID: "r1"},
	}, nil)
	registry.On("DownloadArtifacts", mock.Anything, "r1", "model", out).Return(filepath.Join(out, "model"), nil)
	registry.On("DownloadArtifacts", mock.Anything, "r1", domain.PreprocessorsDir, out).Return("", errors.New("not found"))

	result, err := NewModelDownloader(NewArtifactLocator(registry, t.TempDir()), registry).
		Download(context.Background(), "m", domain.StageProduction, out)
	require.NoError(t, err)
	assert.Error(t, result.PreprocessingErr)
	assert.FileExists(t, filepath.Join(out, domain.MetadataFile))
}

func TestModelDownloader_NoVersion(t *testing.T) {
	registry := new(testutil.MockRegistryClient)
	registry.On("SearchModelVersions", mock.Anything, "m").Return([]domain.ModelVersion{}, nil)

	_, err := NewModelDownloader(NewArtifactLocator(registry, t.TempDir()), registry).
		Download(context.Background(), "m", domain.StageProduction, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNoVersionFound)
}

func TestWriteEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ci", "model.env")

	require.NoError(t, WriteEnvFile(path, [][2]string{{"MODEL_VERSION", "3"}, {"MODEL_RUN_ID", "abc"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MODEL_VERSION=3\nMODEL_RUN_ID=abc\n", string(data))
}
