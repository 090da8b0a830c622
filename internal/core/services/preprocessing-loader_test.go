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

func TestPreprocessingLoader_LocalDir(t *testing.T) {
	root := t.TempDir()
	testutil.WriteArtifactDir(t, root, nil)
	registry := new(testutil.MockRegistryClient)

	loader := NewPreprocessingLoader(testutil.NewFakeDecoder("a", "b", "c"), registry, t.TempDir())
	artifact, err := loader.Load(context.Background(), &domain.Resolution{
		RunID:            "run-1",
		PreprocessingDir: filepath.Join(root, domain.PreprocessorsDir),
	})

	require.NoError(t, err)
	assert.Equal(t, "run-1", artifact.RunID)
	assert.Equal(t, []string{"a", "b", "c"}, artifact.FeatureNames)
	registry.AssertNotCalled(t, "DownloadArtifacts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPreprocessingLoader_FallsBackToRegistry(t *testing.T) {
	downloaded := t.TempDir()
	testutil.WriteArtifactDir(t, downloaded, nil)
	preDir := filepath.Join(downloaded, domain.PreprocessorsDir)

	cacheDir := t.TempDir()
	registry := new(testutil.MockRegistryClient)
	registry.On("DownloadArtifacts", mock.Anything, "run-9", domain.PreprocessorsDir, filepath.Join(cacheDir, "runs", "run-9")).
		Return(preDir, nil)

	loader := NewPreprocessingLoader(testutil.NewFakeDecoder("a", "b"), registry, cacheDir)
	artifact, err := loader.Load(context.Background(), &domain.Resolution{
		RunID:            "run-9",
		PreprocessingDir: filepath.Join(t.TempDir(), "missing"),
	})

	require.NoError(t, err)
	assert.Equal(t, "run-9", artifact.RunID)
	registry.AssertExpectations(t)
}

func TestPreprocessingLoader_DownloadFails(t *testing.T) {
	registry := new(testutil.MockRegistryClient)
	registry.On("DownloadArtifacts", mock.Anything, "run-9", domain.PreprocessorsDir, mock.Anything).
		Return("", errors.New("404"))

	loader := NewPreprocessingLoader(testutil.NewFakeDecoder("a"), registry, t.TempDir())
	_, err := loader.Load(context.Background(), &domain.Resolution{RunID: "run-9"})
	assert.ErrorIs(t, err, domain.ErrPreprocessingLoadFailed)
}

func TestPreprocessingLoader_NoRegistry(t *testing.T) {
	loader := NewPreprocessingLoader(testutil.NewFakeDecoder("a"), nil, t.TempDir())
	_, err := loader.Load(context.Background(), &domain.Resolution{RunID: "run-9"})
	assert.ErrorIs(t, err, domain.ErrPreprocessingLoadFailed)
}

func TestPreprocessingLoader_MissingFile(t *testing.T) {
	for _, name := range domain.RequiredPreprocessingFiles {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			testutil.WriteArtifactDir(t, root, nil)
			dir := filepath.Join(root, domain.PreprocessorsDir)
			require.NoError(t, os.Remove(filepath.Join(dir, name)))

			_, err := NewPreprocessingLoader(testutil.NewFakeDecoder("a"), nil, t.TempDir()).LoadDir(dir)
			assert.ErrorIs(t, err, domain.ErrPreprocessingLoadFailed)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestPreprocessingLoader_PickledOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"scaler.pkl", "pca.pkl", domain.FeatureNamesFile} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	_, err := NewPreprocessingLoader(testutil.NewFakeDecoder("a"), nil, t.TempDir()).LoadDir(dir)
	assert.ErrorIs(t, err, domain.ErrPreprocessingLoadFailed)
	assert.ErrorContains(t, err, "found scaler.pkl: export the fitted parameters to JSON")
}

func TestPreprocessingLoader_WidthMismatch(t *testing.T) {
	root := t.TempDir()
	testutil.WriteArtifactDir(t, root, nil)

	decoder := testutil.NewFakeDecoder("a", "b", "c")
	decoder.Scaler = testutil.IdentityTransformer{Width: 2}

	_, err := NewPreprocessingLoader(decoder, nil, t.TempDir()).LoadDir(filepath.Join(root, domain.PreprocessorsDir))
	assert.ErrorIs(t, err, domain.ErrPreprocessingLoadFailed)
}

func TestPreprocessingLoader_DecodeError(t *testing.T) {
	root := t.TempDir()
	testutil.WriteArtifactDir(t, root, nil)

	decoder := testutil.NewFakeDecoder("a")
	decoder.Err = errors.New("bad json")

	_, err := NewPreprocessingLoader(decoder, nil, t.TempDir()).LoadDir(filepath.Join(root, domain.PreprocessorsDir))
	assert.ErrorIs(t, err, domain.ErrPreprocessingLoadFailed)
}
