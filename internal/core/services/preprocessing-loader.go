package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"
)

// PreprocessingArtifact is the fitted preprocessing pipeline of one training
// run. FeatureNames is the training-time column order the scaler was fit on.
type PreprocessingArtifact struct {
	RunID        string
	Scaler       ports.Transformer
	Reducer      ports.Transformer
	FeatureNames []string
}

// PreprocessingLoader loads the preprocessing artifacts that belong to the
// same run as the model.
type PreprocessingLoader struct {
	decoder  ports.PreprocessingDecoder
	registry ports.RegistryClient
	cacheDir string
}

func NewPreprocessingLoader(decoder ports.PreprocessingDecoder, registry ports.RegistryClient, cacheDir string) *PreprocessingLoader {
	return &PreprocessingLoader{decoder: decoder, registry: registry, cacheDir: cacheDir}
}

// Load reads the local preprocessors directory when the resolution has one on
// disk, and otherwise downloads the run's preprocessors from the registry.
func (l *PreprocessingLoader) Load(ctx context.Context, res *domain.Resolution) (*PreprocessingArtifact, error) {
	dir := res.PreprocessingDir
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			log.WithField("path", dir).Warn("preprocessing path not found, falling back to registry")
			dir = ""
		}
	}

	if dir == "" {
		downloaded, err := l.download(ctx, res.RunID)
		if err != nil {
			return nil, err
		}
		dir = downloaded
	}

	artifact, err := l.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	artifact.RunID = res.RunID

	log.WithFields(log.Fields{
		"run_id":   res.RunID,
		"features": len(artifact.FeatureNames),
	}).Info("preprocessing artifacts ready")
	return artifact, nil
}

func (l *PreprocessingLoader) download(ctx context.Context, runID string) (string, error) {
	if l.registry == nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPreprocessingLoadFailed, domain.ErrRegistryUnavailable)
	}

	log.WithField("run_id", runID).Info("loading preprocessing from registry")
	dst := filepath.Join(l.cacheDir, "runs", runID)
	dir, err := l.registry.DownloadArtifacts(ctx, runID, domain.PreprocessorsDir, dst)
	if err != nil {
		return "", fmt.Errorf("%w: download run %s: %v", domain.ErrPreprocessingLoadFailed, runID, err)
	}
	return dir, nil
}

// pickledSuffix marks preprocessors saved by the training pipeline before
// their parameters are exported to JSON.
const pickledSuffix = ".pkl"

func missingFileError(dir, name string) error {
	pickled := strings.TrimSuffix(name, filepath.Ext(name)) + pickledSuffix
	if _, err := os.Stat(filepath.Join(dir, pickled)); err == nil {
		return fmt.Errorf("%w: missing %s in %s, found %s: export the fitted parameters to JSON",
			domain.ErrPreprocessingLoadFailed, name, dir, pickled)
	}
	return fmt.Errorf("%w: missing %s in %s", domain.ErrPreprocessingLoadFailed, name, dir)
}

// LoadDir decodes the three required files from dir.
func (l *PreprocessingLoader) LoadDir(dir string) (*PreprocessingArtifact, error) {
	for _, name := range domain.RequiredPreprocessingFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, missingFileError(dir, name)
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrPreprocessingLoadFailed, err)
		}
	}

	scaler, err := l.decoder.DecodeScaler(filepath.Join(dir, domain.ScalerFile))
	if err != nil {
		return nil, fmt.Errorf("%w: scaler: %v", domain.ErrPreprocessingLoadFailed, err)
	}
	reducer, err := l.decoder.DecodeReducer(filepath.Join(dir, domain.ReducerFile))
	if err != nil {
		return nil, fmt.Errorf("%w: reducer: %v", domain.ErrPreprocessingLoadFailed, err)
	}
	names, err := l.decoder.DecodeFeatureNames(filepath.Join(dir, domain.FeatureNamesFile))
	if err != nil {
		return nil, fmt.Errorf("%w: feature names: %v", domain.ErrPreprocessingLoadFailed, err)
	}

	if scaler.InputWidth() != len(names) {
		return nil, fmt.Errorf("%w: scaler expects %d features, schema has %d",
			domain.ErrPreprocessingLoadFailed, scaler.InputWidth(), len(names))
	}
	if reducer.InputWidth() != scaler.OutputWidth() {
		return nil, fmt.Errorf("%w: reducer expects %d inputs, scaler produces %d",
			domain.ErrPreprocessingLoadFailed, reducer.InputWidth(), scaler.OutputWidth())
	}

	return &PreprocessingArtifact{Scaler: scaler, Reducer: reducer, FeatureNames: names}, nil
}
