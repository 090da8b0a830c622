package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"
)

// DownloadResult describes an artifact directory prepared for embedding.
type DownloadResult struct {
	Metadata         domain.ModelMetadata
	ModelDir         string
	PreprocessingDir string
	// MissingFiles lists required preprocessing files absent after download.
	MissingFiles []string
	// PreprocessingErr is set when the run's preprocessors could not be
	// fetched; the service then falls back to the registry at startup.
	PreprocessingErr error
}

// ModelDownloader materializes a registry version into the local layout
// that ArtifactLocator.ResolveLocal reads.
type ModelDownloader struct {
	locator  *ArtifactLocator
	registry ports.RegistryClient
}

func NewModelDownloader(locator *ArtifactLocator, registry ports.RegistryClient) *ModelDownloader {
	return &ModelDownloader{locator: locator, registry: registry}
}

// Download replaces outputDir with the model and preprocessing artifacts of
// the newest version of name at stage, and writes model_metadata.json.
func (d *ModelDownloader) Download(ctx context.Context, name, stage, outputDir string) (*DownloadResult, error) {
	version, err := d.locator.LatestVersion(ctx, name, stage)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"model":   name,
		"version": version.Version,
		"stage":   stage,
		"run_id":  version.RunID,
		"source":  version.Source,
	}).Info("found model version")

	if err := os.RemoveAll(outputDir); err != nil {
		return nil, fmt.Errorf("clean output dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	modelDir, err := d.registry.DownloadArtifacts(ctx, version.RunID, version.ArtifactPath(), outputDir)
	if err != nil {
		return nil, fmt.Errorf("download model artifacts: %w", err)
	}

	result := &DownloadResult{
		Metadata: domain.ModelMetadata{
			ModelName: name,
			Version:   version.Version,
			RunID:     version.RunID,
			Stage:     stage,
			Source:    version.Source,
		},
		ModelDir: modelDir,
	}

	preDir, err := d.registry.DownloadArtifacts(ctx, version.RunID, domain.PreprocessorsDir, outputDir)
	if err != nil {
		log.WithError(err).Warn("could not download preprocessing artifacts, the registry will be used at runtime")
		result.PreprocessingErr = err
	} else {
		result.PreprocessingDir = preDir
		result.MissingFiles = missingFiles(preDir, domain.RequiredPreprocessingFiles)
	}

	if err := WriteMetadata(outputDir, result.Metadata); err != nil {
		return nil, err
	}
	return result, nil
}

func missingFiles(dir string, names []string) []string {
	var missing []string
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// WriteMetadata writes model_metadata.json into dir.
func WriteMetadata(dir string, meta domain.ModelMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, domain.MetadataFile), data, 0o644); err != nil {
		return fmt.Errorf("write model metadata: %w", err)
	}
	return nil
}

// WriteEnvFile writes KEY=value lines, creating parent directories.
func WriteEnvFile(path string, values [][2]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create env file dir: %w", err)
	}
	var b strings.Builder
	for _, kv := range values {
		b.WriteString(kv[0])
		b.WriteByte('=')
		b.WriteString(kv[1])
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write env file: %w", err)
	}
	return nil
}
