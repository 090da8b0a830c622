package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"
)

// ArtifactLocator resolves a local directory or a registry (name, stage)
// coordinate to a concrete model version with its files on local disk.
type ArtifactLocator struct {
	registry ports.RegistryClient
	cacheDir string
}

func NewArtifactLocator(registry ports.RegistryClient, cacheDir string) *ArtifactLocator {
	return &ArtifactLocator{registry: registry, cacheDir: cacheDir}
}

// ResolveLocal resolves an embedded artifact directory.
func (l *ArtifactLocator) ResolveLocal(root string) (*domain.Resolution, error) {
	log.WithField("path", root).Info("resolving model from local path")

	meta, err := readMetadata(root)
	if err != nil {
		return nil, err
	}

	modelDir, err := FindModelDirectory(root)
	if err != nil {
		return nil, err
	}

	return &domain.Resolution{
		Name:             meta.ModelName,
		Stage:            meta.Stage,
		Version:          meta.Version,
		RunID:            meta.RunID,
		Source:           domain.ModelSourceLocal,
		SourceURI:        meta.Source,
		ModelDir:         modelDir,
		PreprocessingDir: filepath.Join(root, domain.PreprocessorsDir),
	}, nil
}

func readMetadata(root string) (*domain.ModelMetadata, error) {
	data, err := os.ReadFile(filepath.Join(root, domain.MetadataFile))
	if errors.Is(err, os.ErrNotExist) {
		log.Warnf("no %s found, using defaults", domain.MetadataFile)
		return &domain.ModelMetadata{Version: domain.PlaceholderVersion, RunID: domain.PlaceholderRunID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}

	var meta domain.ModelMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode model metadata: %w", err)
	}
	if meta.Version == "" {
		meta.Version = domain.UnknownMetadataValue
	}
	if meta.RunID == "" {
		meta.RunID = domain.UnknownMetadataValue
	}
	log.WithFields(log.Fields{"version": meta.Version, "run_id": meta.RunID}).Info("model metadata loaded")
	return &meta, nil
}

// FindModelDirectory returns root when it holds the model descriptor,
// otherwise the first subdirectory (or nested subdirectory) that does.
// Registry downloads create a model_name/version structure, hence the two
// levels.
func FindModelDirectory(root string) (string, error) {
	if hasDescriptor(root) {
		return root, nil
	}

	children, err := subdirectories(root)
	if err != nil {
		return "", err
	}
	for _, child := range children {
		if hasDescriptor(child) {
			return child, nil
		}
		nested, err := subdirectories(child)
		if err != nil {
			return "", err
		}
		for _, n := range nested {
			if hasDescriptor(n) {
				return n, nil
			}
		}
	}

	return "", fmt.Errorf("%w: no %s file found in %s", domain.ErrArtifactNotFound, domain.ModelDescriptorFile, root)
}

func hasDescriptor(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, domain.ModelDescriptorFile))
	return err == nil && !info.IsDir()
}

func subdirectories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", domain.ErrArtifactNotFound, dir)
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(dir, e.Name()))
		}
	}
	return dirs, nil
}

// ResolveRegistry selects the newest version of name at stage and downloads
// its model files into the cache directory.
func (l *ArtifactLocator) ResolveRegistry(ctx context.Context, name, stage string) (*domain.Resolution, error) {
	version, err := l.LatestVersion(ctx, name, stage)
	if err != nil {
		return nil, err
	}

	dst := filepath.Join(l.cacheDir, name, version.Version)
	log.WithFields(log.Fields{
		"model":   name,
		"version": version.Version,
		"stage":   stage,
		"run_id":  version.RunID,
	}).Info("downloading model artifacts from registry")

	modelDir, err := l.registry.DownloadArtifacts(ctx, version.RunID, version.ArtifactPath(), dst)
	if err != nil {
		return nil, fmt.Errorf("download model artifacts: %w", err)
	}

	return &domain.Resolution{
		Name:      name,
		Stage:     stage,
		Version:   version.Version,
		RunID:     version.RunID,
		Source:    domain.ModelSourceRegistry,
		SourceURI: version.Source,
		ModelDir:  modelDir,
	}, nil
}

// LatestVersion queries the registry for name and picks the highest version
// currently at stage.
func (l *ArtifactLocator) LatestVersion(ctx context.Context, name, stage string) (*domain.ModelVersion, error) {
	if l.registry == nil {
		return nil, domain.ErrRegistryUnavailable
	}

	versions, err := l.registry.SearchModelVersions(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("search model versions: %w", err)
	}

	return SelectLatestVersion(versions, name, stage)
}

// SelectLatestVersion filters versions to stage and returns the numerically
// highest one. Versions without a numeric identifier are ignored.
func SelectLatestVersion(versions []domain.ModelVersion, name, stage string) (*domain.ModelVersion, error) {
	type candidate struct {
		number  int
		version domain.ModelVersion
	}

	candidates := make([]candidate, 0, len(versions))
	for _, v := range versions {
		if v.CurrentStage != stage {
			continue
		}
		n, ok := v.Number()
		if !ok {
			log.WithField("version", v.Version).Warn("skipping non-numeric model version")
			continue
		}
		candidates = append(candidates, candidate{number: n, version: v})
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s in %s stage", domain.ErrNoVersionFound, name, stage)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].number > candidates[j].number })
	latest := candidates[0].version
	return &latest, nil
}
