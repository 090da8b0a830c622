package domain

import (
	"strconv"
	"strings"
)

// Registry stages a model version can be promoted through.
const (
	StageNone       = "None"
	StageStaging    = "Staging"
	StageProduction = "Production"
	StageArchived   = "Archived"
)

// ModelVersion is one registered version as reported by the model registry.
type ModelVersion struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	CurrentStage string `json:"current_stage"`
	RunID        string `json:"run_id"`
	Source       string `json:"source"`
	Status       string `json:"status"`
}

// Number parses the registry version string. Registries report versions as
// decimal strings; anything else is not orderable.
func (v ModelVersion) Number() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(v.Version))
	if err != nil {
		return 0, false
	}
	return n, true
}

const defaultModelArtifactPath = "model"

// ArtifactPath returns the path of the model files relative to the run's
// artifact root, derived from the version's source URI.
//
//	runs:/<run_id>/model                     -> model
//	gs://bucket/1/<run_id>/artifacts/model   -> model
//	mlflow-artifacts:/1/<run_id>/artifacts/m -> m
func (v ModelVersion) ArtifactPath() string {
	src := strings.TrimSuffix(v.Source, "/")
	if rest, ok := strings.CutPrefix(src, "runs:/"); ok {
		if _, path, found := strings.Cut(rest, "/"); found && path != "" {
			return path
		}
		return defaultModelArtifactPath
	}
	if idx := strings.LastIndex(src, "/artifacts/"); idx >= 0 {
		if path := src[idx+len("/artifacts/"):]; path != "" {
			return path
		}
	}
	return defaultModelArtifactPath
}
