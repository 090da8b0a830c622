package ports

import (
	"context"

	"card-approval-service/internal/core/domain"
)

// RegistryClient defines the contract for the model registry (MLflow tracking server)
type RegistryClient interface {
	// SearchModelVersions returns every registered version of the named model
	SearchModelVersions(ctx context.Context, name string) ([]domain.ModelVersion, error)

	// DownloadArtifacts materializes runs:/<runID>/<artifactPath> under dst and
	// returns the local path of artifactPath
	DownloadArtifacts(ctx context.Context, runID, artifactPath, dst string) (string, error)

	// Ping checks registry connectivity
	Ping(ctx context.Context) error
}
