package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"card-approval-service/internal/core/domain"
)

type PredictionListFilter struct {
	ModelVersion string
	Decision     string
	Limit        int
	Offset       int
}

// PredictionLogRepository persists served predictions for auditing.
type PredictionLogRepository interface {
	Create(ctx context.Context, prediction *domain.Prediction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Prediction, error)
	List(ctx context.Context, filter PredictionListFilter) ([]*domain.Prediction, int, error)
}

// PredictionCache stores outcomes keyed by model version and request content.
type PredictionCache interface {
	Get(ctx context.Context, key string) (*domain.Prediction, bool, error)
	Set(ctx context.Context, key string, prediction *domain.Prediction, ttl time.Duration) error
}
