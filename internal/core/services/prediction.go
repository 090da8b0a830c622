package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"
)

const cacheKeyPrefix = "prediction:"

// PredictionService validates requests, serves them from the model and
// records the result. The cache and the audit log are optional.
type PredictionService struct {
	models   *ModelService
	cache    ports.PredictionCache
	logs     ports.PredictionLogRepository
	cacheTTL time.Duration
}

func NewPredictionService(models *ModelService, cache ports.PredictionCache, logs ports.PredictionLogRepository, cacheTTL time.Duration) *PredictionService {
	return &PredictionService{
		models:   models,
		cache:    cache,
		logs:     logs,
		cacheTTL: cacheTTL,
	}
}

func (s *PredictionService) Predict(ctx context.Context, req domain.PredictionRequest, requestID string) (*domain.Prediction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.models.Ready() {
		return nil, domain.ErrModelNotReady
	}

	info := s.models.Info()
	key, err := CacheKey(info.Version, req)
	if err != nil {
		return nil, err
	}

	if cached := s.lookup(ctx, key); cached != nil {
		cached.ID = uuid.New()
		cached.RequestID = requestID
		cached.CustomerID = req.ID
		cached.Cached = true
		cached.CreatedAt = time.Now().UTC()
		s.record(ctx, cached)
		return cached, nil
	}

	outcome, err := s.models.Predict(ctx, req.Row())
	if err != nil {
		return nil, err
	}

	p := &domain.Prediction{
		ID:                uuid.New(),
		RequestID:         requestID,
		CustomerID:        req.ID,
		Label:             outcome.Label,
		Probability:       outcome.ProbabilityApproved,
		Decision:          outcome.Decision,
		Confidence:        outcome.Confidence,
		ProbabilitySource: outcome.ProbabilitySource,
		ModelVersion:      info.Version,
		RunID:             info.RunID,
		CreatedAt:         time.Now().UTC(),
	}

	s.store(ctx, key, p)
	s.record(ctx, p)
	return p, nil
}

func (s *PredictionService) lookup(ctx context.Context, key string) *domain.Prediction {
	if s.cache == nil {
		return nil
	}
	p, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.WithError(err).Warn("prediction cache lookup failed")
		return nil
	}
	if !ok {
		return nil
	}
	return p
}

func (s *PredictionService) store(ctx context.Context, key string, p *domain.Prediction) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, p, s.cacheTTL); err != nil {
		log.WithError(err).Warn("prediction cache store failed")
	}
}

func (s *PredictionService) record(ctx context.Context, p *domain.Prediction) {
	if s.logs == nil {
		return
	}
	if err := s.logs.Create(ctx, p); err != nil {
		log.WithError(err).WithField("prediction_id", p.ID).Warn("failed to record prediction")
	}
}

// Get returns a recorded prediction.
func (s *PredictionService) Get(ctx context.Context, id uuid.UUID) (*domain.Prediction, error) {
	if s.logs == nil {
		return nil, domain.ErrAuditLogDisabled
	}
	return s.logs.GetByID(ctx, id)
}

// List returns recorded predictions, newest first.
func (s *PredictionService) List(ctx context.Context, filter ports.PredictionListFilter) ([]*domain.Prediction, int, error) {
	if s.logs == nil {
		return nil, 0, domain.ErrAuditLogDisabled
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.logs.List(ctx, filter)
}

// CacheKey derives the cache key of a request for a model version. The
// customer identifier does not influence the prediction and is left out.
func CacheKey(version string, req domain.PredictionRequest) (string, error) {
	req.ID = nil
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + version + ":" + hex.EncodeToString(sum[:]), nil
}
