package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"
)

// MockRegistryClient is a mock of RegistryClient.
type MockRegistryClient struct {
	mock.Mock
}

func (m *MockRegistryClient) SearchModelVersions(ctx context.Context, name string) ([]domain.ModelVersion, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ModelVersion), args.Error(1)
}

func (m *MockRegistryClient) DownloadArtifacts(ctx context.Context, runID, artifactPath, dst string) (string, error) {
	args := m.Called(ctx, runID, artifactPath, dst)
	return args.String(0), args.Error(1)
}

func (m *MockRegistryClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPredictionLogRepo is a mock of PredictionLogRepository.
type MockPredictionLogRepo struct {
	mock.Mock
}

func (m *MockPredictionLogRepo) Create(ctx context.Context, prediction *domain.Prediction) error {
	args := m.Called(ctx, prediction)
	return args.Error(0)
}

func (m *MockPredictionLogRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Prediction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Prediction), args.Error(1)
}

func (m *MockPredictionLogRepo) List(ctx context.Context, filter ports.PredictionListFilter) ([]*domain.Prediction, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Prediction), args.Int(1), args.Error(2)
}

// MockPredictionCache is a mock of PredictionCache.
type MockPredictionCache struct {
	mock.Mock
}

func (m *MockPredictionCache) Get(ctx context.Context, key string) (*domain.Prediction, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Prediction), args.Bool(1), args.Error(2)
}

func (m *MockPredictionCache) Set(ctx context.Context, key string, prediction *domain.Prediction, ttl time.Duration) error {
	args := m.Called(ctx, key, prediction, ttl)
	return args.Error(0)
}
