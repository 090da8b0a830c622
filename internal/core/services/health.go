package services

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"
)

const registryPingTimeout = 5 * time.Second

type HealthService struct {
	registry ports.RegistryClient
	models   *ModelService
	version  string
}

func NewHealthService(registry ports.RegistryClient, models *ModelService, version string) *HealthService {
	return &HealthService{
		registry: registry,
		models:   models,
		version:  version,
	}
}

// Check reports degraded when the model is not loaded or the registry
// cannot be reached, including in local mode. It never fails.
func (s *HealthService) Check(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{
		Status:      domain.HealthStatusHealthy,
		Version:     s.version,
		Timestamp:   time.Now().UTC(),
		ModelLoaded: s.models.Ready(),
	}

	status.RegistryReached = s.pingRegistry(ctx)

	if !status.ModelLoaded || !status.RegistryReached {
		status.Status = domain.HealthStatusDegraded
	}
	return status
}

func (s *HealthService) pingRegistry(ctx context.Context) bool {
	if s.registry == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, registryPingTimeout)
	defer cancel()

	if err := s.registry.Ping(ctx); err != nil {
		log.WithError(err).Warn("registry connection check failed")
		return false
	}
	log.Debug("registry connection: OK")
	return true
}

// Ready reports whether the service can accept prediction traffic.
func (s *HealthService) Ready() bool {
	return s.models.Ready()
}
