package domain

import "time"

const (
	HealthStatusHealthy  = "healthy"
	HealthStatusDegraded = "degraded"
)

type HealthStatus struct {
	Status          string    `json:"status"`
	Version         string    `json:"version"`
	Timestamp       time.Time `json:"timestamp"`
	RegistryReached bool      `json:"mlflow_connected"`
	ModelLoaded     bool      `json:"model_loaded"`
}
