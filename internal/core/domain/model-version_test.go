package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelVersion_Number(t *testing.T) {
	n, ok := ModelVersion{Version: "12"}.Number()
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = ModelVersion{Version: "v1"}.Number()
	assert.False(t, ok)
}

func TestModelVersion_ArtifactPath(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"runs:/abc123/model", "model"},
		{"runs:/abc123/classifier/", "classifier"},
		{"runs:/abc123", "model"},
		{"gs://bucket/mlflow/1/abc123/artifacts/model", "model"},
		{"mlflow-artifacts:/1/abc123/artifacts/xgb_model", "xgb_model"},
		{"", "model"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, ModelVersion{Source: tt.source}.ArtifactPath())
		})
	}
}
