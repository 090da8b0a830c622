package services

import (
	"context"
	"fmt"
	"math"
	"slices"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"card-approval-service/internal/core/domain"
)

// ModelArtifact is a loaded model together with its registry coordinates.
// It is immutable once built and shared by all requests.
type ModelArtifact struct {
	Name    string
	Stage   string
	Version string
	RunID   string
	Source  domain.ModelSource
	Model   *LoadedModel
}

// InferenceService runs the loaded model on one feature vector.
type InferenceService struct {
	artifact *ModelArtifact
}

func NewInferenceService(artifact *ModelArtifact) *InferenceService {
	return &InferenceService{artifact: artifact}
}

// Predict fails only when the generic predictor fails. Probability problems
// degrade to the label fallback: probability = label, confidence = 1.
func (s *InferenceService) Predict(ctx context.Context, vector *domain.FeatureVector) (*domain.Outcome, error) {
	rows := [][]float64{vector.Values}

	label, err := s.predictLabel(ctx, rows)
	if err != nil {
		return nil, err
	}

	outcome := &domain.Outcome{
		Label:               label,
		Decision:            domain.DecisionFor(label),
		ProbabilityApproved: float64(label),
		Confidence:          1.0,
		ProbabilitySource:   domain.ProbabilityFromFallback,
	}

	proba, err := s.predictProba(ctx, rows)
	if err != nil {
		log.WithError(err).Warn("falling back to label as probability")
		return outcome, nil
	}

	outcome.ProbabilityApproved = clamp01(proba[1])
	outcome.Confidence = clamp01(slices.Max(proba))
	outcome.ProbabilitySource = domain.ProbabilityFromModel
	return outcome, nil
}

func (s *InferenceService) predictLabel(ctx context.Context, rows [][]float64) (int, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "model_inference.predict")
	defer span.End()
	span.SetAttributes(
		attribute.String("model.name", s.artifact.Name),
		attribute.String("model.version", s.artifact.Version),
		attribute.Int("batch_size", len(rows)),
	)

	result, err := s.artifact.Model.Predictor.Predict(rows)
	if err == nil && len(result) == 0 {
		err = fmt.Errorf("model returned no prediction")
	}
	// Only binary class ids 0 and 1 are servable.
	if err == nil && result[0] != 0 && result[0] != 1 {
		err = fmt.Errorf("model returned class %v, want 0 or 1", result[0])
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "predict")
		log.WithError(err).Error("prediction failed")
		return 0, fmt.Errorf("%w: %v", domain.ErrPredictionFailed, err)
	}

	span.SetAttributes(attribute.Bool("prediction.success", true))
	return int(result[0]), nil
}

func (s *InferenceService) predictProba(ctx context.Context, rows [][]float64) ([]float64, error) {
	native := s.artifact.Model.Native

	_, span := otel.Tracer(tracerName).Start(ctx, "model_inference.predict_proba")
	defer span.End()
	span.SetAttributes(attribute.Bool("has_proba", native != nil))

	if native == nil {
		return nil, domain.ErrProbabilityUnavailable
	}

	proba, err := native.PredictProba(rows)
	if err == nil && (len(proba) == 0 || len(proba[0]) < 2) {
		err = fmt.Errorf("expected two class probabilities")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "predict_proba")
		return nil, fmt.Errorf("%w: %v", domain.ErrProbabilityUnavailable, err)
	}

	span.SetAttributes(attribute.Bool("prediction.success", true))
	return proba[0], nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
