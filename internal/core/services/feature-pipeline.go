package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"card-approval-service/internal/core/domain"
)

const tracerName = "card-approval-service"

// FeaturePipeline turns a raw request row into the reduced feature vector the
// model was trained on: encode, align, scale, reduce.
type FeaturePipeline struct {
	artifact *PreprocessingArtifact
}

func NewFeaturePipeline(artifact *PreprocessingArtifact) *FeaturePipeline {
	return &FeaturePipeline{artifact: artifact}
}

func (p *FeaturePipeline) Transform(ctx context.Context, row domain.FeatureRow) (*domain.FeatureVector, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "preprocessing")
	defer span.End()
	span.SetAttributes(
		attribute.Int("feature_count", len(p.artifact.FeatureNames)),
		attribute.Int("input_rows", 1),
	)

	_, encodeSpan := tracer.Start(ctx, "preprocessing.encode")
	encoded := EncodeRow(row)
	encodeSpan.SetAttributes(attribute.Int("encoded_features", len(encoded)))
	encodeSpan.End()

	_, alignSpan := tracer.Start(ctx, "preprocessing.align")
	aligned := AlignFeatures(encoded, p.artifact.FeatureNames)
	alignSpan.SetAttributes(attribute.Int("aligned_features", len(aligned)))
	alignSpan.End()

	_, scaleSpan := tracer.Start(ctx, "preprocessing.scale")
	scaled, err := p.artifact.Scaler.Transform([][]float64{aligned})
	scaleSpan.SetAttributes(attribute.String("scaler_type", "StandardScaler"))
	scaleSpan.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scale")
		return nil, fmt.Errorf("scale features: %w", err)
	}

	_, reduceSpan := tracer.Start(ctx, "preprocessing.pca")
	reduced, err := p.artifact.Reducer.Transform(scaled)
	reduceSpan.SetAttributes(attribute.Int("n_components", p.artifact.Reducer.OutputWidth()))
	reduceSpan.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reduce")
		return nil, fmt.Errorf("reduce features: %w", err)
	}

	values := reduced[0]
	names := make([]string, len(values))
	for i := range values {
		names[i] = fmt.Sprintf("PC%d", i+1)
	}
	span.SetAttributes(attribute.Int("output_features", len(names)))

	return &domain.FeatureVector{Names: names, Values: values}, nil
}

// EncodeRow one-hot encodes the categorical columns as <column>_<value> = 1
// and passes numeric columns through. The identifier column is dropped.
//
// The training schema never contains a column's reference (first) level, so
// alignment discards it; encoding a single row with drop-first would instead
// discard the only level present.
//
// This intentionally differs from a per-request get_dummies(drop_first=True),
// which zeroes every categorical of a one-row frame. Outputs follow the
// batch encoding the model was trained on, so they will not match a service
// that encodes each request with drop-first.
func EncodeRow(row domain.FeatureRow) map[string]float64 {
	encoded := make(map[string]float64, len(row.Numeric)+len(row.Categorical))
	for name, value := range row.Numeric {
		if name == domain.ColumnID {
			continue
		}
		encoded[name] = value
	}
	for name, value := range row.Categorical {
		if name == domain.ColumnID {
			continue
		}
		encoded[name+"_"+value] = 1
	}
	return encoded
}

// AlignFeatures lays encoded out in schema order. Columns missing from
// encoded are 0 and columns absent from schema are dropped, so the result
// always has len(schema) entries.
func AlignFeatures(encoded map[string]float64, schema []string) []float64 {
	aligned := make([]float64, len(schema))
	for i, name := range schema {
		aligned[i] = encoded[name]
	}
	return aligned
}
