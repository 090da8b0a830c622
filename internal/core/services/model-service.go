package services

import (
	"context"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"card-approval-service/internal/core/domain"
)

// ModelServiceConfig selects the artifact source. A non-empty LocalPath wins
// over the registry coordinate.
type ModelServiceConfig struct {
	Name      string
	Stage     string
	LocalPath string
}

type servingState struct {
	model     *ModelArtifact
	pipeline  *FeaturePipeline
	inference *InferenceService
	features  int
}

// ModelService owns the model and preprocessing artifacts for the process
// lifetime. Load runs at most once at a time; after a successful load the
// state is immutable and read without locking.
type ModelService struct {
	cfg           ModelServiceConfig
	locator       *ArtifactLocator
	models        *ModelLoader
	preprocessing *PreprocessingLoader

	group singleflight.Group
	state atomic.Pointer[servingState]
}

func NewModelService(cfg ModelServiceConfig, locator *ArtifactLocator, models *ModelLoader, preprocessing *PreprocessingLoader) *ModelService {
	return &ModelService{
		cfg:           cfg,
		locator:       locator,
		models:        models,
		preprocessing: preprocessing,
	}
}

// Load resolves and loads the artifacts. Concurrent callers share a single
// load; a failed load is not retried here and leaves the service not ready.
func (s *ModelService) Load(ctx context.Context) error {
	if s.state.Load() != nil {
		return nil
	}

	_, err, _ := s.group.Do("load", func() (interface{}, error) {
		if st := s.state.Load(); st != nil {
			return st, nil
		}
		st, err := s.load(ctx)
		if err != nil {
			log.WithError(err).Error("failed to load model")
			return nil, err
		}
		s.state.Store(st)
		return st, nil
	})
	return err
}

func (s *ModelService) load(ctx context.Context) (*servingState, error) {
	res, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if res.Name == "" {
		res.Name = s.cfg.Name
	}
	if res.Stage == "" {
		res.Stage = s.cfg.Stage
	}

	loaded, err := s.models.Load(res.ModelDir)
	if err != nil {
		return nil, err
	}

	pre, err := s.preprocessing.Load(ctx, res)
	if err != nil {
		return nil, err
	}

	artifact := &ModelArtifact{
		Name:    res.Name,
		Stage:   res.Stage,
		Version: res.Version,
		RunID:   res.RunID,
		Source:  res.Source,
		Model:   loaded,
	}

	entry := log.WithFields(log.Fields{
		"model":   artifact.Name,
		"version": artifact.Version,
		"run_id":  artifact.RunID,
		"source":  artifact.Source,
	})
	if loaded.Native != nil {
		entry.WithField("flavor", loaded.Flavor).Info("model loaded with predict_proba support")
	} else {
		entry.Info("model loaded (generic predictor only)")
	}

	return &servingState{
		model:     artifact,
		pipeline:  NewFeaturePipeline(pre),
		inference: NewInferenceService(artifact),
		features:  len(pre.FeatureNames),
	}, nil
}

func (s *ModelService) resolve(ctx context.Context) (*domain.Resolution, error) {
	if s.cfg.LocalPath != "" {
		return s.locator.ResolveLocal(s.cfg.LocalPath)
	}
	return s.locator.ResolveRegistry(ctx, s.cfg.Name, s.cfg.Stage)
}

func (s *ModelService) Ready() bool {
	return s.state.Load() != nil
}

func (s *ModelService) Info() domain.ModelInfo {
	info := domain.ModelInfo{
		Name:   s.cfg.Name,
		Stage:  s.cfg.Stage,
		Source: domain.ModelSourceRegistry,
	}
	if s.cfg.LocalPath != "" {
		info.Source = domain.ModelSourceLocal
	}

	st := s.state.Load()
	if st == nil {
		return info
	}
	info.Name = st.model.Name
	info.Stage = st.model.Stage
	info.Version = st.model.Version
	info.RunID = st.model.RunID
	info.Loaded = true
	info.Flavor = st.model.Model.Flavor
	info.HasProba = st.model.Model.Native != nil
	info.Features = st.features
	return info
}

// Predict preprocesses the row and runs inference on it.
func (s *ModelService) Predict(ctx context.Context, row domain.FeatureRow) (*domain.Outcome, error) {
	st := s.state.Load()
	if st == nil {
		return nil, domain.ErrModelNotReady
	}

	vector, err := st.pipeline.Transform(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPredictionFailed, err)
	}

	return st.inference.Predict(ctx, vector)
}
