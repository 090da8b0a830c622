package services

import (
	"errors"
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"

	"card-approval-service/internal/core/domain"
	"card-approval-service/internal/core/ports/output"
)

// LoadedModel is the outcome of loading one model directory. Native is nil
// when no flavor loader could decode the directory.
type LoadedModel struct {
	Predictor ports.GenericModel
	Native    ports.NativeModel
	Flavor    string
}

// ModelLoader loads the generic predictor and walks the native flavor chain.
type ModelLoader struct {
	generic ports.GenericLoader
	flavors []ports.Flavor
}

func NewModelLoader(generic ports.GenericLoader, flavors []ports.Flavor) *ModelLoader {
	return &ModelLoader{generic: generic, flavors: flavors}
}

// Load fails with ErrModelLoadFailed only when the generic predictor cannot
// be loaded. A missing native model just disables probability output.
func (l *ModelLoader) Load(dir string) (*LoadedModel, error) {
	predictor, err := l.generic(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelLoadFailed, err)
	}

	loaded := &LoadedModel{Predictor: predictor}
	loaded.Native, loaded.Flavor = l.LoadNative(dir)

	if loaded.Native != nil && !slices.Contains(predictor.DeclaredFlavors(), loaded.Flavor) {
		log.WithFields(log.Fields{
			"flavor":   loaded.Flavor,
			"declared": predictor.DeclaredFlavors(),
		}).Warn("native model flavor is not declared by the model descriptor")
	}

	return loaded, nil
}

// LoadNative tries each flavor in order and returns the first that decodes.
func (l *ModelLoader) LoadNative(dir string) (ports.NativeModel, string) {
	for _, flavor := range l.flavors {
		model, err := flavor.Load(dir)
		if err == nil {
			log.WithField("flavor", flavor.Name).Debug("loaded native model")
			return model, flavor.Name
		}

		entry := log.WithFields(log.Fields{"flavor": flavor.Name, "error": err.Error()})
		if errors.Is(err, domain.ErrFlavorMismatch) {
			entry.Debug("native flavor does not match")
		} else {
			entry.Warn("native flavor loader failed")
		}
	}

	log.Warn("could not load native model, probabilities will be unavailable")
	return nil, ""
}
