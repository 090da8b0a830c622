package flavors

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"card-approval-service/internal/core/ports/output"
)

// GenericModel is the flavor-agnostic predictor of a logged model. It only
// exposes labels, whatever the underlying model can do.
type GenericModel struct {
	model    ports.Predictor
	declared []string
}

func (m *GenericModel) Predict(rows [][]float64) ([]float64, error) {
	return m.model.Predict(rows)
}

func (m *GenericModel) DeclaredFlavors() []string {
	return m.declared
}

// NewGenericLoader loads the model through the flavor python_function
// delegates to, then through any other declared flavor it knows.
func NewGenericLoader(known []ports.Flavor) ports.GenericLoader {
	return func(dir string) (ports.GenericModel, error) {
		desc, err := ReadDescriptor(dir)
		if err != nil {
			return nil, err
		}
		declared := desc.FlavorNames()

		var errs []error
		for _, f := range orderFor(desc, known) {
			model, err := f.Load(dir)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
				continue
			}
			log.WithFields(log.Fields{"flavor": f.Name, "dir": dir}).Debug("generic predictor loaded")
			return &GenericModel{model: model, declared: declared}, nil
		}

		if len(errs) == 0 {
			return nil, fmt.Errorf("no supported flavor among %v", declared)
		}
		return nil, errors.Join(errs...)
	}
}

// orderFor puts the python_function delegate first, followed by the other
// declared flavors in chain order.
func orderFor(desc *Descriptor, known []ports.Flavor) []ports.Flavor {
	preferred := desc.LoaderFlavor()
	ordered := make([]ports.Flavor, 0, len(known))
	for _, f := range known {
		if f.Name == preferred {
			ordered = append(ordered, f)
		}
	}
	for _, f := range known {
		if f.Name != preferred && desc.Declares(f.Name) {
			ordered = append(ordered, f)
		}
	}
	return ordered
}
