package flavors

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"card-approval-service/internal/core/domain"
)

// PyFuncFlavor is the flavor every logged model declares for generic loading.
const PyFuncFlavor = "python_function"

// Descriptor is the parsed MLmodel file of a logged model.
type Descriptor struct {
	ArtifactPath   string                    `yaml:"artifact_path"`
	RunID          string                    `yaml:"run_id"`
	ModelUUID      string                    `yaml:"model_uuid"`
	UTCTimeCreated string                    `yaml:"utc_time_created"`
	Flavors        map[string]map[string]any `yaml:"flavors"`
}

// ReadDescriptor parses dir/MLmodel.
func ReadDescriptor(dir string) (*Descriptor, error) {
	data, err := os.ReadFile(filepath.Join(dir, domain.ModelDescriptorFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no %s in %s", domain.ErrArtifactNotFound, domain.ModelDescriptorFile, dir)
		}
		return nil, err
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", domain.ModelDescriptorFile, err)
	}
	return &d, nil
}

// FlavorNames lists the declared flavors in name order.
func (d *Descriptor) FlavorNames() []string {
	names := make([]string, 0, len(d.Flavors))
	for name := range d.Flavors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Descriptor) Declares(flavor string) bool {
	_, ok := d.Flavors[flavor]
	return ok
}

// Option returns a string option of a declared flavor.
func (d *Descriptor) Option(flavor, key string) string {
	opts, ok := d.Flavors[flavor]
	if !ok {
		return ""
	}
	v, _ := opts[key].(string)
	return v
}

// LoaderFlavor names the native flavor the generic loader delegates to, as
// declared by python_function.loader_module (mlflow.xgboost -> xgboost).
func (d *Descriptor) LoaderFlavor() string {
	module := d.Option(PyFuncFlavor, "loader_module")
	return strings.TrimPrefix(module, "mlflow.")
}
