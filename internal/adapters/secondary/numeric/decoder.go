package numeric

import (
	"encoding/json"
	"fmt"
	"os"

	"card-approval-service/internal/core/ports/output"
)

// Decoder reads the JSON exports of fitted preprocessing steps.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (Decoder) DecodeScaler(path string) (ports.Transformer, error) {
	var s StandardScaler
	if err := readJSON(path, &s); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

func (Decoder) DecodeReducer(path string) (ports.Transformer, error) {
	var p PCA
	if err := readJSON(path, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

type featureNamesFile struct {
	FeatureNames []string `json:"feature_names"`
}

// DecodeFeatureNames accepts either {"feature_names": [...]} or a bare list.
func (Decoder) DecodeFeatureNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		var wrapped featureNamesFile
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		names = wrapped.FeatureNames
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: empty feature list", path)
	}

	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("%s: duplicate feature %q", path, n)
		}
		seen[n] = struct{}{}
	}
	return names, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
