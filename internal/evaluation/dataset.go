package evaluation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	FeaturesFile = "X_test.csv"
	LabelsFile   = "y_test.csv"
)

// Dataset is a processed hold-out set: feature rows already in model input
// space and their binary labels.
type Dataset struct {
	Columns []string
	X       [][]float64
	Y       []float64
}

// LoadTestSet reads X_test.csv and y_test.csv from dir. Both files carry a
// header row.
func LoadTestSet(dir string) (*Dataset, error) {
	columns, x, err := readMatrix(filepath.Join(dir, FeaturesFile))
	if err != nil {
		return nil, err
	}
	_, labels, err := readMatrix(filepath.Join(dir, LabelsFile))
	if err != nil {
		return nil, err
	}

	if len(labels) != len(x) {
		return nil, fmt.Errorf("%s has %d rows, %s has %d", FeaturesFile, len(x), LabelsFile, len(labels))
	}
	y := make([]float64, len(labels))
	for i, row := range labels {
		if len(row) != 1 {
			return nil, fmt.Errorf("%s row %d: want one column, got %d", LabelsFile, i+1, len(row))
		}
		y[i] = row[0]
	}

	return &Dataset{Columns: columns, X: x, Y: y}, nil
}

func readMatrix(path string) ([]string, [][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("test data not found: %s", path)
		}
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	var rows [][]float64
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		row := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s line %d column %s: %w", path, line, header[i], err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s has no rows", path)
	}
	return header, rows, nil
}
