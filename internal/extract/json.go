package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/jmorales/etlwatch/internal/config"
	"github.com/jmorales/etlwatch/internal/dataset"
)

// JSONExtractor reads a file holding a JSON array of objects. The column set
// is the union of keys across all objects; a key absent from an object is an
// explicit null in that record.
type JSONExtractor struct {
	cfg config.SourceConfig
}

func NewJSONExtractor(cfg config.SourceConfig) *JSONExtractor {
	return &JSONExtractor{cfg: cfg}
}

func (e *JSONExtractor) Name() string {
	return e.cfg.Name
}

func (e *JSONExtractor) ValidateSource(ctx context.Context) bool {
	info, err := os.Stat(e.cfg.Path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func (e *JSONExtractor) Extract(ctx context.Context) (*dataset.Dataset, error) {
	data, err := os.ReadFile(e.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, e.cfg.Path)
		}
		return nil, fmt.Errorf("read %s: %w", e.cfg.Path, err)
	}
	return objectsToDataset(data, e.cfg.Path)
}

// objectsToDataset parses a JSON array of objects into a dataset. Key order
// is first-seen order across records so repeated extractions of unchanged
// input declare the same column set.
func objectsToDataset(data []byte, origin string) (*dataset.Dataset, error) {
	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON array of objects: %v", ErrSourceFormat, origin, err)
	}

	var columns []string
	seen := make(map[string]bool)
	for _, obj := range objects {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}

	ds := dataset.New(columns)
	for _, obj := range objects {
		if err := ds.Append(dataset.Record(obj)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceFormat, err)
		}
	}
	return ds, nil
}
