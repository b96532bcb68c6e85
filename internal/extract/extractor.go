package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmorales/etlwatch/internal/config"
	"github.com/jmorales/etlwatch/internal/dataset"
)

// Extraction failure classes. Callers match them with errors.Is: a missing
// source may be retried or skipped, malformed content will not change on
// retry, and auth failures need a configuration fix.
var (
	ErrSourceNotFound = errors.New("source not found")
	ErrSourceFormat   = errors.New("source format invalid")
	ErrSourceAuth     = errors.New("source authentication failed")
)

// Extractor turns one configured data source into a tabular dataset.
type Extractor interface {
	Name() string

	// ValidateSource reports whether the source is reachable and readable.
	// It never returns an error for a missing or unreachable source.
	ValidateSource(ctx context.Context) bool

	// Extract reads the source once and returns an immutable dataset. The
	// column set is stable across repeated calls on unchanged input.
	Extract(ctx context.Context) (*dataset.Dataset, error)
}

// New builds the extractor for the source's declared kind.
func New(cfg config.SourceConfig) (Extractor, error) {
	switch cfg.Type {
	case "csv":
		return NewCSVExtractor(cfg), nil
	case "json":
		return NewJSONExtractor(cfg), nil
	case "api":
		return NewAPIExtractor(cfg), nil
	case "database":
		return NewDatabaseExtractor(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Type)
	}
}
