package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"

	"github.com/jmorales/etlwatch/internal/config"
	"github.com/jmorales/etlwatch/internal/dataset"
)

// CSVExtractor reads a delimited file whose first row is the header. Rows
// whose field count differs from the header are a format error, never padded.
type CSVExtractor struct {
	cfg config.SourceConfig
}

func NewCSVExtractor(cfg config.SourceConfig) *CSVExtractor {
	if cfg.Delimiter == "" {
		cfg.Delimiter = config.DefaultDelimiter
	}
	return &CSVExtractor{cfg: cfg}
}

func (e *CSVExtractor) Name() string {
	return e.cfg.Name
}

func (e *CSVExtractor) ValidateSource(ctx context.Context) bool {
	info, err := os.Stat(e.cfg.Path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func (e *CSVExtractor) Extract(ctx context.Context) (*dataset.Dataset, error) {
	f, err := os.Open(e.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, e.cfg.Path)
	}
	defer f.Close()

	body, err := decodeReader(f, e.cfg.Encoding)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(body)
	r.Comma = rune(e.cfg.Delimiter[0])

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s has no header row", ErrSourceFormat, e.cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrSourceFormat, err)
	}

	ds := dataset.New(header)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if errors.Is(err, csv.ErrFieldCount) {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrSourceFormat, line, len(row), len(header))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceFormat, err)
		}

		rec := make(dataset.Record, len(header))
		for i, col := range header {
			if row[i] == "" {
				rec[col] = nil
				continue
			}
			rec[col] = row[i]
		}
		if err := ds.Append(rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceFormat, err)
		}
	}
	return ds, nil
}

func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch encoding {
	case "", "utf-8", "utf8":
		return r, nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	default:
		return nil, fmt.Errorf("%w: unsupported encoding %q", ErrSourceFormat, encoding)
	}
}
