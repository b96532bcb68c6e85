package extract

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/jmorales/etlwatch/internal/config"
	"github.com/jmorales/etlwatch/internal/dataset"
)

// DatabaseExtractor runs one SQL query over MySQL and turns the result set
// into a dataset. Column order follows the result set; SQL NULL becomes the
// dataset null marker.
type DatabaseExtractor struct {
	cfg     config.SourceConfig
	timeout time.Duration
}

func NewDatabaseExtractor(cfg config.SourceConfig) *DatabaseExtractor {
	return &DatabaseExtractor{cfg: cfg, timeout: 30 * time.Second}
}

func (e *DatabaseExtractor) Name() string {
	return e.cfg.Name
}

func (e *DatabaseExtractor) ValidateSource(ctx context.Context) bool {
	db, err := sql.Open("mysql", e.cfg.DSN)
	if err != nil {
		return false
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx) == nil
}

func (e *DatabaseExtractor) Extract(ctx context.Context) (*dataset.Dataset, error) {
	db, err := sql.Open("mysql", e.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: database ping failed: %v", ErrSourceNotFound, err)
	}

	rows, err := db.QueryContext(ctx, e.cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: query failed: %v", ErrSourceFormat, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceFormat, err)
	}

	ds := dataset.New(columns)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: scan row: %v", ErrSourceFormat, err)
		}

		rec := make(dataset.Record, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case nil:
				rec[col] = nil
			case []byte:
				// The mysql driver returns text columns as []byte.
				rec[col] = string(v)
			default:
				rec[col] = v
			}
		}
		if err := ds.Append(rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceFormat, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return ds, nil
}
