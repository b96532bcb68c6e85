package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/jmorales/etlwatch/internal/dataset"
)

// Strategy controls what happens to rows already in the target table.
type Strategy string

const (
	StrategyReplace Strategy = "replace" // truncate, then insert
	StrategyAppend  Strategy = "append"
)

// Loader writes datasets into PostgreSQL warehouse tables. Each Load runs in
// one transaction per table; there is no atomicity across tables.
type Loader struct {
	db *sql.DB
}

func Open(dsn string) (*Loader, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("warehouse ping failed: %w", err)
	}
	return &Loader{db: db}, nil
}

func (l *Loader) Close() error {
	return l.db.Close()
}

// Load inserts every record of ds into table. The table must already exist
// with columns matching the dataset's column set. Returns the number of rows
// written.
func (l *Loader) Load(ctx context.Context, table string, ds *dataset.Dataset, strategy Strategy) (int, error) {
	if len(ds.Columns) == 0 {
		return 0, fmt.Errorf("dataset for table %s has no columns", table)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin load tx: %w", err)
	}
	defer tx.Rollback()

	if strategy == StrategyReplace {
		if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE "+pq.QuoteIdentifier(table)); err != nil {
			return 0, fmt.Errorf("truncate %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, insertStatement(table, ds.Columns))
	if err != nil {
		return 0, fmt.Errorf("prepare insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for i := range ds.Records {
		args := make([]any, len(ds.Columns))
		for j, col := range ds.Columns {
			args[j] = ds.Records[i][col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d into %s: %w", i, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit load tx: %w", err)
	}
	return ds.Len(), nil
}

func insertStatement(table string, columns []string) string {
	quoted := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pq.QuoteIdentifier(col)
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(params, ", "))
}
