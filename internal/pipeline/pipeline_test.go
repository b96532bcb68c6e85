package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmorales/etlwatch/internal/config"
	"github.com/jmorales/etlwatch/internal/dataset"
	"github.com/jmorales/etlwatch/internal/warehouse"
	"github.com/jmorales/etlwatch/pkg/types"
)

type fakeWarehouse struct {
	loads map[string]int
	last  warehouse.Strategy
}

func (f *fakeWarehouse) Load(ctx context.Context, table string, ds *dataset.Dataset, strategy warehouse.Strategy) (int, error) {
	if f.loads == nil {
		f.loads = make(map[string]int)
	}
	f.loads[table] = ds.Len()
	f.last = strategy
	return ds.Len(), nil
}

type fakeReportingWarehouse struct {
	fakeWarehouse
	segments []warehouse.RFMSegment
	err      error
	calls    int
}

func (f *fakeReportingWarehouse) RFMSegments(ctx context.Context) ([]warehouse.RFMSegment, error) {
	f.calls++
	return f.segments, f.err
}

type fakeAlerter struct {
	status  string
	payload any
	calls   int
}

func (f *fakeAlerter) Publish(ctx context.Context, status string, payload any) error {
	f.status = status
	f.payload = payload
	f.calls++
	return nil
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunExtractsAndChecksAllSources(t *testing.T) {
	dir := t.TempDir()
	sales := writeCSV(t, dir, "sales.csv", "order_id,total\n1,10\n2,20\n3,30\n")

	cfg := &config.Config{Sources: []config.SourceConfig{
		{Name: "sales", Type: "csv", Path: sales, Delimiter: ",", Encoding: "utf-8",
			Quality: config.QualityConfig{KeyColumns: []string{"order_id"}}},
	}}

	result := New(cfg).Run(context.Background())
	if result.Status != types.RunSuccess {
		t.Fatalf("expected SUCCESS, got %s", result.Status)
	}
	if result.TotalRecords != 3 {
		t.Fatalf("expected 3 records, got %d", result.TotalRecords)
	}
	if len(result.Sources) != 1 || result.Sources[0].Status != types.SourceOK {
		t.Fatalf("unexpected source results: %+v", result.Sources)
	}
	if result.Sources[0].Report == nil || !result.Sources[0].Report.Passed {
		t.Fatalf("expected passing quality report")
	}
}

func TestRunSkipsMissingSourceAndContinues(t *testing.T) {
	dir := t.TempDir()
	good := writeCSV(t, dir, "good.csv", "a\n1\n")

	cfg := &config.Config{Sources: []config.SourceConfig{
		{Name: "missing", Type: "csv", Path: filepath.Join(dir, "nope.csv"), Delimiter: ","},
		{Name: "good", Type: "csv", Path: good, Delimiter: ","},
	}}

	result := New(cfg).Run(context.Background())
	if result.Sources[0].Status != types.SourceSkipped {
		t.Fatalf("expected missing source skipped, got %s", result.Sources[0].Status)
	}
	if result.Sources[1].Status != types.SourceOK {
		t.Fatalf("expected second source extracted, got %+v", result.Sources[1])
	}
	// A skipped source is not a failure.
	if result.Status != types.RunSuccess {
		t.Fatalf("expected SUCCESS with skip, got %s", result.Status)
	}
}

func TestRunQualityFailureFailsRunButContinues(t *testing.T) {
	dir := t.TempDir()
	dupes := writeCSV(t, dir, "dupes.csv", "id\n1\n1\n1\n1\n")
	zero := 0.0

	cfg := &config.Config{Sources: []config.SourceConfig{
		{Name: "dupes", Type: "csv", Path: dupes, Delimiter: ",",
			Quality: config.QualityConfig{KeyColumns: []string{"id"}, DuplicateThreshold: &zero}},
	}}

	result := New(cfg).Run(context.Background())
	if result.Sources[0].Status != types.SourceQualityFailed {
		t.Fatalf("expected QUALITY_FAILED, got %s", result.Sources[0].Status)
	}
	if result.Status != types.RunFailed {
		t.Fatalf("expected run FAILED, got %s", result.Status)
	}
}

func TestRunFormatErrorRecordedPerSource(t *testing.T) {
	dir := t.TempDir()
	bad := writeCSV(t, dir, "bad.csv", "a,b\n1\n")

	cfg := &config.Config{Sources: []config.SourceConfig{
		{Name: "bad", Type: "csv", Path: bad, Delimiter: ","},
	}}

	result := New(cfg).Run(context.Background())
	if result.Sources[0].Status != types.SourceError {
		t.Fatalf("expected ERROR, got %s", result.Sources[0].Status)
	}
	if result.Sources[0].Error == "" {
		t.Fatalf("expected error message recorded")
	}
	if result.Status != types.RunFailed {
		t.Fatalf("expected run FAILED")
	}
}

func TestRunLoadsPassingDatasets(t *testing.T) {
	dir := t.TempDir()
	sales := writeCSV(t, dir, "sales.csv", "order_id\n1\n2\n")

	cfg := &config.Config{
		Sources: []config.SourceConfig{
			{Name: "sales", Type: "csv", Path: sales, Delimiter: ","},
		},
		Warehouse: &config.WarehouseConfig{
			DSN:    "postgres://unused",
			Tables: map[string]string{"sales": "fact_sales"},
		},
	}

	fw := &fakeWarehouse{}
	result := New(cfg).WithWarehouse(fw).Run(context.Background())
	if result.Sources[0].Loaded != 2 {
		t.Fatalf("expected 2 rows loaded, got %d", result.Sources[0].Loaded)
	}
	if fw.loads["fact_sales"] != 2 {
		t.Fatalf("expected load into fact_sales, got %v", fw.loads)
	}
	if fw.last != warehouse.StrategyAppend {
		t.Fatalf("fact tables append, got %s", fw.last)
	}
}

func TestRunDimensionTablesReplaced(t *testing.T) {
	dir := t.TempDir()
	customers := writeCSV(t, dir, "customers.csv", "customer_id\n1\n")

	cfg := &config.Config{
		Sources: []config.SourceConfig{
			{Name: "customers", Type: "csv", Path: customers, Delimiter: ","},
		},
		Warehouse: &config.WarehouseConfig{
			DSN:    "postgres://unused",
			Tables: map[string]string{"customers": "dim_customer"},
		},
	}

	fw := &fakeWarehouse{}
	New(cfg).WithWarehouse(fw).Run(context.Background())
	if fw.last != warehouse.StrategyReplace {
		t.Fatalf("dimension tables replace, got %s", fw.last)
	}
}

func TestRunDoesNotLoadFailingDataset(t *testing.T) {
	dir := t.TempDir()
	dupes := writeCSV(t, dir, "dupes.csv", "id\n1\n1\n")
	zero := 0.0

	cfg := &config.Config{
		Sources: []config.SourceConfig{
			{Name: "dupes", Type: "csv", Path: dupes, Delimiter: ",",
				Quality: config.QualityConfig{KeyColumns: []string{"id"}, DuplicateThreshold: &zero}},
		},
		Warehouse: &config.WarehouseConfig{
			DSN:    "postgres://unused",
			Tables: map[string]string{"dupes": "fact_dupes"},
		},
	}

	fw := &fakeWarehouse{}
	result := New(cfg).WithWarehouse(fw).Run(context.Background())
	if len(fw.loads) != 0 {
		t.Fatalf("failing dataset must not be loaded, got %v", fw.loads)
	}
	if result.Sources[0].Loaded != 0 {
		t.Fatalf("expected no rows loaded")
	}
}

func TestRunSegmentsCustomersAfterLoad(t *testing.T) {
	dir := t.TempDir()
	sales := writeCSV(t, dir, "sales.csv", "customer_id\nCUST-001\nCUST-002\n")

	cfg := &config.Config{
		Sources: []config.SourceConfig{
			{Name: "sales", Type: "csv", Path: sales, Delimiter: ","},
		},
		Warehouse: &config.WarehouseConfig{
			DSN:    "postgres://unused",
			Tables: map[string]string{"sales": "fact_sales"},
		},
	}

	fw := &fakeReportingWarehouse{segments: []warehouse.RFMSegment{
		{CustomerID: "CUST-001", Recency: 1, Frequency: 5, Monetary: 5, TotalSpent: 530.5, Segment: "Champions"},
		{CustomerID: "CUST-002", Recency: 4, Frequency: 1, Monetary: 2, TotalSpent: 15.99, Segment: "Hibernating"},
	}}
	result := New(cfg).WithWarehouse(fw).Run(context.Background())

	if fw.calls != 1 {
		t.Fatalf("expected one segmentation pass, got %d", fw.calls)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments on the run result, got %d", len(result.Segments))
	}
	if result.Segments[0].Segment != "Champions" || result.Segments[0].TotalSpent != 530.5 {
		t.Fatalf("segment rows not carried through: %+v", result.Segments[0])
	}
	if result.Status != types.RunSuccess {
		t.Fatalf("expected SUCCESS, got %s", result.Status)
	}
}

func TestRunSegmentationErrorIsWarningNotFailure(t *testing.T) {
	dir := t.TempDir()
	sales := writeCSV(t, dir, "sales.csv", "customer_id\nCUST-001\n")

	cfg := &config.Config{
		Sources: []config.SourceConfig{
			{Name: "sales", Type: "csv", Path: sales, Delimiter: ","},
		},
		Warehouse: &config.WarehouseConfig{
			DSN:    "postgres://unused",
			Tables: map[string]string{"sales": "fact_sales"},
		},
	}

	fw := &fakeReportingWarehouse{err: errors.New("relation fact_sales does not exist")}
	result := New(cfg).WithWarehouse(fw).Run(context.Background())

	if result.Status != types.RunSuccess {
		t.Fatalf("a failed report query must not fail the run, got %s", result.Status)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected the query error as a warning, got %v", result.Warnings)
	}
	if len(result.Segments) != 0 {
		t.Fatalf("expected no segments on error")
	}
}

func TestRunNoSegmentationWithoutWarehouseConfig(t *testing.T) {
	dir := t.TempDir()
	sales := writeCSV(t, dir, "sales.csv", "customer_id\nCUST-001\n")

	cfg := &config.Config{Sources: []config.SourceConfig{
		{Name: "sales", Type: "csv", Path: sales, Delimiter: ","},
	}}

	fw := &fakeReportingWarehouse{}
	New(cfg).WithWarehouse(fw).Run(context.Background())
	if fw.calls != 0 {
		t.Fatalf("segmentation must only run when the warehouse is configured")
	}
}

func TestRunPublishesResult(t *testing.T) {
	dir := t.TempDir()
	good := writeCSV(t, dir, "good.csv", "a\n1\n")

	cfg := &config.Config{Sources: []config.SourceConfig{
		{Name: "good", Type: "csv", Path: good, Delimiter: ","},
	}}

	fa := &fakeAlerter{}
	result := New(cfg).WithAlerter(fa).Run(context.Background())
	if fa.calls != 1 {
		t.Fatalf("expected one publish, got %d", fa.calls)
	}
	if fa.status != types.RunSuccess {
		t.Fatalf("expected SUCCESS published, got %s", fa.status)
	}
	if fa.payload != result {
		t.Fatalf("expected run result as payload")
	}
}
