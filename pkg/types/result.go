package types

import (
	"time"

	"github.com/jmorales/etlwatch/internal/quality"
	"github.com/jmorales/etlwatch/internal/warehouse"
)

const (
	RunSuccess = "SUCCESS"
	RunFailed  = "FAILED"

	SourceOK            = "OK"
	SourceSkipped       = "SKIPPED"
	SourceError         = "ERROR"
	SourceQualityFailed = "QUALITY_FAILED"
)

// SourceResult is the outcome of extracting and checking one configured
// source.
type SourceResult struct {
	Source  string          `json:"source"`
	Status  string          `json:"status"`
	Records int             `json:"records"`
	Loaded  int             `json:"loaded,omitempty"`
	Error   string          `json:"error,omitempty"`
	Report  *quality.Report `json:"report,omitempty"`
}

// RunResult summarizes one pipeline run across all sources. Duration is kept
// out of the JSON payload; external consumers get duration_seconds instead of
// a raw nanosecond count.
type RunResult struct {
	Status          string                 `json:"status"`
	StartedAt       time.Time              `json:"started_at"`
	FinishedAt      time.Time              `json:"finished_at"`
	Duration        time.Duration          `json:"-"`
	DurationSeconds float64                `json:"duration_seconds"`
	TotalRecords    int                    `json:"total_records"`
	Sources         []SourceResult         `json:"sources"`
	Segments        []warehouse.RFMSegment `json:"segments,omitempty"`
	Warnings        []string               `json:"warnings,omitempty"`
}
