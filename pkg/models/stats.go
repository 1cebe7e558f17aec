package models

import "time"

// RunResult aggregates one reconciliation pass. A file contributes to at
// most one of copied/mismatched, and to missing only when the external
// side is gone.
type RunResult struct {
	Copied     int
	Verified   int
	Mismatched int
	Missing    int
	ErrorLines []string
}

// Run is one persisted row of the run history table.
type Run struct {
	ID         int64
	Project    string
	StartedAt  time.Time
	FinishedAt time.Time
	Copied     int
	Verified   int
	Mismatched int
	Missing    int
	Errors     int
}

// Stats accumulates run history totals for a project.
type Stats struct {
	TotalRuns       int64
	TotalCopied     int64
	TotalVerified   int64
	TotalMismatched int64
	TotalMissing    int64
	TotalErrors     int64
}
