package model

import "time"

// RunStatus represents the current state of a sweep run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusAborted  RunStatus = "aborted"
	RunStatusFailed   RunStatus = "failed"
)

// SectorStatus describes how a sector sweep ended.
type SectorStatus string

const (
	// SectorExhausted means pagination reached an empty page.
	SectorExhausted SectorStatus = "exhausted"
	// SectorProviderFailure means the search backend failed on some page.
	SectorProviderFailure SectorStatus = "provider_failure"
	// SectorLimitReached means the per-sector item limit was hit.
	SectorLimitReached SectorStatus = "limit_reached"
	// SectorSkipped means the sector could not be searched at all (e.g. no API key).
	SectorSkipped SectorStatus = "skipped"
	// SectorAborted means the run stopped mid-sector.
	SectorAborted SectorStatus = "aborted"
)

// SectorResult holds the counters of one sector sweep.
type SectorResult struct {
	Sector    string       `json:"sector"`
	Status    SectorStatus `json:"status"`
	Pages     int          `json:"pages"`
	Processed int          `json:"processed"`
	Accepted  int          `json:"accepted"`
	Reason    string       `json:"reason,omitempty"`
}

// RunSummary aggregates the sector results of one run.
type RunSummary struct {
	Sectors   []SectorResult `json:"sectors"`
	Processed int            `json:"processed"`
	Accepted  int            `json:"accepted"`
	Aborted   bool           `json:"aborted,omitempty"`
}

// Add appends a sector result and folds its counters into the totals.
func (s *RunSummary) Add(r SectorResult) {
	s.Sectors = append(s.Sectors, r)
	s.Processed += r.Processed
	s.Accepted += r.Accepted
}

// Run is a persisted sweep run.
type Run struct {
	ID         string      `json:"id"`
	Provider   string      `json:"provider"`
	Oracle     string      `json:"oracle"`
	LedgerPath string      `json:"ledger_path"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
