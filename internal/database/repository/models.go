package repository

import "time"

// Run is one recorded batch invocation.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    *time.Time
	AccountsTotal int
	BatchSize     int
	StartFrom     int
	Status        string // running | done | aborted
}

// AccountReport is the persisted form of one account's reconciliation
// report.
type AccountReport struct {
	ID          string
	RunID       string
	Position    int
	Folder      string
	Status      string
	Confidence  float64
	MatchedName *string
	Ambiguous   bool
	Note        *string
	CreatedAt   time.Time
}

// FileOutcome is the persisted classification of one source file.
type FileOutcome struct {
	ID           string
	ReportID     string
	Position     int
	OriginalName string
	Status       string
	ExpectedName string
	MatchedName  *string
}
