package history

import "time"

const SchemaVersion = 1

type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// Run is one journaled bootstrap or load.
type Run struct {
	ID         string        `json:"id"`
	Command    string        `json:"command"`
	BaseDir    string        `json:"base_dir"`
	EntryPoint string        `json:"entry_point,omitempty"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`
	Files      int           `json:"files"`
	Packages   int           `json:"packages"`
	Objects    int           `json:"objects"`
	Outcome    Outcome       `json:"outcome"`
	ErrorCode  string        `json:"error_code,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Summary aggregates the journal.
type Summary struct {
	Runs        int           `json:"runs"`
	Failed      int           `json:"failed"`
	LastRun     time.Time     `json:"last_run"`
	AvgDuration time.Duration `json:"avg_duration"`
}
