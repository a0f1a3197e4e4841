package ports

import (
	"context"

	"strata/internal/data/history"
	"strata/internal/engine/runtime"
)

// RunJournal abstracts run persistence for the history workflow.
type RunJournal interface {
	Record(run history.Run) error
	Recent(limit int) ([]history.Run, error)
	Summarize() (history.Summary, error)
}

// RunRequest overrides the configured base directory and entry point when
// set.
type RunRequest struct {
	BaseDir    string
	EntryPoint string
}

// InspectRequest overrides the configured base directory when set.
type InspectRequest struct {
	BaseDir string
}

// HistoryResult lists recent runs and the journal summary.
type HistoryResult struct {
	Runs    []history.Run
	Summary history.Summary
}

// RuntimeService is the driving port used by the CLI.
type RuntimeService interface {
	Run(ctx context.Context, req RunRequest) (*runtime.Report, error)
	Inspect(ctx context.Context, req InspectRequest) (*runtime.Report, error)
	Watch(ctx context.Context) error
	History(ctx context.Context, limit int) (HistoryResult, error)
}
