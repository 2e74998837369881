package recorder

import "SP500Tracker/internal/model"

// Recorder persists completed refresh cycles for later analysis.
type Recorder interface {
	// RecordRefresh stores the cycle summary and every row atomically.
	RecordRefresh(snap *model.Snapshot) error
	// History returns the most recent cycle summaries, newest first.
	History(limit int) ([]model.RefreshSummary, error)
	Close() error
}

// DefaultHistoryLimit bounds History when the caller passes a non-positive limit.
const DefaultHistoryLimit = 20
