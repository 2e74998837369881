package model

import "time"

// Snapshot is the complete result of one refresh cycle.
type Snapshot struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Regime     Regime
	Requested  int
	Failed     int
	Rows       []InstrumentMetrics // sorted by WindowRateOfChange, highest first
}

// Summary aggregates the rows of a snapshot.
type Summary struct {
	Processed     int
	Up            int
	Down          int
	AverageChange float64
}

// Summary computes the aggregate tiles shown above the table.
func (s *Snapshot) Summary() Summary {
	var sum Summary
	if s == nil {
		return sum
	}
	total := 0.0
	for _, r := range s.Rows {
		switch {
		case r.PercentChangeDaily > 0:
			sum.Up++
		case r.PercentChangeDaily < 0:
			sum.Down++
		}
		total += r.PercentChangeDaily
	}
	sum.Processed = len(s.Rows)
	if sum.Processed > 0 {
		sum.AverageChange = total / float64(sum.Processed)
	}
	return sum
}

// Empty reports whether the cycle produced no rows.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Rows) == 0
}

// RefreshSummary is the persisted record of a completed refresh cycle.
type RefreshSummary struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Regime        Regime    `json:"regime"`
	Requested     int       `json:"requested"`
	Processed     int       `json:"processed"`
	Failed        int       `json:"failed"`
	AverageChange float64   `json:"average_change"`
}
