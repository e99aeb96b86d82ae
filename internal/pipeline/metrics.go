package pipeline

import (
	"time"

	"cutout/internal/debug/timing"
)

// Summary describes one run.
type Summary struct {
	RunID     string
	Total     int
	Processed int
	Failed    int
	// Skipped counts records never started because the run stopped early.
	Skipped  int
	Errors   []*RecordError
	Duration time.Duration
	Timings  []timing.Summary
}

// OK reports whether every record was processed.
func (s *Summary) OK() bool {
	return s.Failed == 0 && s.Skipped == 0 && s.Processed == s.Total
}
