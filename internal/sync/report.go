package sync

import (
	"time"

	"github.com/google/uuid"
)

// CycleResult is the result of one per-user sync cycle
type CycleResult struct {
	// ID is the user record ID the cycle ran for
	ID string `json:"id"`

	// Outcome tags how the cycle ended
	Outcome Outcome `json:"outcome"`

	// Err holds the failure for failed outcomes, nil otherwise
	Err error `json:"-"`
}

// BatchReport summarizes one full batch over all enrolled users
type BatchReport struct {
	// ID uniquely identifies the batch run
	ID string `json:"id"`

	// StartedAt is when the batch began
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the last cycle finished
	CompletedAt time.Time `json:"completed_at"`

	// Results holds one entry per processed user, in processing order
	Results []CycleResult `json:"results"`
}

func newBatchReport(startedAt time.Time) *BatchReport {
	return &BatchReport{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
	}
}

// Processed returns the number of users the batch attempted
func (r *BatchReport) Processed() int {
	return len(r.Results)
}

// Failures returns the number of failed cycles
func (r *BatchReport) Failures() int {
	count := 0
	for _, result := range r.Results {
		if result.Outcome.Failed() {
			count++
		}
	}
	return count
}

// Duration returns the wall-clock time the batch took
func (r *BatchReport) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
