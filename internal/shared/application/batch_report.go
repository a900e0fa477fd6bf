package application

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies what a batch job did with one record.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"
)

// RecordResult is the per-record entry of a BatchReport.
type RecordResult struct {
	RecordID uuid.UUID
	Action   string
	Outcome  Outcome
	Err      error
}

// BatchReport collects the results of one run of a periodic job so that bad
// records are reported instead of aborting the run.
type BatchReport struct {
	Job        string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []RecordResult
	Cancelled  bool
}

// NewBatchReport starts a report for job.
func NewBatchReport(job string, startedAt time.Time) *BatchReport {
	return &BatchReport{Job: job, StartedAt: startedAt}
}

// Success records a record that was processed.
func (r *BatchReport) Success(id uuid.UUID, action string) {
	r.Results = append(r.Results, RecordResult{RecordID: id, Action: action, Outcome: OutcomeSuccess})
}

// Skip records a record that was deliberately left alone.
func (r *BatchReport) Skip(id uuid.UUID, action string) {
	r.Results = append(r.Results, RecordResult{RecordID: id, Action: action, Outcome: OutcomeSkipped})
}

// Fail records a record whose processing failed.
func (r *BatchReport) Fail(id uuid.UUID, action string, err error) {
	r.Results = append(r.Results, RecordResult{RecordID: id, Action: action, Outcome: OutcomeError, Err: err})
}

// Count returns how many results have the given outcome.
func (r *BatchReport) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// CountAction returns how many successful results carry action.
func (r *BatchReport) CountAction(action string) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomeSuccess && res.Action == action {
			n++
		}
	}
	return n
}

// Errors returns the failed results.
func (r *BatchReport) Errors() []RecordResult {
	var out []RecordResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeError {
			out = append(out, res)
		}
	}
	return out
}

// Changed reports whether any record was processed successfully.
func (r *BatchReport) Changed() bool {
	return r.Count(OutcomeSuccess) > 0
}

// Finish stamps the end of the run.
func (r *BatchReport) Finish(at time.Time) {
	r.FinishedAt = at
}

// String summarizes the report for logs and CLI output.
func (r *BatchReport) String() string {
	return fmt.Sprintf("%s: %d ok, %d skipped, %d failed",
		r.Job, r.Count(OutcomeSuccess), r.Count(OutcomeSkipped), r.Count(OutcomeError))
}
