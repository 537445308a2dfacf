package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// Status is the outcome of one stage.
type Status string

const (
	// StatusOK means Handle returned nil.
	StatusOK Status = "ok"
	// StatusSkipped means the stage was disabled or inactive.
	StatusSkipped Status = "skipped"
	// StatusFailed means Handle returned an error or panicked.
	StatusFailed Status = "failed"
)

// StageOutcome records what happened to one stage.
type StageOutcome struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Err     error         `json:"-"`
	Elapsed time.Duration `json:"elapsed"`
}

// Report lists the outcome of every registered stage, in execution order.
type Report struct {
	Outcomes []StageOutcome `json:"outcomes"`
}

// Failed returns the outcomes of failed stages.
func (r *Report) Failed() []StageOutcome {
	if r == nil {
		return nil
	}
	failed := make([]StageOutcome, 0)
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Err joins the errors of all failed stages, or returns nil.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, len(failed))
	for i, o := range failed {
		errs[i] = fmt.Errorf("stage %s: %w", o.Name, o.Err)
	}
	return errors.Join(errs...)
}

// Outcome returns the outcome of the named stage.
func (r *Report) Outcome(name string) (StageOutcome, bool) {
	if r == nil {
		return StageOutcome{}, false
	}
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return StageOutcome{}, false
}
