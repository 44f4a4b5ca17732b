package model

import "fmt"

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

var allowedTransitions = map[string]map[string]bool{
	"": {
		StatusPending: true,
	},
	StatusPending: {
		StatusRunning: true,
		StatusSkipped: true, // output exists and overwrite is disabled; never runs
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
	// Terminal states admit nothing; a finished job never changes again
	// within its batch.
	StatusCompleted: {},
	StatusFailed:    {},
	StatusSkipped:   {},
}

func IsKnownStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func TransitionJob(job *Job, toStatus string) error {
	from := job.Status
	if !CanTransition(from, toStatus) {
		return fmt.Errorf("invalid job status transition: %q -> %q (index=%d input=%s)", from, toStatus, job.Index, job.InputPath)
	}
	job.Status = toStatus
	return nil
}
