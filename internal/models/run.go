package models

import "time"

// RunSummary holds the outcome of a whole deployment run, for logging
// and the optional completion notification.
type RunSummary struct {
	Host      string
	StartTime time.Time
	Duration  time.Duration
	Success   bool

	Commands int // commands fully executed
	Warnings int // non-zero exit statuses reported

	// Error info (if the run failed).
	FailedCommand string
	ErrorMessage  string
}
