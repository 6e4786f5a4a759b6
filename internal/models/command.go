package models

import "time"

// CommandSpec is one opaque shell command in the deployment plan. Order
// in the plan is significant: later commands assume side effects of
// earlier ones (a pulled working tree, a written env file).
type CommandSpec struct {
	Run        string        `mapstructure:"run" validate:"required,notblank"`
	Timeout    time.Duration `mapstructure:"timeout"`     // zero means the target's CommandTimeout
	BestEffort bool          `mapstructure:"best_effort"` // non-zero exit is expected; never warn
}

// CommandResult holds the outcome of one executed command. It is read
// once, to decide whether a warning is due, and then discarded.
type CommandResult struct {
	ExitStatus int
	StderrText string
	Duration   time.Duration
}
