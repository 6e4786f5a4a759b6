// Package models contains the data structures used throughout deployctl.
package models

// DeployConfig holds the complete configuration for one deployment run.
// It is assembled once at startup (from the compiled-in plan or a config
// file) and passed into the runner; nothing mutates it afterwards.
type DeployConfig struct {
	Target   TargetConfig    `validate:"required"`
	Commands []CommandSpec   `validate:"required,min=1,dive"`
	Report   ReportConfig
	Telegram *TelegramConfig // nil if not configured
}

// ReportConfig holds the invoker-facing report texts printed around the run.
type ReportConfig struct {
	Title string   // banner title
	URLs  []string // result URLs printed after completion
	Note  string   // optional closing note
}
