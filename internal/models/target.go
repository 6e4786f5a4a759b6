package models

import "time"

// TargetConfig describes the single remote host a run deploys to. The
// credential is never compiled in: Password is resolved from the
// environment (or a config file with env expansion) and KeyPath points
// at an optional private key as the alternative auth method.
type TargetConfig struct {
	Host           string        `validate:"required"`
	Port           int           `validate:"required,min=1,max=65535"`
	Username       string        `validate:"required"`
	Password       string
	KeyPath        string        // path to a private key file
	KnownHostsPath string        // used only when StrictHostKey is set
	StrictHostKey  bool          // default false: accept any host key on first contact
	ConnectTimeout time.Duration `validate:"required"`
	CommandTimeout time.Duration `validate:"required"` // default per-command timeout
}
