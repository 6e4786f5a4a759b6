package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/trueticket/deployctl/internal/models"
)

var validate = validator.New()

func init() {
	_ = validate.RegisterValidation("notblank", validateNotBlank)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Validate checks a deployment configuration against the structural
// rules shared by file-based and built-in plans.
func Validate(cfg *models.DeployConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Target.Password == "" && cfg.Target.KeyPath == "" {
		return fmt.Errorf("target.password or target.key_path is required")
	}

	if cfg.Target.StrictHostKey && cfg.Target.KnownHostsPath == "" {
		return fmt.Errorf("target.known_hosts_path is required when strict_host_key is set")
	}

	return nil
}
