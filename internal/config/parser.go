// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/trueticket/deployctl/internal/models"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.DeployConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.DeployConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.DeployConfig, error) {
	cfg := &models.DeployConfig{}

	// Parse target config (required).
	cfg.Target = models.TargetConfig{
		Host:           p.v.GetString("target.host"),
		Port:           p.v.GetInt("target.port"),
		Username:       p.v.GetString("target.username"),
		Password:       p.expandEnv(p.v.GetString("target.password")),
		KeyPath:        p.expandEnv(p.v.GetString("target.key_path")),
		KnownHostsPath: p.expandEnv(p.v.GetString("target.known_hosts_path")),
		StrictHostKey:  p.v.GetBool("target.strict_host_key"),
		ConnectTimeout: p.v.GetDuration("target.connect_timeout"),
		CommandTimeout: p.v.GetDuration("target.command_timeout"),
	}

	if cfg.Target.Host == "" {
		return nil, fmt.Errorf("target.host is required")
	}
	if cfg.Target.Username == "" {
		return nil, fmt.Errorf("target.username is required")
	}
	if cfg.Target.Password == "" && cfg.Target.KeyPath == "" {
		return nil, fmt.Errorf("target.password or target.key_path is required")
	}

	// Set defaults.
	if cfg.Target.Port == 0 {
		cfg.Target.Port = 22
	}
	if cfg.Target.ConnectTimeout == 0 {
		cfg.Target.ConnectTimeout = 30 * time.Second
	}
	if cfg.Target.CommandTimeout == 0 {
		cfg.Target.CommandTimeout = 5 * time.Minute
	}
	if cfg.Target.StrictHostKey && cfg.Target.KnownHostsPath == "" {
		cfg.Target.KnownHostsPath = os.ExpandEnv("$HOME/.ssh/known_hosts")
	}

	// Parse command list (required). Entries may be bare strings or
	// maps with run/timeout/best_effort keys.
	if err := p.v.UnmarshalKey("commands", &cfg.Commands, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToCommandSpecHook(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)); err != nil {
		return nil, fmt.Errorf("parsing commands: %w", err)
	}

	if len(cfg.Commands) == 0 {
		return nil, fmt.Errorf("commands is required")
	}
	for i, cmd := range cfg.Commands {
		if strings.TrimSpace(cmd.Run) == "" {
			return nil, fmt.Errorf("commands[%d].run is required", i)
		}
	}

	// Parse report settings.
	cfg.Report = models.ReportConfig{
		Title: p.v.GetString("report.title"),
		URLs:  p.v.GetStringSlice("report.urls"),
		Note:  p.v.GetString("report.note"),
	}

	if cfg.Report.Title == "" {
		cfg.Report.Title = "Remote Deployment"
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// stringToCommandSpecHook lets a plain YAML string stand in for a full
// command entry.
func stringToCommandSpecHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(models.CommandSpec{}) {
			return data, nil
		}
		return models.CommandSpec{Run: data.(string)}, nil
	}
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}
