package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_LoadReader_MinimalConfig(t *testing.T) {
	yaml := `
target:
  host: "192.0.2.10"
  username: "root"
  password: "secret"
commands:
  - docker ps
  - sleep 15
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", cfg.Target.Host)
	assert.Equal(t, "root", cfg.Target.Username)
	assert.Equal(t, "secret", cfg.Target.Password)
	require.Len(t, cfg.Commands, 2)
	assert.Equal(t, "docker ps", cfg.Commands[0].Run)
	assert.Equal(t, "sleep 15", cfg.Commands[1].Run)
	// Check defaults
	assert.Equal(t, 22, cfg.Target.Port)
	assert.Equal(t, 30*time.Second, cfg.Target.ConnectTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Target.CommandTimeout)
	assert.Equal(t, "Remote Deployment", cfg.Report.Title)
}

func TestParser_LoadReader_FullConfig(t *testing.T) {
	yaml := `
target:
  host: "deploy.example.com"
  port: 2222
  username: "deploy"
  key_path: "/home/deploy/.ssh/id_ed25519"
  known_hosts_path: "/home/deploy/.ssh/known_hosts"
  strict_host_key: true
  connect_timeout: 10s
  command_timeout: 2m

commands:
  - run: "cd /srv/app && git pull origin main"
  - run: "cd /srv/app && docker compose up -d"
    timeout: 10m
  - run: "curl -fsS http://localhost:8080/healthz"
    best_effort: true

report:
  title: "App Deployment"
  urls:
    - "https://app.example.com"
  note: "Allow a minute for the cache to warm."

telegram:
  bot_token: "123456:ABC"
  chat_id: "-100123456789"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)

	// Target config
	assert.Equal(t, "deploy.example.com", cfg.Target.Host)
	assert.Equal(t, 2222, cfg.Target.Port)
	assert.Equal(t, "deploy", cfg.Target.Username)
	assert.Equal(t, "/home/deploy/.ssh/id_ed25519", cfg.Target.KeyPath)
	assert.Equal(t, "/home/deploy/.ssh/known_hosts", cfg.Target.KnownHostsPath)
	assert.True(t, cfg.Target.StrictHostKey)
	assert.Equal(t, 10*time.Second, cfg.Target.ConnectTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Target.CommandTimeout)

	// Commands
	require.Len(t, cfg.Commands, 3)
	assert.Equal(t, "cd /srv/app && git pull origin main", cfg.Commands[0].Run)
	assert.False(t, cfg.Commands[0].BestEffort)
	assert.Equal(t, 10*time.Minute, cfg.Commands[1].Timeout)
	assert.True(t, cfg.Commands[2].BestEffort)

	// Report
	assert.Equal(t, "App Deployment", cfg.Report.Title)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Report.URLs)
	assert.Equal(t, "Allow a minute for the cache to warm.", cfg.Report.Note)

	// Telegram
	require.NotNil(t, cfg.Telegram)
	assert.Equal(t, "123456:ABC", cfg.Telegram.BotToken)
	assert.Equal(t, "-100123456789", cfg.Telegram.ChatID)
}

func TestParser_LoadReader_EnvVarExpansion(t *testing.T) {
	// Set test environment variables
	t.Setenv("TEST_DEPLOY_PASSWORD", "env_secret")
	t.Setenv("TEST_BOT_TOKEN", "env_token")

	yaml := `
target:
  host: "192.0.2.10"
  username: "root"
  password: "${TEST_DEPLOY_PASSWORD}"
commands:
  - docker ps
telegram:
  bot_token: "$TEST_BOT_TOKEN"
  chat_id: "-100123456789"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "env_secret", cfg.Target.Password)
	assert.Equal(t, "env_token", cfg.Telegram.BotToken)
}

func TestParser_LoadReader_MissingHost(t *testing.T) {
	yaml := `
target:
  username: "root"
  password: "secret"
commands:
  - docker ps
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "target.host is required")
}

func TestParser_LoadReader_MissingUsername(t *testing.T) {
	yaml := `
target:
  host: "192.0.2.10"
  password: "secret"
commands:
  - docker ps
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "target.username is required")
}

func TestParser_LoadReader_MissingCredentials(t *testing.T) {
	yaml := `
target:
  host: "192.0.2.10"
  username: "root"
commands:
  - docker ps
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "target.password or target.key_path is required")
}

func TestParser_LoadReader_MissingCommands(t *testing.T) {
	yaml := `
target:
  host: "192.0.2.10"
  username: "root"
  password: "secret"
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "commands is required")
}

func TestParser_LoadReader_BlankCommand(t *testing.T) {
	yaml := `
target:
  host: "192.0.2.10"
  username: "root"
  password: "secret"
commands:
  - docker ps
  - "   "
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "commands[1].run is required")
}

func TestParser_LoadReader_StrictHostKeyDefaultPath(t *testing.T) {
	yaml := `
target:
  host: "192.0.2.10"
  username: "root"
  password: "secret"
  strict_host_key: true
commands:
  - docker ps
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, os.ExpandEnv("$HOME/.ssh/known_hosts"), cfg.Target.KnownHostsPath)
}

func TestParser_LoadReader_Telegram_MissingBotToken(t *testing.T) {
	yaml := `
target:
  host: "192.0.2.10"
  username: "root"
  password: "secret"
commands:
  - docker ps
telegram:
  chat_id: "-100123456789"
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.bot_token is required")
}

func TestParser_LoadReader_Telegram_MissingChatID(t *testing.T) {
	yaml := `
target:
  host: "192.0.2.10"
  username: "root"
  password: "secret"
commands:
  - docker ps
telegram:
  bot_token: "123456:ABC"
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.chat_id is required")
}

func TestParser_LoadFile(t *testing.T) {
	yaml := `
target:
  host: "192.0.2.10"
  username: "root"
  password: "secret"
commands:
  - docker ps
`
	path := t.TempDir() + "/deploy.yaml"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	parser := NewParser()
	cfg, err := parser.LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", cfg.Target.Host)
}

func TestParser_LoadFile_NotFound(t *testing.T) {
	parser := NewParser()
	_, err := parser.LoadFile("/nonexistent/deploy.yaml")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}
