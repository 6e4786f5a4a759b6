package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/trueticket/deployctl/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a deployment plan file",
	Long:  `Validate a deployment plan file without connecting to the target.`,
	RunE:  validatePlan,
}

func validatePlan(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("plan file is required")
		return cmd.Help()
	}

	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("plan file not found")
		return fmt.Errorf("plan file not found: %s", configFile)
	}

	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse plan")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("plan validation failed")
		return err
	}

	// Print plan summary
	fmt.Println("Plan is valid!")
	fmt.Println()
	fmt.Println("Target:")
	fmt.Printf("  Host: %s:%d\n", cfg.Target.Host, cfg.Target.Port)
	fmt.Printf("  Username: %s\n", cfg.Target.Username)
	if cfg.Target.KeyPath != "" {
		fmt.Printf("  Key: %s\n", cfg.Target.KeyPath)
	}
	if cfg.Target.Password != "" {
		fmt.Printf("  Password: (configured)\n")
	}
	fmt.Printf("  Host key checking: %s\n", hostKeyMode(cfg.Target.StrictHostKey))
	fmt.Printf("  Connect timeout: %s\n", cfg.Target.ConnectTimeout)
	fmt.Printf("  Command timeout: %s\n", cfg.Target.CommandTimeout)
	fmt.Println()
	fmt.Printf("Commands (%d):\n", len(cfg.Commands))
	for i, c := range cfg.Commands {
		marker := ""
		if c.BestEffort {
			marker = " [best-effort]"
		}
		if c.Timeout > 0 {
			marker += fmt.Sprintf(" [timeout %s]", c.Timeout)
		}
		fmt.Printf("  %2d. %s%s\n", i+1, firstLine(c.Run), marker)
	}
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.Telegram != nil {
		fmt.Println()
		fmt.Println("Telegram Configuration:")
		fmt.Printf("  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Printf("  Bot Token: (configured)\n")
	}

	return nil
}

func hostKeyMode(strict bool) string {
	if strict {
		return "strict (known_hosts)"
	}
	return "trust-on-first-use"
}

// firstLine truncates multi-line commands for the summary listing.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
