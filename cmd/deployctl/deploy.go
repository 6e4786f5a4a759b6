package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/trueticket/deployctl/internal/config"
	"github.com/trueticket/deployctl/internal/models"
	"github.com/trueticket/deployctl/internal/plan"
	"github.com/trueticket/deployctl/internal/services/runner"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run the deployment plan against the target",
	Long: `Connect to the deployment target over SSH and run the plan's
commands in order, streaming their output as it arrives. Commands that
exit non-zero are reported as warnings and the run continues; only
connection problems, execution failures and timeouts abort the run.

Without --config the built-in TrueTicket plan is used; its SSH password
is read from the ` + plan.PasswordEnvVar + ` environment variable.`,
	RunE: runDeploy,
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := loadPlan()
	if err != nil {
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	log.Info().
		Str("host", cfg.Target.Host).
		Int("commands", len(cfg.Commands)).
		Msg("deployment plan loaded")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, aborting run")
		cancel()
	}()

	// Run deployment
	runnerSvc := runner.New(log.Logger, cmd.OutOrStdout())
	if err := runnerSvc.Run(ctx, *cfg); err != nil {
		log.Error().Err(err).Msg("deployment failed")
		return err
	}

	log.Info().Msg("deployment completed successfully")
	return nil
}

// loadPlan returns the plan file's config when --config is given, the
// built-in TrueTicket plan otherwise.
func loadPlan() (*models.DeployConfig, error) {
	if configFile == "" {
		cfg := plan.Default()
		if cfg.Target.Password == "" {
			return nil, fmt.Errorf("%s is not set (required by the built-in plan)", plan.PasswordEnvVar)
		}
		log.Info().Str("host", cfg.Target.Host).Msg("using built-in deployment plan")
		return &cfg, nil
	}

	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load plan file")
		return nil, err
	}
	return cfg, nil
}
