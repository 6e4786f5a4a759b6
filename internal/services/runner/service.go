// Package runner orchestrates the deployment run.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/trueticket/deployctl/internal/models"
	"github.com/trueticket/deployctl/internal/report"
	"github.com/trueticket/deployctl/internal/services/ssh"
	"github.com/trueticket/deployctl/internal/services/telegram"
)

// Service defines the interface for the deployment runner.
type Service interface {
	Run(ctx context.Context, cfg models.DeployConfig) error
}

// Impl implements the runner Service interface.
type Impl struct {
	sshSvc      ssh.Service
	telegramSvc telegram.Service
	report      *report.Writer
	logger      zerolog.Logger
}

// New creates a new deployment runner writing its report to out.
func New(logger zerolog.Logger, out io.Writer) *Impl {
	return &Impl{
		sshSvc:      ssh.New(logger),
		telegramSvc: telegram.New(logger),
		report:      report.New(out),
		logger:      logger,
	}
}

// NewWithServices creates a new runner with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	out io.Writer,
	sshSvc ssh.Service,
	telegramSvc telegram.Service,
) *Impl {
	return &Impl{
		sshSvc:      sshSvc,
		telegramSvc: telegramSvc,
		report:      report.New(out),
		logger:      logger,
	}
}

// Run executes the deployment plan against the target. Commands run
// strictly in order; a non-zero exit status is reported as a warning
// and the run moves on. Only transport failures abort the run.
func (s *Impl) Run(ctx context.Context, cfg models.DeployConfig) error {
	startTime := time.Now()
	runID := uuid.NewString()

	var (
		executed      int
		warnings      int
		failedCommand string
		runErr        error
	)

	s.logger.Info().
		Str("run_id", runID).
		Str("host", cfg.Target.Host).
		Int("commands", len(cfg.Commands)).
		Msg("starting deployment run")

	defer func() {
		// Send notification if configured
		if cfg.Telegram == nil {
			return
		}
		summary := models.RunSummary{
			Host:      cfg.Target.Host,
			StartTime: startTime,
			Duration:  time.Since(startTime),
			Success:   runErr == nil,
			Commands:  executed,
			Warnings:  warnings,
		}
		if runErr != nil {
			summary.FailedCommand = failedCommand
			summary.ErrorMessage = runErr.Error()
		}
		s.sendNotification(ctx, cfg, summary)
	}()

	s.report.Banner(cfg.Report.Title)
	s.report.Connecting(cfg.Target.Host)

	conn, err := s.sshSvc.Connect(ctx, cfg.Target)
	if err != nil {
		runErr = err
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			s.logger.Debug().Err(cerr).Msg("closing connection")
		}
	}()

	s.report.Connected()

	for _, cmd := range cfg.Commands {
		result, err := s.runCommand(ctx, conn, cfg.Target, cmd)
		if err != nil {
			failedCommand = cmd.Run
			runErr = err
			return err
		}
		executed++

		if result.ExitStatus != 0 && !cmd.BestEffort {
			warnings++
			s.report.Warning(result.ExitStatus)
		}
	}

	s.report.Completed(cfg.Report.URLs, cfg.Report.Note)

	s.logger.Info().
		Str("run_id", runID).
		Dur("duration", time.Since(startTime)).
		Int("commands", executed).
		Int("warnings", warnings).
		Msg("deployment run completed")

	return nil
}

// runCommand announces one command, streams its stdout as it arrives,
// prints captured stderr, and returns the exit status.
func (s *Impl) runCommand(
	ctx context.Context,
	conn ssh.Conn,
	target models.TargetConfig,
	cmd models.CommandSpec,
) (models.CommandResult, error) {
	s.report.Announce(cmd.Run)

	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = target.CommandTimeout
	}

	start := time.Now()
	exec, err := conn.Execute(ctx, cmd.Run, timeout)
	if err != nil {
		return models.CommandResult{}, err
	}

	if err := s.streamLines(exec.Stdout()); err != nil {
		return models.CommandResult{}, fmt.Errorf("%w: reading stdout: %w", ssh.ErrExecution, err)
	}

	// Drain stderr once stdout is exhausted.
	stderrBytes, err := io.ReadAll(exec.Stderr())
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("%w: reading stderr: %w", ssh.ErrExecution, err)
	}
	if len(stderrBytes) > 0 {
		s.report.Stderr(string(stderrBytes))
	}

	status, err := exec.Wait()
	if err != nil {
		return models.CommandResult{}, err
	}

	result := models.CommandResult{
		ExitStatus: status,
		StderrText: string(stderrBytes),
		Duration:   time.Since(start),
	}

	s.logger.Debug().
		Str("command", cmd.Run).
		Int("status", result.ExitStatus).
		Bool("best_effort", cmd.BestEffort).
		Dur("duration", result.Duration).
		Msg("command finished")

	return result, nil
}

// maxLineBytes caps how much of a single remote stdout line is held in
// memory before it is flushed as a piece of its own.
const maxLineBytes = 1024 * 1024

// streamLines surfaces r line by line as the remote command produces
// it. A line longer than maxLineBytes is emitted in pieces rather than
// dropped, so remote output always reaches the invoker.
func (s *Impl) streamLines(r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		partial []byte
		split   bool // the current line has already been emitted in pieces
	)
	for {
		chunk, err := br.ReadSlice('\n')
		partial = append(partial, chunk...)

		switch {
		case err == nil:
			line := strings.TrimSuffix(string(partial), "\n")
			line = strings.TrimSuffix(line, "\r")
			if line != "" || !split {
				s.report.Line(line)
			}
			partial = partial[:0]
			split = false
		case errors.Is(err, bufio.ErrBufferFull):
			if len(partial) >= maxLineBytes {
				s.report.Line(string(partial))
				partial = partial[:0]
				split = true
			}
		case errors.Is(err, io.EOF):
			if len(partial) > 0 {
				s.report.Line(string(partial))
			}
			return nil
		default:
			return err
		}
	}
}

func (s *Impl) sendNotification(ctx context.Context, cfg models.DeployConfig, summary models.RunSummary) {
	result, err := s.telegramSvc.SendNotification(ctx, *cfg.Telegram, summary)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Info().Msg("Telegram notification sent")
}
