// Package ssh provides the transport session for remote command execution.
package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/trueticket/deployctl/internal/models"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Transport-level failures. A non-zero remote exit status is not an
// error in this model; it comes back as data from Execution.Wait.
var (
	// ErrConnection indicates the session could not be established:
	// host unreachable, authentication rejected, or connect timeout.
	ErrConnection = errors.New("connection failed")

	// ErrExecution indicates a command invocation could not be started
	// or the session died underneath it.
	ErrExecution = errors.New("command execution failed")

	// ErrTimeout indicates a command did not complete within its timeout.
	ErrTimeout = errors.New("command timed out")
)

// Service defines the interface for SSH transport operations.
type Service interface {
	Connect(ctx context.Context, cfg models.TargetConfig) (Conn, error)
}

// Conn is one established, authenticated session to the deploy target.
// It is not safe for concurrent use; the runner drives it strictly
// sequentially, one command in flight at a time.
type Conn interface {
	Execute(ctx context.Context, command string, timeout time.Duration) (Execution, error)
	Close() error
}

// Execution exposes the streams and exit status of one remote command.
// Callers drain Stdout, then Stderr, then call Wait exactly once.
type Execution interface {
	Stdout() io.Reader
	Stderr() io.Reader
	Wait() (int, error)
}

// SSHClient wraps ssh.Client for mocking.
type SSHClient interface {
	NewSession() (SSHSession, error)
	Close() error
}

// SSHSession wraps ssh.Session for mocking.
type SSHSession interface {
	StdoutPipe() (io.Reader, error)
	StderrPipe() (io.Reader, error)
	Start(cmd string) error
	Wait() error
	Close() error
}

// ClientFactory creates SSH clients.
type ClientFactory interface {
	NewClient(network, addr string, config *ssh.ClientConfig) (SSHClient, error)
}

// DefaultClientFactory is the default SSH client factory.
type DefaultClientFactory struct{}

// NewClient creates a new SSH client.
func (f *DefaultClientFactory) NewClient(network, addr string, config *ssh.ClientConfig) (SSHClient, error) {
	client, err := ssh.Dial(network, addr, config)
	if err != nil {
		return nil, err
	}
	return &defaultSSHClient{client: client}, nil
}

type defaultSSHClient struct {
	client *ssh.Client
}

func (c *defaultSSHClient) NewSession() (SSHSession, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return &defaultSSHSession{session: session}, nil
}

func (c *defaultSSHClient) Close() error {
	return c.client.Close()
}

type defaultSSHSession struct {
	session *ssh.Session
}

func (s *defaultSSHSession) StdoutPipe() (io.Reader, error) { return s.session.StdoutPipe() }
func (s *defaultSSHSession) StderrPipe() (io.Reader, error) { return s.session.StderrPipe() }
func (s *defaultSSHSession) Start(cmd string) error         { return s.session.Start(cmd) }
func (s *defaultSSHSession) Wait() error                    { return s.session.Wait() }
func (s *defaultSSHSession) Close() error                   { return s.session.Close() }

// Impl implements the transport Service interface.
type Impl struct {
	clientFactory ClientFactory
	logger        zerolog.Logger
}

// New creates a new SSH transport service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		clientFactory: &DefaultClientFactory{},
		logger:        logger,
	}
}

// NewWithClientFactory creates a new SSH transport service with a custom
// client factory (for testing).
func NewWithClientFactory(logger zerolog.Logger, factory ClientFactory) *Impl {
	return &Impl{
		clientFactory: factory,
		logger:        logger,
	}
}

func (s *Impl) buildConfig(cfg models.TargetConfig) (*ssh.ClientConfig, error) {
	var auths []ssh.AuthMethod

	if cfg.KeyPath != "" {
		key, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key from %s: %w", cfg.KeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}

	if cfg.Password != "" {
		auths = append(auths, ssh.Password(cfg.Password))
	}

	// Fall back to a running SSH agent when one is available.
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if agentConn, err := net.Dial("unix", sock); err == nil {
			auths = append(auths, ssh.PublicKeysCallback(agent.NewClient(agentConn).Signers))
		}
	}

	if len(auths) == 0 {
		return nil, fmt.Errorf("no authentication method available: set target.password or target.key_path")
	}

	// Trust-on-first-use: the deploy target's host key is accepted as
	// presented unless strict checking is switched on.
	hostKeyCB := ssh.InsecureIgnoreHostKey() //nolint:gosec // deliberate TOFU policy for the fixed target
	if cfg.StrictHostKey {
		cb, err := knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts from %s: %w", cfg.KnownHostsPath, err)
		}
		hostKeyCB = cb
	}

	return &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            auths,
		HostKeyCallback: hostKeyCB,
		Timeout:         cfg.ConnectTimeout,
	}, nil
}

// Connect establishes the one authenticated connection for a run. Any
// failure, from an unreachable host to rejected credentials to an
// elapsed timeout, wraps ErrConnection and is terminal for the run.
func (s *Impl) Connect(ctx context.Context, cfg models.TargetConfig) (Conn, error) {
	sshConfig, err := s.buildConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	s.logger.Info().
		Str("addr", addr).
		Str("user", cfg.Username).
		Dur("timeout", cfg.ConnectTimeout).
		Msg("connecting to deploy target")

	// Dial in a goroutine so context cancellation is honored even while
	// the TCP/SSH handshake is still in flight.
	clientChan := make(chan struct {
		client SSHClient
		err    error
	}, 1)

	go func() {
		client, err := s.clientFactory.NewClient("tcp", addr, sshConfig)
		clientChan <- struct {
			client SSHClient
			err    error
		}{client, err}
	}()

	select {
	case <-ctx.Done():
		// Reap a dial that completes after the context is gone so the
		// late client does not leak its connection.
		go func() {
			if res := <-clientChan; res.err == nil && res.client != nil {
				_ = res.client.Close()
			}
		}()
		return nil, fmt.Errorf("%w: %w", ErrConnection, ctx.Err())
	case res := <-clientChan:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnection, res.err)
		}
		s.logger.Debug().Str("addr", addr).Msg("connection established")
		return &conn{client: res.client, logger: s.logger}, nil
	}
}

// conn drives command execution over one SSH client.
type conn struct {
	client    SSHClient
	logger    zerolog.Logger
	closeOnce sync.Once
	closeErr  error
}

// Execute starts command on a fresh session and returns an Execution
// exposing its stdout, stderr and exit status.
func (c *conn) Execute(ctx context.Context, command string, timeout time.Duration) (Execution, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecution, err)
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("%w: stdout pipe: %w", ErrExecution, err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("%w: stderr pipe: %w", ErrExecution, err)
	}

	if err := session.Start(command); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("%w: %w", ErrExecution, err)
	}

	c.logger.Debug().Str("command", command).Dur("timeout", timeout).Msg("remote command started")

	exec := &execution{
		stdout:  stdout,
		stderr:  stderr,
		session: session,
		timeout: timeout,
		done:    make(chan struct{}),
		killed:  make(chan struct{}),
	}
	go exec.watch(ctx)

	return exec, nil
}

// Close releases the connection. It is idempotent and safe to defer on
// every exit path.
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.client.Close()
	})
	return c.closeErr
}

type execution struct {
	stdout io.Reader
	stderr io.Reader

	session SSHSession
	timeout time.Duration
	done    chan struct{}

	// killed is closed by the watchdog once it has decided to tear the
	// session down; killErr is written before killed is closed and read
	// only after observing the close.
	killed  chan struct{}
	killErr error
}

func (e *execution) Stdout() io.Reader { return e.stdout }
func (e *execution) Stderr() io.Reader { return e.stderr }

// watch closes the session when the per-command timeout elapses or the
// run context is canceled, so a stalled remote command unblocks the
// pipe readers and Wait instead of hanging the run forever. The verdict
// is published on killed before the session is closed, so a Wait
// unblocked by the teardown always observes it.
func (e *execution) watch(ctx context.Context) {
	var timer <-chan time.Time
	if e.timeout > 0 {
		t := time.NewTimer(e.timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-e.done:
		return
	case <-timer:
		e.killErr = fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	case <-ctx.Done():
		e.killErr = fmt.Errorf("%w: %w", ErrExecution, ctx.Err())
	}
	close(e.killed)
	_ = e.session.Close()
}

// Wait blocks until the remote process terminates and returns its exit
// status. A non-zero status is data, not an error; Wait only fails when
// the invocation itself broke or timed out.
func (e *execution) Wait() (int, error) {
	err := e.session.Wait()

	// The watchdog's verdict counts only when it tore the session down
	// before Wait returned; a timer firing alongside a genuine failure
	// must not relabel it.
	var killErr error
	select {
	case <-e.killed:
		killErr = e.killErr
	default:
	}
	close(e.done)
	_ = e.session.Close()

	if err == nil {
		return 0, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	if killErr != nil {
		return 0, killErr
	}
	return 0, fmt.Errorf("%w: %w", ErrExecution, err)
}
