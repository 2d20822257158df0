package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/chessreview/engine/internal/config"
	"github.com/chessreview/engine/internal/logging"
)

// transport abstracts the engine process so the session protocol logic can be
// tested against a scripted peer.
type transport interface {
	Start(ctx context.Context) (stdin io.Writer, stdout io.Reader, err error)
	Stop() error
}

// processTransport runs the real UCI engine as a child process.
type processTransport struct {
	cfg    *config.EngineConfig
	logger logging.ContextLogger

	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func newProcessTransport(cfg *config.EngineConfig, logger logging.ContextLogger) *processTransport {
	return &processTransport{cfg: cfg, logger: logger}
}

func (t *processTransport) Start(ctx context.Context) (io.Writer, io.Reader, error) {
	t.cmd = exec.CommandContext(ctx, t.cfg.BinaryPath) // #nosec G204 -- BinaryPath is validated configuration

	stdin, err := t.cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	t.stdin = stdin

	stdout, err := t.cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := t.cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := t.cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start engine: %w", err)
	}

	t.logger.Info("UCI engine started", "binary", t.cfg.BinaryPath)

	go t.readStderr(stderr)

	return stdin, stdout, nil
}

// readStderr drains and logs engine diagnostics.
func (t *processTransport) readStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			t.logger.Debug("engine stderr", "line", line)
		}
	}
}

func (t *processTransport) Stop() error {
	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}

	if t.stdin != nil {
		_ = t.stdin.Close()
	}

	done := make(chan error, 1)
	go func() {
		done <- t.cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil && err.Error() != "signal: killed" {
			t.logger.Warn("engine process exited with error", "error", err)
		}
	case <-time.After(5 * time.Second):
		_ = t.cmd.Process.Kill()
	}

	t.logger.Info("UCI engine stopped")
	return nil
}
