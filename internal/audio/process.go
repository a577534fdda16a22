package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const (
	defaultCommand   = "ffmpeg"
	startupGrace     = 250 * time.Millisecond
	interruptTimeout = 1200 * time.Millisecond
)

// process is a running ffmpeg child with its exit status.
type process struct {
	cmd    *exec.Cmd
	stderr *bytes.Buffer
	done   chan struct{}
	err    error
}

func startProcess(ctx context.Context, command string, args []string, prepare func(cmd *exec.Cmd) error) (*process, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if prepare != nil {
		if err := prepare(cmd); err != nil {
			return nil, err
		}
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	p := &process{cmd: cmd, stderr: &stderr, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()

	select {
	case <-p.done:
		if p.err != nil {
			return nil, fmt.Errorf("ffmpeg exited before audio started: %w: %s", p.err, trimOutput(stderr.String()))
		}
		return nil, errors.New("ffmpeg exited before audio started")
	case <-time.After(startupGrace):
	}
	return p, nil
}

// wait blocks until exit or timeout; it reports whether the process exited.
func (p *process) wait(timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		return true, normalizeStopErr(p.err)
	case <-timer.C:
		return false, nil
	}
}

// stop interrupts ffmpeg and kills it if it does not exit in time.
func (p *process) stop() error {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Signal(os.Interrupt)
	}
	if exited, err := p.wait(interruptTimeout); exited {
		return p.withStderr(err)
	}
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_, err := p.wait(interruptTimeout)
	return p.withStderr(err)
}

func (p *process) withStderr(err error) error {
	if err != nil && p.stderr.Len() > 0 {
		return fmt.Errorf("%w: %s", err, trimOutput(p.stderr.String()))
	}
	return err
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimOutput(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
