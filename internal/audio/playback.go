package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"voicechat/internal/ports"
)

// drainTimeout bounds how long Close waits for buffered audio to play.
const drainTimeout = 30 * time.Second

// FFMPEGPlayback plays raw PCM audio through ffmpeg.
type FFMPEGPlayback struct {
	command string
}

func NewFFMPEGPlayback(command string) *FFMPEGPlayback {
	if command == "" {
		command = defaultCommand
	}
	return &FFMPEGPlayback{command: command}
}

func (p *FFMPEGPlayback) Start(ctx context.Context, cfg ports.PlaybackConfig) (ports.PlaybackSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "pulse"
	}
	if cfg.OutputDevice == "" {
		cfg.OutputDevice = "default"
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-f", "s16le",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", strconv.Itoa(cfg.Channels),
		"-i", "-",
		"-f", cfg.OutputFormat,
		cfg.OutputDevice,
	}

	var stdin io.WriteCloser
	proc, err := startProcess(ctx, p.command, args, func(cmd *exec.Cmd) error {
		pipe, err := cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("failed to create ffmpeg stdin pipe: %w", err)
		}
		stdin = pipe
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &playbackSession{stdin: stdin, proc: proc}, nil
}

type playbackSession struct {
	stdin io.WriteCloser
	proc  *process

	closeOnce sync.Once
	closeErr  error
	stopOnce  sync.Once
	stopErr   error
}

func (s *playbackSession) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

// Close ends the input and waits for queued audio to finish playing.
func (s *playbackSession) Close() error {
	s.closeOnce.Do(func() {
		if err := s.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			s.closeErr = err
			return
		}
		if exited, err := s.proc.wait(drainTimeout); exited {
			s.closeErr = s.proc.withStderr(err)
			return
		}
		s.closeErr = s.Stop()
	})
	return s.closeErr
}

// Stop interrupts playback immediately.
func (s *playbackSession) Stop() error {
	s.stopOnce.Do(func() {
		_ = s.stdin.Close()
		s.stopErr = s.proc.stop()
	})
	return s.stopErr
}
