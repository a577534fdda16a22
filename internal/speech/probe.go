package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

var ErrMissingCredentials = errors.New("speech provider credentials are not configured")

// Credentials reports whether the speech provider can authenticate.
type Credentials interface {
	HasAPIKey() bool
}

// Probe checks that speech can run on this machine: the provider has
// credentials and the audio tool is installed.
type Probe struct {
	credentials Credentials
	command     string
	lookPath    func(string) (string, error)
}

func NewProbe(credentials Credentials, command string) *Probe {
	if command == "" {
		command = "ffmpeg"
	}
	return &Probe{credentials: credentials, command: command, lookPath: exec.LookPath}
}

func (p *Probe) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.credentials == nil || !p.credentials.HasAPIKey() {
		return ErrMissingCredentials
	}
	if _, err := p.lookPath(p.command); err != nil {
		return fmt.Errorf("audio tool %q is not available: %w", p.command, err)
	}
	return nil
}
