package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"voicechat/internal/bootstrap"
	"voicechat/internal/domain"
	"voicechat/internal/ports"
	"voicechat/internal/usecase"
)

var errNoSurface = errors.New("no chat surface is available")

// buildServices wires the backend against the terminal widget.
func buildServices(cmd *cobra.Command, widget *termWidget) (*bootstrap.Services, error) {
	events := termEvents{w: cmd.ErrOrStderr(), verbose: verbose}
	return bootstrap.Build(bootstrap.Host{
		Events:    events,
		Workbench: termWorkbench{widget: widget},
		Dialog:    termDialog{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr()},
		Indicator: events,
		Logger:    logger,
	})
}

// focused resolves the terminal widget's controller.
func focused(ctx context.Context, services *bootstrap.Services) (ports.Controller, error) {
	controller, ok := services.Resolver.Resolve(ctx, domain.TargetFocused)
	if !ok {
		return nil, errNoSurface
	}
	return controller, nil
}

// ensureSpeech probes speech and offers a retry on failure.
func ensureSpeech(ctx context.Context, services *bootstrap.Services) error {
	err := services.Setup.Ensure(ctx)
	if errors.Is(err, usecase.ErrSetupDeclined) {
		return fmt.Errorf("speech is unavailable: %w", services.Setup.LastError())
	}
	return err
}

// waitIdle blocks until neither an input nor an output session is running.
func waitIdle(ctx context.Context, sessions *usecase.Coordinator) {
	for {
		if in, ok := sessions.CurrentInput(); ok {
			select {
			case <-in.Done():
				continue
			case <-ctx.Done():
				in.Stop()
				return
			}
		}
		if out, ok := sessions.CurrentOutput(); ok {
			select {
			case <-out.Done():
				continue
			case <-ctx.Done():
				out.Stop()
				return
			}
		}
		return
	}
}
