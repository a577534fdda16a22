package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"voicechat/internal/bootstrap"
	"voicechat/internal/usecase"
)

var (
	listenEcho   bool
	listenRepeat bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Dictate a message and print it",
	Long: `Starts voice input and shows the live transcript on stderr. The text is
accepted after the configured speech timeout, or when Enter is pressed,
and printed to stdout. Ctrl-C discards the current input.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func runListen(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	widget := newTermWidget(cmd.OutOrStdout(), cmd.ErrOrStderr(), listenEcho)
	services, err := buildServices(cmd, widget)
	if err != nil {
		return err
	}
	defer services.Close()

	if err := ensureSpeech(ctx, services); err != nil {
		return err
	}

	enter := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case enter <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		if err := listenOnce(ctx, services, enter); err != nil {
			return err
		}
		// An accepted response may still be read aloud.
		waitIdle(ctx, services.Coordinator)
		if !listenRepeat || ctx.Err() != nil {
			return nil
		}
	}
}

// listenOnce runs one input session until it is accepted, times out or
// ctx ends.
func listenOnce(ctx context.Context, services *bootstrap.Services, enter <-chan struct{}) error {
	controller, err := focused(ctx, services)
	if err != nil {
		return err
	}
	session, err := services.Coordinator.StartInput(ctx, controller, usecase.InputOptions{})
	if errors.Is(err, usecase.ErrSessionStopped) {
		return nil
	}
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-enter:
			return session.Accept(gctx)
		case <-session.Done():
			return nil
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		select {
		case <-session.Done():
		case <-gctx.Done():
			session.Stop()
		}
		return nil
	})
	return g.Wait()
}
