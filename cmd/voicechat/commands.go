package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voicechat/internal/usecase"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List voice command ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		services, err := buildServices(cmd, newTermWidget(cmd.OutOrStdout(), cmd.ErrOrStderr(), false))
		if err != nil {
			return err
		}
		defer services.Close()

		for _, id := range services.Commands.IDs() {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <command-id>",
	Short: "Run one voice command and wait for its sessions to end",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		services, err := buildServices(cmd, newTermWidget(cmd.OutOrStdout(), cmd.ErrOrStderr(), false))
		if err != nil {
			return err
		}
		defer services.Close()

		if args[0] != usecase.CommandRetrySpeechSetup {
			if err := services.Setup.Refresh(ctx); err != nil {
				return fmt.Errorf("speech is unavailable: %w", err)
			}
		}
		if err := services.Commands.ExecuteCommand(ctx, args[0]); err != nil {
			return err
		}
		waitIdle(ctx, services.Coordinator)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that speech can run and print the configuration in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		services, err := buildServices(cmd, newTermWidget(cmd.OutOrStdout(), cmd.ErrOrStderr(), false))
		if err != nil {
			return err
		}
		defer services.Close()

		out := cmd.OutOrStdout()
		cfg := services.Config
		fmt.Fprintf(out, "model:     %s\n", cfg.Deepgram.Model)
		fmt.Fprintf(out, "voice:     %s\n", cfg.Deepgram.SpeakModel)
		fmt.Fprintf(out, "input:     %s %s\n", cfg.Audio.InputFormat, cfg.Audio.InputDevice)
		fmt.Fprintf(out, "output:    %s %s\n", cfg.Playback.OutputFormat, cfg.Playback.OutputDevice)
		fmt.Fprintf(out, "settings:  %s\n", cfg.SettingsPath)
		fmt.Fprintf(out, "rules:     %s (%d rules)\n", cfg.Rules.Path, services.Rules.Len())

		if err := services.Setup.Refresh(cmd.Context()); err != nil {
			fmt.Fprintf(out, "speech:    unavailable\n")
			return err
		}
		fmt.Fprintf(out, "speech:    ok\n")
		return nil
	},
}
