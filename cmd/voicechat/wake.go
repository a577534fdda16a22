package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voicechat/internal/domain"
)

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Wait for the wake phrase and start voice input",
	Long: `Listens for the configured wake phrase and starts voice input each time
it is heard. Requires accessibility.voice.keywordActivation to be set, for
example:

  voicechat settings set accessibility.voice.keywordActivation chatInView`,
	Args: cobra.NoArgs,
	RunE: runWake,
}

func runWake(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	widget := newTermWidget(cmd.OutOrStdout(), cmd.ErrOrStderr(), false)
	services, err := buildServices(cmd, widget)
	if err != nil {
		return err
	}
	defer services.Close()

	mode := services.Settings.GetValue(domain.SettingKeywordActivation)
	if mode == string(domain.KeywordActivationOff) {
		return fmt.Errorf("%s is off", domain.SettingKeywordActivation)
	}
	if err := ensureSpeech(ctx, services); err != nil {
		return err
	}

	services.Start(ctx)
	fmt.Fprintf(cmd.ErrOrStderr(), "say %q to start (Ctrl-C to quit)\n", services.Settings.GetValue(domain.SettingWakePhrase))
	<-ctx.Done()
	return nil
}
