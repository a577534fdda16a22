package main

import (
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"voicechat/internal/chat"
)

var readCmd = &cobra.Command{
	Use:   "read [text...]",
	Short: "Read text aloud",
	Long: `Speaks the arguments, or stdin when there are none or the only argument
is "-". Markdown is spoken as plain text; code blocks are skipped when
accessibility.voice.ignoreCodeBlocks is on.`,
	RunE: runRead,
}

func runRead(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text, err := readText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("nothing to read")
	}

	services, err := buildServices(cmd, newTermWidget(cmd.OutOrStdout(), cmd.ErrOrStderr(), false))
	if err != nil {
		return err
	}
	defer services.Close()

	if err := ensureSpeech(ctx, services); err != nil {
		return err
	}
	controller, err := focused(ctx, services)
	if err != nil {
		return err
	}

	session, err := services.Coordinator.StartOutput(ctx, controller, chat.NewCompleteResponse(uuid.NewString(), text))
	if err != nil {
		return err
	}
	select {
	case <-session.Done():
	case <-ctx.Done():
		session.Stop()
	}
	return nil
}

func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}
