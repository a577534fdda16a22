// Command voicechat runs voice input and read-aloud sessions from a
// terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voicechat/internal/logging"
)

var (
	// Global flags
	verbose  bool
	logLevel string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "voicechat",
	Short: "Talk to chat from the terminal",
	Long: `voicechat streams microphone audio to Deepgram, shows the live transcript
and prints the accepted text. It can also read text aloud and wait for a
wake phrase.

Configuration comes from the environment (DEEPGRAM_API_KEY, VOICECHAT_*)
and the settings file managed with "voicechat settings".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if verbose {
			level = "debug"
		}
		if level == "" {
			return nil
		}
		var err error
		logger, err = logging.New(level, false)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output and session changes")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level, overrides VOICECHAT_LOG_LEVEL")

	listenCmd.Flags().BoolVar(&listenEcho, "echo", false, "Treat accepted text as a response, so it is read aloud when autoSynthesize is on")
	listenCmd.Flags().BoolVar(&listenRepeat, "repeat", false, "Start a new session after each accepted one")

	settingsCmd.AddCommand(settingsListCmd, settingsSetCmd, settingsPathCmd)
	rootCmd.AddCommand(listenCmd, readCmd, wakeCmd, settingsCmd, commandsCmd, runCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
