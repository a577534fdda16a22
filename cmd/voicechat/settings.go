package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"voicechat/internal/config"
	"voicechat/internal/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change voice settings",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every voice setting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		values := settings.Snapshot()
		ids := make([]string, 0, len(values))
		for id := range values {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", id, values[id])
		}
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <id> <value>",
	Short: "Change one voice setting",
	Long: `Stores a setting in the settings file. The value is parsed as YAML, so
numbers and booleans keep their type.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := parseSettingValue(args[0], args[1])
		if err != nil {
			return err
		}
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		return settings.Set(args[0], value)
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.SettingsPath)
		return nil
	},
}

func loadSettings() (*config.Settings, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return config.LoadSettings(cfg.SettingsPath, logger)
}

// parseSettingValue decodes raw as YAML and checks that id is a known
// setting whose default has the same kind of value.
func parseSettingValue(id string, raw string) (any, error) {
	def, ok := domain.DefaultSettings()[id]
	if !ok {
		return nil, fmt.Errorf("unknown setting %q", id)
	}

	if _, ok := def.(string); ok {
		return raw, nil
	}

	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", id, err)
	}

	switch def.(type) {
	case bool:
		if _, ok := value.(bool); !ok {
			return nil, fmt.Errorf("%s expects true or false", id)
		}
	case int:
		if _, ok := value.(int); !ok {
			return nil, fmt.Errorf("%s expects a whole number", id)
		}
	}
	return value, nil
}
