package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration resolved from the environment.
type Config struct {
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Playback PlaybackConfig
	Rules    RulesConfig
	Session  SessionConfig
	Log      LogConfig
	// SettingsPath is the YAML file holding the voice settings.
	SettingsPath string
}

type DeepgramConfig struct {
	APIKey             string
	APIBaseURL         string
	Model              string
	Language           string
	SmartFormat        bool
	Endpointing        int
	UtteranceEndMillis int
	SpeakModel         string
	SpeakSampleRate    int
}

type AudioConfig struct {
	Command     string
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
}

type PlaybackConfig struct {
	OutputFormat string
	OutputDevice string
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

type SessionConfig struct {
	ChunkSize           int
	PlaceholderInterval time.Duration
	HoldThreshold       time.Duration
}

type LogConfig struct {
	Level string
	JSON  bool
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	dir, err := configDir()
	if err != nil {
		return Config{}, err
	}

	rulesPath := strings.TrimSpace(os.Getenv("VOICECHAT_RULES_FILE"))
	if rulesPath == "" {
		rulesPath = firstExisting(
			filepath.Join(dir, "voicechat", "substitutions.rules"),
			filepath.Join(dir, "voicechat", "rules"),
		)
	}

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:             strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:         envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:              envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:           strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat:        envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
			Endpointing:        firstNonNegativeInt("DEEPGRAM_ENDPOINTING_MS", "", 300),
			UtteranceEndMillis: firstNonNegativeInt("DEEPGRAM_UTTERANCE_END_MS", "", 1000),
			SpeakModel:         envOrDefault("DEEPGRAM_SPEAK_MODEL", "aura-asteria-en"),
			SpeakSampleRate:    envOrDefaultInt("DEEPGRAM_SPEAK_SAMPLE_RATE", 24000),
		},
		Audio: AudioConfig{
			Command:     envOrDefault("VOICECHAT_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat: envOrDefault("VOICECHAT_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice: firstNonEmpty(
				os.Getenv("VOICECHAT_AUDIO_INPUT_DEVICE"),
				os.Getenv("DEEPGRAM_PULSE_SOURCE"),
				"default",
			),
			SampleRate: envOrDefaultInt("VOICECHAT_SAMPLE_RATE", 16000),
			Channels:   envOrDefaultInt("VOICECHAT_CHANNELS", 1),
		},
		Playback: PlaybackConfig{
			OutputFormat: envOrDefault("VOICECHAT_AUDIO_OUTPUT_FORMAT", "pulse"),
			OutputDevice: envOrDefault("VOICECHAT_AUDIO_OUTPUT_DEVICE", "default"),
		},
		Rules: RulesConfig{
			Path:           rulesPath,
			IterationLimit: envOrDefaultInt("VOICECHAT_RULE_ITERATION_LIMIT", 30),
		},
		Session: SessionConfig{
			ChunkSize:           envOrDefaultInt("VOICECHAT_AUDIO_CHUNK_SIZE", 4096),
			PlaceholderInterval: time.Duration(firstNonNegativeInt("VOICECHAT_PLACEHOLDER_INTERVAL_MS", "", 500)) * time.Millisecond,
			HoldThreshold:       time.Duration(firstNonNegativeInt("VOICECHAT_HOLD_THRESHOLD_MS", "", 500)) * time.Millisecond,
		},
		Log: LogConfig{
			Level: envOrDefault("VOICECHAT_LOG_LEVEL", "info"),
			JSON:  envOrDefaultBool("VOICECHAT_LOG_JSON", false),
		},
		SettingsPath: envOrDefault("VOICECHAT_SETTINGS_FILE", filepath.Join(dir, "voicechat", "settings.yaml")),
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Deepgram.SpeakSampleRate <= 0 {
		cfg.Deepgram.SpeakSampleRate = 24000
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Session.PlaceholderInterval == 0 {
		cfg.Session.PlaceholderInterval = 500 * time.Millisecond
	}
	if cfg.Session.HoldThreshold == 0 {
		cfg.Session.HoldThreshold = 500 * time.Millisecond
	}

	return cfg, nil
}

// configDir honours XDG_CONFIG_HOME and falls back to ~/.config.
func configDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine home directory")
	}
	return filepath.Join(home, ".config"), nil
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func firstNonNegativeInt(primary string, secondary string, fallback int) int {
	for _, key := range []string{primary, secondary} {
		if key == "" {
			continue
		}
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err == nil && parsed >= 0 {
			return parsed
		}
	}
	return fallback
}
