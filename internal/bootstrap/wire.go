package bootstrap

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"voicechat/internal/audio"
	"voicechat/internal/config"
	"voicechat/internal/logging"
	"voicechat/internal/ports"
	"voicechat/internal/providers/deepgram"
	"voicechat/internal/rules"
	"voicechat/internal/speech"
	"voicechat/internal/surface"
	"voicechat/internal/usecase"
)

// Host is what the embedding application supplies. Only Workbench is
// required; the rest degrade to no-ops when nil. A nil Logger is built
// from the log configuration.
type Host struct {
	Events        ports.EventSink
	Workbench     surface.Workbench
	Dialog        ports.Dialog
	Indicator     ports.Indicator
	Window        ports.HostWindow
	Editor        ports.EditorFocus
	Agents        ports.AgentRegistry
	Accessibility ports.Accessibility
	Hold          ports.KeybindingHold
	Logger        *zap.Logger
}

// Services is the assembled runtime graph.
type Services struct {
	Config      config.Config
	Settings    *config.Settings
	Rules       *rules.Engine
	Resolver    *surface.Resolver
	Coordinator *usecase.Coordinator
	Setup       *usecase.SpeechSetup
	Hold        *usecase.HoldToTalk
	Commands    *usecase.Commands
	Keyword     *usecase.KeywordActivation
	Logger      *zap.Logger

	watchers []*config.FileWatcher
}

// Build wires all backend dependencies for the current runtime.
func Build(host Host) (*Services, error) {
	if host.Workbench == nil {
		return nil, errors.New("host workbench is required")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := host.Logger
	if log == nil {
		log, err = logging.New(cfg.Log.Level, cfg.Log.JSON)
		if err != nil {
			return nil, err
		}
	}

	settings, err := config.LoadSettings(cfg.SettingsPath, log)
	if err != nil {
		return nil, err
	}

	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return nil, err
	}

	provider := deepgram.NewProvider(deepgram.Config{
		APIKey:             cfg.Deepgram.APIKey,
		APIBaseURL:         cfg.Deepgram.APIBaseURL,
		Model:              cfg.Deepgram.Model,
		Language:           cfg.Deepgram.Language,
		SmartFormat:        cfg.Deepgram.SmartFormat,
		Endpointing:        cfg.Deepgram.Endpointing,
		UtteranceEndMillis: cfg.Deepgram.UtteranceEndMillis,
		SpeakModel:         cfg.Deepgram.SpeakModel,
	})

	speechCfg := speech.Config{
		Audio: ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		Streaming: ports.StreamingConfig{
			SampleRate: cfg.Audio.SampleRate,
			Channels:   cfg.Audio.Channels,
			Encoding:   "linear16",
		},
		ChunkSize: cfg.Session.ChunkSize,
		Speak: ports.SpeakConfig{
			SampleRate: cfg.Deepgram.SpeakSampleRate,
			Encoding:   "linear16",
		},
		Playback: ports.PlaybackConfig{
			SampleRate:   cfg.Deepgram.SpeakSampleRate,
			Channels:     1,
			OutputFormat: cfg.Playback.OutputFormat,
			OutputDevice: cfg.Playback.OutputDevice,
		},
	}

	captureEngine := speech.NewCaptureEngine(
		audio.NewFFMPEGCapture(cfg.Audio.Command),
		provider,
		rulesEngine,
		host.Events,
		speechCfg,
		log,
	)
	synthesizer := speech.NewSynthesizer(provider, audio.NewFFMPEGPlayback(cfg.Audio.Command), speechCfg, log)

	resolver := surface.NewResolver(host.Workbench, log)
	coordinator := usecase.NewCoordinator(usecase.Deps{
		Capture:       captureEngine,
		Synthesis:     synthesizer,
		Resolver:      resolver,
		Settings:      settings,
		Accessibility: host.Accessibility,
		Events:        host.Events,
		Logger:        log,
	}, usecase.Config{PlaceholderInterval: cfg.Session.PlaceholderInterval})

	setup := usecase.NewSpeechSetup(speech.NewProbe(provider, cfg.Audio.Command), host.Dialog, host.Events, log)
	hold := usecase.NewHoldToTalk(coordinator, resolver, host.Hold, cfg.Session.HoldThreshold, log)
	commands := usecase.NewCommands(usecase.CommandDeps{
		Sessions:     coordinator,
		Resolver:     resolver,
		Hold:         hold,
		Availability: setup,
		Setup:        setup,
		Logger:       log,
	})
	keyword := usecase.NewKeywordActivation(usecase.KeywordDeps{
		Engine:       speech.NewKeywordSpotter(captureEngine, settings, log),
		Sessions:     coordinator,
		Commands:     commands,
		Settings:     settings,
		Availability: setup,
		Agents:       host.Agents,
		Window:       host.Window,
		Editor:       host.Editor,
		Indicator:    host.Indicator,
		Events:       host.Events,
		Logger:       log,
	})

	return &Services{
		Config:      cfg,
		Settings:    settings,
		Rules:       rulesEngine,
		Resolver:    resolver,
		Coordinator: coordinator,
		Setup:       setup,
		Hold:        hold,
		Commands:    commands,
		Keyword:     keyword,
		Logger:      log,
	}, nil
}

// Start probes speech availability, starts the wake phrase loop and
// watches the settings and rules files. A failed probe is not an error;
// voice commands stay disabled until setup is retried.
func (s *Services) Start(ctx context.Context) {
	if err := s.Setup.Refresh(ctx); err != nil {
		s.Logger.Info("speech unavailable", zap.Error(err))
	}
	s.Keyword.Start()

	if watcher, err := s.Settings.Watch(config.DefaultWatchDelay); err != nil {
		s.Logger.Warn("settings watch disabled", zap.Error(err))
	} else {
		s.watchers = append(s.watchers, watcher)
	}

	if path := s.Rules.Path(); path != "" {
		watcher, err := config.WatchFile(path, config.DefaultWatchDelay, func() {
			if err := s.Rules.Reload(); err != nil {
				s.Logger.Warn("rules reload failed", zap.Error(err))
				return
			}
			s.Logger.Info("rules reloaded", zap.Int("rules", s.Rules.Len()))
		}, s.Logger)
		if err != nil {
			s.Logger.Warn("rules watch disabled", zap.Error(err))
		} else {
			s.watchers = append(s.watchers, watcher)
		}
	}
}

// Close stops watchers, the wake phrase loop and every session.
func (s *Services) Close() error {
	var errs []error
	for _, w := range s.watchers {
		errs = append(errs, w.Close())
	}
	s.watchers = nil
	s.Keyword.Close()
	s.Coordinator.Close()
	return errors.Join(errs...)
}
