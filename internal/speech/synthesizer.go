package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"voicechat/internal/domain"
	"voicechat/internal/event"
	"voicechat/internal/ports"
)

// Synthesizer speaks text through a text-to-speech provider and the
// speaker.
type Synthesizer struct {
	provider ports.SpeechProvider
	playback ports.AudioPlayback
	cfg      Config
	log      *zap.Logger
}

func NewSynthesizer(provider ports.SpeechProvider, playback ports.AudioPlayback, cfg Config, logger *zap.Logger) *Synthesizer {
	if cfg.Speak.SampleRate <= 0 {
		cfg.Speak.SampleRate = 24000
	}
	if cfg.Playback.SampleRate <= 0 {
		cfg.Playback.SampleRate = cfg.Speak.SampleRate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{provider: provider, playback: playback, cfg: cfg, log: logger.Named("synthesis")}
}

// CreateSynthesisSession opens one provider connection that lives until
// ctx is cancelled.
func (s *Synthesizer) CreateSynthesisSession(ctx context.Context) (ports.SynthesisSession, error) {
	speak, err := s.provider.StartSpeaking(ctx, s.cfg.Speak)
	if err != nil {
		return nil, fmt.Errorf("failed to start speech synthesis: %w", err)
	}

	session := &synthesisSession{speak: speak, playback: s.playback, cfg: s.cfg.Playback, log: s.log}
	context.AfterFunc(ctx, func() {
		if err := speak.Close(); err != nil {
			s.log.Debug("closing speak session failed", zap.Error(err))
		}
	})
	return session, nil
}

type synthesisSession struct {
	speak    ports.SpeakSession
	playback ports.AudioPlayback
	cfg      ports.PlaybackConfig
	log      *zap.Logger

	// mu keeps utterances from overlapping on the speaker.
	mu     sync.Mutex
	status event.Emitter[domain.SynthesisStatus]
}

func (s *synthesisSession) OnStatusChange(fn func(domain.SynthesisStatus)) event.Disposable {
	return s.status.Subscribe(fn)
}

// Synthesize plays text and returns after the audio finished playing or
// ctx was cancelled.
func (s *synthesisSession) Synthesize(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	player, err := s.playback.Start(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	s.status.Fire(domain.SynthesisStarted)
	defer s.status.Fire(domain.SynthesisStopped)

	stop := context.AfterFunc(ctx, func() { _ = player.Stop() })
	defer stop()

	if err := s.speak.Speak(ctx, text, player); err != nil {
		_ = player.Stop()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if err := player.Close(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return ctx.Err()
}
