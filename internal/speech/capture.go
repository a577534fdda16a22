package speech

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"voicechat/internal/domain"
	"voicechat/internal/ports"
)

// Config holds the audio and provider settings shared by the engines.
type Config struct {
	Audio     ports.AudioConfig
	Streaming ports.StreamingConfig
	ChunkSize int
	Speak     ports.SpeakConfig
	Playback  ports.PlaybackConfig
}

// CaptureEngine turns microphone audio into recognition events by pairing
// an audio capture with a streaming transcription provider.
type CaptureEngine struct {
	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	rules    ports.RulesEngine
	events   ports.EventSink
	cfg      Config
	log      *zap.Logger
}

func NewCaptureEngine(
	audio ports.AudioCapture,
	provider ports.TranscriptionProvider,
	rules ports.RulesEngine,
	events ports.EventSink,
	cfg Config,
	logger *zap.Logger,
) *CaptureEngine {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = defaultChunkSize
	}
	if events == nil {
		events = discardEvents{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaptureEngine{
		audio:    audio,
		provider: provider,
		rules:    rules,
		events:   events,
		cfg:      cfg,
		log:      logger.Named("capture"),
	}
}

// CreateCaptureSession opens the provider stream, then the microphone. The
// session ends when ctx is cancelled or the provider closes the stream.
func (e *CaptureEngine) CreateCaptureSession(ctx context.Context, opts ports.CaptureOptions) (ports.CaptureSession, error) {
	streamCfg := e.cfg.Streaming
	streamCfg.InterimResults = true
	streamCfg.Diarize = opts.MultiParticipant
	streamCfg.Keywords = opts.Keywords
	if opts.Language != "" {
		streamCfg.Language = opts.Language
	}

	stream, err := e.provider.StartStreaming(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start transcription: %w", err)
	}

	audio, err := e.audio.Start(ctx, e.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to start microphone: %w", err)
	}

	session := &captureSession{events: make(chan domain.RecognitionEvent, 16)}
	go e.run(ctx, audio, stream, session.events)
	return session, nil
}

type captureSession struct {
	events chan domain.RecognitionEvent
}

func (s *captureSession) Events() <-chan domain.RecognitionEvent {
	return s.events
}

func (e *CaptureEngine) run(ctx context.Context, audio ports.AudioSession, stream ports.StreamingSession, out chan<- domain.RecognitionEvent) {
	defer close(out)

	emit := func(ev domain.RecognitionEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	pumpDone := make(chan struct{})
	go pumpAudioChunks(ctx, audio, stream, e.cfg.ChunkSize, e.events, pumpDone)

	if emit(domain.RecognitionEvent{Status: domain.RecognitionStarted}) {
		e.consume(ctx, stream, emit)
	}

	if err := audio.Stop(); err != nil && ctx.Err() == nil {
		e.events.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}
	<-pumpDone

	if ctx.Err() != nil {
		_ = stream.Close()
		return
	}

	_ = stream.CloseSend()
	if err := waitForStream(stream, streamWaitTimeout); err != nil {
		e.log.Warn("transcription stream failed", zap.Error(err))
		e.events.SessionError(domain.ErrorCodeCapture, err.Error())
	}
	emit(domain.RecognitionEvent{Status: domain.RecognitionStopped})
}

func (e *CaptureEngine) consume(ctx context.Context, stream ports.StreamingSession, emit func(domain.RecognitionEvent) bool) {
	transcripts := stream.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case tr, ok := <-transcripts:
			if !ok {
				return
			}
			ev, ok := e.recognition(tr)
			if !ok {
				continue
			}
			if !emit(ev) {
				return
			}
		}
	}
}

// recognition maps a provider transcript to a recognition event. Final
// results that are not speech final leave the utterance open.
func (e *CaptureEngine) recognition(tr domain.TranscriptEvent) (domain.RecognitionEvent, bool) {
	text := e.transform(tr.Text)
	switch tr.Kind {
	case domain.TranscriptKindPartial:
		if text == "" {
			return domain.RecognitionEvent{}, false
		}
		return domain.RecognitionEvent{Status: domain.RecognitionRecognizing, Text: text}, true
	case domain.TranscriptKindFinal:
		if text == "" && !tr.IsSpeechFinal {
			return domain.RecognitionEvent{}, false
		}
		return domain.RecognitionEvent{
			Status:            domain.RecognitionRecognized,
			Text:              text,
			AwaitingMoreInput: !tr.IsSpeechFinal,
		}, true
	}
	return domain.RecognitionEvent{}, false
}

func (e *CaptureEngine) transform(text string) string {
	if text == "" || e.rules == nil {
		return text
	}
	out, err := e.rules.Apply(text)
	if err != nil {
		e.log.Debug("transcript rules failed", zap.Error(err))
		return text
	}
	return out
}

type discardEvents struct{}

func (discardEvents) SessionStateChanged(domain.SessionKind, domain.ActivationState, domain.SessionStateReason) {}

func (discardEvents) SessionError(domain.ErrorCode, string) {}
