package ports

import (
	"context"
	"io"

	"voicechat/internal/contextkey"
	"voicechat/internal/domain"
	"voicechat/internal/event"
)

// Controller is the capability set a surface exposes to voice sessions.
type Controller interface {
	Kind() domain.SurfaceKind
	// MultiParticipant reports whether the surface routes input to
	// several participants, which changes how capture is configured.
	MultiParticipant() bool
	ContextKeys() *contextkey.Set

	FocusInput()
	AcceptInput(ctx context.Context) (ChatResponse, error)
	UpdateInput(text string)
	Input() string
	SetPlaceholder(text string)
	ClearPlaceholder()
	UpdateState(state domain.ActivationState)

	OnInputAccepted(fn func()) event.Disposable
	OnSurfaceHidden(fn func()) event.Disposable
}

// TargetResolver maps a requested target to a Controller. A false result
// means no surface is available and is not an error.
type TargetResolver interface {
	Resolve(ctx context.Context, target domain.Target) (Controller, bool)
}

// ChatResponse is a streaming response produced by accepting input.
type ChatResponse interface {
	IsComplete() bool
	String() string
	OnChange(fn func()) event.Disposable
}

// CaptureOptions parameterizes a capture stream.
type CaptureOptions struct {
	MultiParticipant bool
	Language         string
	Keywords         []string
}

// CaptureSession is a live speech-to-text stream. Events is closed when
// the stream ends for any reason.
type CaptureSession interface {
	Events() <-chan domain.RecognitionEvent
}

// CaptureEngine creates capture sessions bound to ctx.
type CaptureEngine interface {
	CreateCaptureSession(ctx context.Context, opts CaptureOptions) (CaptureSession, error)
}

// SynthesisSession speaks text one utterance at a time.
type SynthesisSession interface {
	Synthesize(ctx context.Context, text string) error
	OnStatusChange(fn func(domain.SynthesisStatus)) event.Disposable
}

// SynthesisEngine creates synthesis sessions bound to ctx.
type SynthesisEngine interface {
	CreateSynthesisSession(ctx context.Context) (SynthesisSession, error)
}

// KeywordEngine blocks until the wake phrase is heard or the call stops.
type KeywordEngine interface {
	RecognizeKeyword(ctx context.Context) (domain.KeywordResult, error)
}

// CommandExecutor dispatches commands by id.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, id string) error
}

// Configuration reads settings by id and reports which ids changed.
type Configuration interface {
	GetValue(id string) any
	OnDidChange(fn func(ids []string)) event.Disposable
}

// Accessibility reports whether screen-reader-optimized mode is on.
type Accessibility interface {
	ScreenReaderOptimized() bool
}

// HostWindow reports whether the host window has OS-level focus.
type HostWindow interface {
	HasFocus() bool
}

// EditorFocus reports whether the active editor has a widget focused.
type EditorFocus interface {
	EditorHasWidgetFocus() bool
}

// Dialog asks the user a blocking yes/no question.
type Dialog interface {
	Confirm(ctx context.Context, message string, primary string) (bool, error)
}

// Indicator is a status-bar style entry.
type Indicator interface {
	Update(text string, tooltip string)
}

// KeybindingHold detects a sustained key press for a keybinding. The
// returned channel is closed when the key is released; ok is false when
// the invocation did not come from a held key.
type KeybindingHold interface {
	EnableHoldMode(commandID string) (released <-chan struct{}, ok bool)
}

// AgentRegistry reports whether a default conversational agent exists.
type AgentRegistry interface {
	HasDefaultAgent() bool
	OnDidChangeAgents(fn func()) event.Disposable
}

// SpeechAvailability reports whether speech engines are usable.
type SpeechAvailability interface {
	HasSpeechProvider() bool
	OnDidChange(fn func()) event.Disposable
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(kind domain.SessionKind, state domain.ActivationState, reason domain.SessionStateReason)
	SessionError(code domain.ErrorCode, detail string)
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// PlaybackConfig describes how synthesized PCM is played.
type PlaybackConfig struct {
	SampleRate   int
	Channels     int
	OutputFormat string
	OutputDevice string
}

// PlaybackSession accepts PCM audio for the speaker.
type PlaybackSession interface {
	io.WriteCloser
	Stop() error
}

// AudioPlayback creates speaker playback sessions.
type AudioPlayback interface {
	Start(ctx context.Context, cfg PlaybackConfig) (PlaybackSession, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
	Language       string
	Diarize        bool
	Keywords       []string
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// SpeakConfig describes provider-agnostic synthesis settings.
type SpeakConfig struct {
	SampleRate int
	Encoding   string
}

// SpeakSession turns text into PCM audio written to w.
type SpeakSession interface {
	Speak(ctx context.Context, text string, w io.Writer) error
	Close() error
}

// SpeechProvider starts text-to-speech sessions.
type SpeechProvider interface {
	StartSpeaking(ctx context.Context, cfg SpeakConfig) (SpeakSession, error)
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// ResponseHistory is implemented by controllers that remember the last
// response they produced, so it can be read aloud on request.
type ResponseHistory interface {
	LastResponse() (ChatResponse, bool)
}

// SpeechProbe checks whether the speech backends can be used.
type SpeechProbe interface {
	Probe(ctx context.Context) error
}
