package domain

// SessionKind distinguishes capture sessions from playback sessions.
type SessionKind string

const (
	SessionKindInput  SessionKind = "input"
	SessionKindOutput SessionKind = "output"
)

// SurfaceKind identifies which interactive surface owns a session.
type SurfaceKind string

const (
	SurfaceNone   SurfaceKind = ""
	SurfaceView   SurfaceKind = "view"
	SurfaceInline SurfaceKind = "inline"
	SurfaceQuick  SurfaceKind = "quick"
	SurfaceEditor SurfaceKind = "editor"
)

// Target is a request for a surface, resolved against current focus.
type Target string

const (
	TargetFocused Target = "focused"
	TargetView    Target = "view"
	TargetInline  Target = "inline"
	TargetQuick   Target = "quick"
)

// RecognitionStatus is the lifecycle stage reported by a capture stream.
type RecognitionStatus string

const (
	RecognitionStarted     RecognitionStatus = "started"
	RecognitionRecognizing RecognitionStatus = "recognizing"
	RecognitionRecognized  RecognitionStatus = "recognized"
	RecognitionStopped     RecognitionStatus = "stopped"
)

// RecognitionEvent is one item of a capture stream.
type RecognitionEvent struct {
	Status            RecognitionStatus `json:"status"`
	Text              string            `json:"text,omitempty"`
	AwaitingMoreInput bool              `json:"awaitingMoreInput,omitempty"`
}

// SynthesisStatus reports playback progress of a synthesis session.
type SynthesisStatus string

const (
	SynthesisStarted SynthesisStatus = "started"
	SynthesisStopped SynthesisStatus = "stopped"
)

// KeywordResult is the outcome of one wake phrase recognition call.
type KeywordResult string

const (
	KeywordRecognized KeywordResult = "recognized"
	KeywordStopped    KeywordResult = "stopped"
)

// ActivationPhase is the coarse voice input state of a surface.
type ActivationPhase string

const (
	PhaseStopped      ActivationPhase = "stopped"
	PhaseGettingReady ActivationPhase = "getting_ready"
	PhaseActive       ActivationPhase = "active"
)

// ActivationState is Stopped, GettingReady, or Active for a surface kind.
type ActivationState struct {
	Phase   ActivationPhase `json:"phase"`
	Surface SurfaceKind     `json:"surface,omitempty"`
}

func StateStopped() ActivationState {
	return ActivationState{Phase: PhaseStopped}
}

func StateGettingReady() ActivationState {
	return ActivationState{Phase: PhaseGettingReady}
}

func StateActive(surface SurfaceKind) ActivationState {
	return ActivationState{Phase: PhaseActive, Surface: surface}
}

func (s ActivationState) IsStopped() bool {
	return s.Phase == "" || s.Phase == PhaseStopped
}

// AutoSynthesize controls reading accepted responses aloud.
type AutoSynthesize string

const (
	AutoSynthesizeOn   AutoSynthesize = "on"
	AutoSynthesizeOff  AutoSynthesize = "off"
	AutoSynthesizeAuto AutoSynthesize = "auto"
)

// KeywordActivation selects what the wake phrase opens.
type KeywordActivation string

const (
	KeywordActivationOff           KeywordActivation = "off"
	KeywordActivationChatInView    KeywordActivation = "chatInView"
	KeywordActivationQuickChat     KeywordActivation = "quickChat"
	KeywordActivationInlineChat    KeywordActivation = "inlineChat"
	KeywordActivationChatInContext KeywordActivation = "chatInContext"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonGettingReady     SessionStateReason = "getting_ready"
	SessionReasonListening        SessionStateReason = "listening"
	SessionReasonAccepted         SessionStateReason = "accepted"
	SessionReasonStopped          SessionStateReason = "stopped"
	SessionReasonSuperseded       SessionStateReason = "superseded"
	SessionReasonSpeaking         SessionStateReason = "speaking"
	SessionReasonFinishedSpeaking SessionStateReason = "finished_speaking"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeSetup       ErrorCode = "setup"
	ErrorCodeAudioStop   ErrorCode = "audio_stop"
	ErrorCodeAudioStream ErrorCode = "audio_stream"
	ErrorCodeCapture     ErrorCode = "capture"
	ErrorCodeSynthesis   ErrorCode = "synthesis"
	ErrorCodeAccept      ErrorCode = "accept"
	ErrorCodeKeyword     ErrorCode = "keyword"
)

// TranscriptKind identifies whether a provider event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental transcription output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// Status summarizes the coordinator's sessions.
type Status struct {
	Input          ActivationState `json:"input"`
	InputSession   uint64          `json:"inputSession,omitempty"`
	Synthesizing   bool            `json:"synthesizing"`
	OutputSession  uint64          `json:"outputSession,omitempty"`
	OutputSurface  SurfaceKind     `json:"outputSurface,omitempty"`
	SpeechProvider bool            `json:"speechProvider"`
}

// SessionChange is published whenever a session starts or ends.
type SessionChange struct {
	Kind    SessionKind `json:"kind"`
	ID      uint64      `json:"id"`
	Surface SurfaceKind `json:"surface"`
	Active  bool        `json:"active"`
}
