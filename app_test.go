package main

import (
	"errors"
	"sync"
	"testing"

	"voicechat/internal/domain"
	"voicechat/internal/usecase"
)

func TestSessionReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.SessionStateReason]string{
		domain.SessionReasonGettingReady:     "Getting ready...",
		domain.SessionReasonListening:        "Listening",
		domain.SessionReasonAccepted:         "Input submitted",
		domain.SessionReasonStopped:          "Voice input stopped",
		domain.SessionReasonSuperseded:       "Voice session replaced by a newer one",
		domain.SessionReasonSpeaking:         "Reading aloud",
		domain.SessionReasonFinishedSpeaking: "Finished reading aloud",
	}

	for reason, want := range cases {
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := sessionReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := sessionReasonMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:     "Startup failed",
		domain.ErrorCodeSetup:       "Speech setup failed",
		domain.ErrorCodeAudioStop:   "Audio stop issue",
		domain.ErrorCodeAudioStream: "Audio streaming issue",
		domain.ErrorCodeCapture:     "Speech recognition error",
		domain.ErrorCodeSynthesis:   "Read aloud failed",
		domain.ErrorCodeAccept:      "Submitting voice input failed",
		domain.ErrorCodeKeyword:     "Wake phrase detection stopped",
	}
	for code, want := range cases {
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := NewApp()
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
	if _, err := app.Accept(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error from Accept, got %v", err)
	}
	if info := app.GetRuntimeInfo(); info["error"] != "boot" {
		t.Fatalf("unexpected runtime info: %+v", info)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := NewApp()
	status := app.GetStatus()
	if !status.Input.IsStopped() || status.Synthesizing || status.SpeechProvider {
		t.Fatalf("unexpected status: %+v", status)
	}
	if got := app.GetSettings()[domain.SettingKeywordActivation]; got != string(domain.KeywordActivationOff) {
		t.Fatalf("expected default settings, got %v", got)
	}
	if app.ListCommands() != nil {
		t.Fatalf("expected no commands before startup")
	}
}

func TestCommandForTarget(t *testing.T) {
	t.Parallel()

	cases := map[domain.Target]string{
		"":                   usecase.CommandStartVoiceChat,
		domain.TargetFocused: usecase.CommandStartVoiceChat,
		domain.TargetView:    usecase.CommandVoiceChatInView,
		domain.TargetQuick:   usecase.CommandQuickVoiceChat,
	}
	for target, want := range cases {
		got, err := commandForTarget(target)
		if err != nil || got != want {
			t.Fatalf("target %q: got %q, %v", target, got, err)
		}
	}
	if _, err := commandForTarget(domain.TargetInline); err == nil {
		t.Fatalf("expected inline target to be rejected")
	}
}

func TestEventsAreEmittedToFrontend(t *testing.T) {
	t.Parallel()

	app := NewApp()
	rec := &recorder{}
	app.emit = rec.emit

	app.SessionStateChanged(domain.SessionKindInput, domain.StateActive(domain.SurfaceView), domain.SessionReasonListening)
	app.SessionError(domain.ErrorCodeCapture, "socket closed")
	app.Update("$(mic)", "Waiting for wake phrase")

	events := rec.all()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %+v", events)
	}
	session := events[0].data.(map[string]string)
	if events[0].name != eventSession || session["phase"] != "active" || session["surface"] != "view" || session["message"] != "Listening" {
		t.Fatalf("unexpected session event: %+v", events[0])
	}
	failure := events[1].data.(map[string]string)
	if events[1].name != eventError || failure["message"] != "Speech recognition error" || failure["detail"] != "socket closed" {
		t.Fatalf("unexpected error event: %+v", events[1])
	}
	if events[2].name != eventIndicator {
		t.Fatalf("unexpected indicator event: %+v", events[2])
	}
}

func TestHostStateSetters(t *testing.T) {
	t.Parallel()

	app := NewApp()
	app.SetWindowFocused(true)
	app.SetScreenReaderOptimized(true)
	if !app.HasFocus() || !app.ScreenReaderOptimized() || app.EditorHasWidgetFocus() {
		t.Fatalf("unexpected host state")
	}

	changes := 0
	sub := app.OnDidChangeAgents(func() { changes++ })
	defer sub.Dispose()

	app.SetAgentAvailable(true)
	app.SetAgentAvailable(true)
	app.SetAgentAvailable(false)
	if changes != 2 || app.HasDefaultAgent() {
		t.Fatalf("expected two changes ending unavailable, got %d", changes)
	}
}

type emitted struct {
	name string
	data interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recorder) emit(name string, data ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var payload interface{}
	if len(data) > 0 {
		payload = data[0]
	}
	r.events = append(r.events, emitted{name: name, data: payload})
}

func (r *recorder) all() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emitted(nil), r.events...)
}

func (r *recorder) named(name string) []emitted {
	var out []emitted
	for _, ev := range r.all() {
		if ev.name == name {
			out = append(out, ev)
		}
	}
	return out
}
