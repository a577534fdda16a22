package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"voicechat/internal/bootstrap"
	"voicechat/internal/config"
	"voicechat/internal/domain"
	"voicechat/internal/event"
	"voicechat/internal/usecase"
)

const (
	eventSession   = "voicechat:session"
	eventError     = "voicechat:error"
	eventIndicator = "voicechat:indicator"
)

// App is the Wails application root.
type App struct {
	ctx  context.Context
	emit func(name string, data ...interface{})

	services *bootstrap.Services
	cfg      config.Config
	bootErr  error

	bench *webWorkbench
	hold  *keyHold

	windowFocused  atomic.Bool
	screenReader   atomic.Bool
	agentAvailable atomic.Bool
	agentsChanged  event.Signal
}

func NewApp() *App {
	a := &App{hold: newKeyHold()}
	a.bench = newWebWorkbench(a.emitEvent)
	return a
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.emit = func(name string, data ...interface{}) { runtime.EventsEmit(ctx, name, data...) }
	a.windowFocused.Store(true)
	a.agentAvailable.Store(true)

	services, err := bootstrap.Build(bootstrap.Host{
		Events:        a,
		Workbench:     a.bench,
		Dialog:        &wailsDialog{ctx: ctx},
		Indicator:     a,
		Window:        a,
		Editor:        a,
		Agents:        a,
		Accessibility: a,
		Hold:          a.hold,
	})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.cfg = services.Config
	services.Start(ctx)
	a.SessionStateChanged(domain.SessionKindInput, domain.StateStopped(), domain.SessionReasonStopped)
}

func (a *App) shutdown(context.Context) {
	if a.services == nil {
		return
	}
	if err := a.services.Close(); err != nil {
		a.services.Logger.Warn("shutdown", zap.Error(err))
	}
	_ = a.services.Logger.Sync()
}

// StartVoiceChat starts voice input for a target: focused, view, or quick.
func (a *App) StartVoiceChat(target string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	id, err := commandForTarget(domain.Target(target))
	if err != nil {
		return domain.Status{}, err
	}
	if err := a.services.Commands.ExecuteCommand(a.ctx, id); err != nil {
		a.SessionError(domain.ErrorCodeCapture, err.Error())
		return domain.Status{}, err
	}
	return a.GetStatus(), nil
}

// Accept submits the current voice input.
func (a *App) Accept() (domain.Status, error) {
	return a.run(usecase.CommandStopListeningAndSubmit)
}

// Stop discards the current voice input.
func (a *App) Stop() (domain.Status, error) {
	return a.run(usecase.CommandStopListening)
}

// ReadAloud speaks the last response of the focused chat.
func (a *App) ReadAloud() (domain.Status, error) {
	return a.run(usecase.CommandReadAloud)
}

// StopReadAloud ends the current read-aloud session.
func (a *App) StopReadAloud() (domain.Status, error) {
	return a.run(usecase.CommandStopReadAloud)
}

// ExecuteCommand runs a voice command by id.
func (a *App) ExecuteCommand(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Commands.ExecuteCommand(a.ctx, id)
}

// PressCommand runs a command bound to a key that is now down. Hold-aware
// commands keep running until ReleaseCommand is called for the same id.
func (a *App) PressCommand(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	release := a.hold.press(id)
	defer release()
	return a.services.Commands.ExecuteCommand(a.ctx, id)
}

// ReleaseCommand reports that the key bound to id went up.
func (a *App) ReleaseCommand(id string) {
	a.hold.release(id)
}

// ListCommands returns every registered command id.
func (a *App) ListCommands() []string {
	if a.services == nil {
		return nil
	}
	return a.services.Commands.IDs()
}

// SetSetting updates one voice setting and persists it.
func (a *App) SetSetting(id string, value any) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Settings.Set(id, value)
}

// GetSettings returns every voice setting.
func (a *App) GetSettings() map[string]any {
	if a.services == nil {
		return domain.DefaultSettings()
	}
	return a.services.Settings.Snapshot()
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.services == nil {
		return domain.Status{Input: domain.StateStopped()}
	}
	status := a.services.Coordinator.Status()
	status.SpeechProvider = a.services.Setup.HasSpeechProvider()
	return status
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	info := map[string]string{
		"provider":         "Deepgram",
		"model":            a.cfg.Deepgram.Model,
		"speakModel":       a.cfg.Deepgram.SpeakModel,
		"language":         a.cfg.Deepgram.Language,
		"rulesFile":        a.cfg.Rules.Path,
		"settingsFile":     a.cfg.SettingsPath,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"audioOutput":      a.cfg.Playback.OutputDevice,
	}
	if a.services != nil {
		if err := a.services.Setup.LastError(); err != nil {
			info["speechSetup"] = err.Error()
		}
	}
	return info
}

func (a *App) run(id string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.services.Commands.ExecuteCommand(a.ctx, id); err != nil {
		return domain.Status{}, err
	}
	return a.GetStatus(), nil
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) emitEvent(name string, data ...interface{}) {
	if a.emit == nil {
		return
	}
	a.emit(name, data...)
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(kind domain.SessionKind, state domain.ActivationState, reason domain.SessionStateReason) {
	a.emitEvent(eventSession, map[string]string{
		"kind":    string(kind),
		"phase":   string(state.Phase),
		"surface": string(state.Surface),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.emitEvent(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

// Update shows the wake phrase indicator.
func (a *App) Update(text string, tooltip string) {
	a.emitEvent(eventIndicator, map[string]string{"text": text, "tooltip": tooltip})
}

// SetWindowFocused is called by the frontend on window focus and blur.
func (a *App) SetWindowFocused(focused bool) {
	a.windowFocused.Store(focused)
}

func (a *App) HasFocus() bool { return a.windowFocused.Load() }

// The desktop window has no code editor.
func (a *App) EditorHasWidgetFocus() bool { return false }

// SetScreenReaderOptimized is called by the frontend when assistive
// technology is detected.
func (a *App) SetScreenReaderOptimized(on bool) {
	a.screenReader.Store(on)
}

func (a *App) ScreenReaderOptimized() bool { return a.screenReader.Load() }

// SetAgentAvailable is called by the frontend when its chat backend
// connects or disconnects.
func (a *App) SetAgentAvailable(available bool) {
	if a.agentAvailable.Swap(available) != available {
		a.agentsChanged.Fire()
	}
}

func (a *App) HasDefaultAgent() bool { return a.agentAvailable.Load() }

func (a *App) OnDidChangeAgents(fn func()) event.Disposable {
	return a.agentsChanged.Subscribe(fn)
}

func commandForTarget(target domain.Target) (string, error) {
	switch target {
	case "", domain.TargetFocused:
		return usecase.CommandStartVoiceChat, nil
	case domain.TargetView:
		return usecase.CommandVoiceChatInView, nil
	case domain.TargetQuick:
		return usecase.CommandQuickVoiceChat, nil
	default:
		return "", fmt.Errorf("unsupported voice chat target %q", target)
	}
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonGettingReady:
		return "Getting ready..."
	case domain.SessionReasonListening:
		return "Listening"
	case domain.SessionReasonAccepted:
		return "Input submitted"
	case domain.SessionReasonStopped:
		return "Voice input stopped"
	case domain.SessionReasonSuperseded:
		return "Voice session replaced by a newer one"
	case domain.SessionReasonSpeaking:
		return "Reading aloud"
	case domain.SessionReasonFinishedSpeaking:
		return "Finished reading aloud"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeSetup:
		return "Speech setup failed"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeCapture:
		return "Speech recognition error"
	case domain.ErrorCodeSynthesis:
		return "Read aloud failed"
	case domain.ErrorCodeAccept:
		return "Submitting voice input failed"
	case domain.ErrorCodeKeyword:
		return "Wake phrase detection stopped"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsDialog struct {
	ctx context.Context
}

func (d *wailsDialog) Confirm(_ context.Context, message string, primary string) (bool, error) {
	choice, err := runtime.MessageDialog(d.ctx, runtime.MessageDialogOptions{
		Type:          runtime.QuestionDialog,
		Title:         "Voice Chat",
		Message:       message,
		Buttons:       []string{primary, "Cancel"},
		DefaultButton: primary,
		CancelButton:  "Cancel",
	})
	if err != nil {
		return false, err
	}
	return choice == primary || choice == "Yes", nil
}
