package usecase

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"voicechat/internal/contextkey"
	"voicechat/internal/domain"
	"voicechat/internal/event"
	"voicechat/internal/ports"
)

const (
	keywordListeningText    = "$(mic-filled)"
	keywordListeningTooltip = "Listening for the wake phrase"
	keywordIdleTooltip      = "Wake phrase detection is off"
)

// KeywordDeps are the collaborators of the wake phrase loop.
type KeywordDeps struct {
	Engine       ports.KeywordEngine
	Sessions     *Coordinator
	Commands     ports.CommandExecutor
	Settings     ports.Configuration
	Availability ports.SpeechAvailability
	Agents       ports.AgentRegistry
	Window       ports.HostWindow
	Editor       ports.EditorFocus
	Indicator    ports.Indicator
	Events       ports.EventSink
	Logger       *zap.Logger
}

// KeywordActivation listens for the wake phrase in the background while
// no voice session is running, and opens voice chat when it is heard.
type KeywordActivation struct {
	deps KeywordDeps
	log  *zap.Logger

	// reconcileMu makes evaluating the condition and acting on it atomic.
	reconcileMu sync.Mutex

	mu        sync.Mutex
	call      uint64
	cancel    context.CancelFunc
	listening bool
	closed    bool

	subscriptions event.Store
	wg            sync.WaitGroup
}

func NewKeywordActivation(deps KeywordDeps) *KeywordActivation {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Events == nil {
		deps.Events = noopEventSink{}
	}
	return &KeywordActivation{deps: deps, log: deps.Logger.Named("keyword")}
}

// Start subscribes to every input of the enablement condition and
// reconciles once.
func (k *KeywordActivation) Start() {
	if k.deps.Availability != nil {
		k.subscriptions.Add(k.deps.Availability.OnDidChange(k.Reconcile))
	}
	if k.deps.Agents != nil {
		k.subscriptions.Add(k.deps.Agents.OnDidChangeAgents(k.Reconcile))
	}
	if k.deps.Sessions != nil {
		k.subscriptions.Add(k.deps.Sessions.OnDidChange(func(domain.SessionChange) { k.Reconcile() }))
	}
	if k.deps.Settings != nil {
		k.subscriptions.Add(k.deps.Settings.OnDidChange(func(ids []string) {
			for _, id := range ids {
				if id == domain.SettingKeywordActivation {
					k.Reconcile()
					return
				}
			}
		}))
	}
	k.Reconcile()
}

// Close stops listening for good and waits for the listener to exit.
func (k *KeywordActivation) Close() {
	k.subscriptions.Dispose()
	k.mu.Lock()
	k.closed = true
	k.mu.Unlock()
	k.disable()
	k.wg.Wait()
}

// Listening reports whether a recognition call is in flight.
func (k *KeywordActivation) Listening() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.listening
}

func (k *KeywordActivation) enabled() bool {
	if k.deps.Engine == nil {
		return false
	}
	if k.deps.Availability != nil && !k.deps.Availability.HasSpeechProvider() {
		return false
	}
	if keywordActivationSetting(k.deps.Settings) == domain.KeywordActivationOff {
		return false
	}
	if k.deps.Agents != nil && !k.deps.Agents.HasDefaultAgent() {
		return false
	}
	if k.deps.Sessions != nil && k.deps.Sessions.HasActiveSession() {
		return false
	}
	return true
}

// Reconcile starts or stops listening to match the current conditions.
func (k *KeywordActivation) Reconcile() {
	k.reconcileMu.Lock()
	defer k.reconcileMu.Unlock()
	if k.enabled() {
		k.enable()
	} else {
		k.disable()
	}
}

func (k *KeywordActivation) enable() {
	k.mu.Lock()
	if k.closed || k.listening {
		k.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	k.call++
	call := k.call
	k.cancel = cancel
	k.listening = true
	k.wg.Add(1)
	k.mu.Unlock()

	k.publish(true)
	go k.listen(ctx, call)
}

func (k *KeywordActivation) disable() {
	k.mu.Lock()
	if !k.listening {
		k.mu.Unlock()
		return
	}
	k.call++
	k.cancel()
	k.cancel = nil
	k.listening = false
	k.mu.Unlock()

	k.publish(false)
}

// finish marks call as over unless a newer call superseded it.
func (k *KeywordActivation) finish(call uint64) bool {
	k.mu.Lock()
	if k.call != call {
		k.mu.Unlock()
		return false
	}
	k.call++
	if k.cancel != nil {
		k.cancel()
		k.cancel = nil
	}
	k.listening = false
	k.mu.Unlock()

	k.publish(false)
	return true
}

func (k *KeywordActivation) current(call uint64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.call == call
}

func (k *KeywordActivation) listen(ctx context.Context, call uint64) {
	defer k.wg.Done()

	for {
		result, err := k.deps.Engine.RecognizeKeyword(ctx)
		if !k.current(call) {
			return
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				k.log.Warn("wake phrase recognition failed", zap.Error(err))
				k.deps.Events.SessionError(domain.ErrorCodeKeyword, err.Error())
			}
			k.finish(call)
			return
		}
		if result != domain.KeywordRecognized {
			k.finish(call)
			return
		}

		if k.deps.Window == nil || k.deps.Window.HasFocus() {
			k.dispatch()
		}
	}
}

func (k *KeywordActivation) dispatch() {
	command := k.commandFor(keywordActivationSetting(k.deps.Settings))
	if command == "" || k.deps.Commands == nil {
		return
	}
	k.log.Debug("wake phrase recognized", zap.String("command", command))
	go func() {
		if err := k.deps.Commands.ExecuteCommand(context.Background(), command); err != nil {
			k.log.Debug("wake command failed", zap.String("command", command), zap.Error(err))
		}
	}()
}

func (k *KeywordActivation) commandFor(mode domain.KeywordActivation) string {
	switch mode {
	case domain.KeywordActivationInlineChat:
		return CommandInlineVoiceChat
	case domain.KeywordActivationQuickChat:
		return CommandQuickVoiceChat
	case domain.KeywordActivationChatInView:
		return CommandVoiceChatInView
	case domain.KeywordActivationChatInContext:
		if k.deps.Editor != nil && k.deps.Editor.EditorHasWidgetFocus() {
			return CommandInlineVoiceChat
		}
		return CommandVoiceChatInView
	default:
		return ""
	}
}

func (k *KeywordActivation) publish(listening bool) {
	if k.deps.Sessions != nil {
		k.deps.Sessions.Keys().Set(contextkey.KeywordActivationListening, listening)
	}
	if k.deps.Indicator == nil {
		return
	}
	if listening {
		k.deps.Indicator.Update(keywordListeningText, keywordListeningTooltip)
	} else {
		k.deps.Indicator.Update("", keywordIdleTooltip)
	}
}
