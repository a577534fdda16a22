package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"voicechat/internal/domain"
	"voicechat/internal/ports"
)

var ErrUnknownCommand = errors.New("unknown command")

const (
	CommandStartVoiceChat         = "voice.startVoiceChat"
	CommandVoiceChatInView        = "voice.voiceChatInView"
	CommandInlineVoiceChat        = "voice.inlineVoiceChat"
	CommandQuickVoiceChat         = "voice.quickVoiceChat"
	CommandHoldToVoiceChat        = "voice.holdToVoiceChat"
	CommandStopListening          = "voice.stopListening"
	CommandStopListeningAndSubmit = "voice.stopListeningAndSubmit"
	CommandReadAloud              = "voice.readAloud"
	CommandStopReadAloud          = "voice.stopReadAloud"
	CommandRetrySpeechSetup       = "voice.retrySpeechSetup"
)

// CommandDeps are the collaborators of the command registry.
type CommandDeps struct {
	Sessions     *Coordinator
	Resolver     ports.TargetResolver
	Hold         *HoldToTalk
	Availability ports.SpeechAvailability
	Setup        *SpeechSetup
	Logger       *zap.Logger
}

// Commands maps command ids to voice actions. It implements
// ports.CommandExecutor.
type Commands struct {
	deps     CommandDeps
	log      *zap.Logger
	handlers map[string]func(ctx context.Context) error
}

func NewCommands(deps CommandDeps) *Commands {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	c := &Commands{deps: deps, log: deps.Logger.Named("commands")}
	c.handlers = map[string]func(ctx context.Context) error{
		CommandStartVoiceChat:         c.startVoiceChat(domain.TargetFocused),
		CommandVoiceChatInView:        c.startVoiceChat(domain.TargetView),
		CommandInlineVoiceChat:        c.startVoiceChat(domain.TargetInline),
		CommandQuickVoiceChat:         c.startVoiceChat(domain.TargetQuick),
		CommandHoldToVoiceChat:        c.holdToVoiceChat,
		CommandStopListening:          c.stopListening,
		CommandStopListeningAndSubmit: c.stopListeningAndSubmit,
		CommandReadAloud:              c.readAloud,
		CommandStopReadAloud:          c.stopReadAloud,
		CommandRetrySpeechSetup:       c.retrySpeechSetup,
	}
	return c
}

// IDs lists every registered command id.
func (c *Commands) IDs() []string {
	ids := make([]string, 0, len(c.handlers))
	for id := range c.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Commands) ExecuteCommand(ctx context.Context, id string) error {
	handler, ok := c.handlers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}
	c.log.Debug("execute", zap.String("command", id))
	return handler(ctx)
}

func (c *Commands) speechAvailable() bool {
	return c.deps.Availability == nil || c.deps.Availability.HasSpeechProvider()
}

func (c *Commands) startVoiceChat(target domain.Target) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if !c.speechAvailable() {
			return nil
		}
		controller, ok := c.deps.Resolver.Resolve(ctx, target)
		if !ok {
			return nil
		}
		_, err := c.deps.Sessions.StartInput(ctx, controller, InputOptions{})
		if errors.Is(err, ErrSessionStopped) {
			return nil
		}
		return err
	}
}

func (c *Commands) holdToVoiceChat(ctx context.Context) error {
	if !c.speechAvailable() || c.deps.Hold == nil {
		return nil
	}
	return c.deps.Hold.Run(ctx, CommandHoldToVoiceChat, domain.TargetFocused)
}

func (c *Commands) stopListening(context.Context) error {
	c.deps.Sessions.StopInput()
	return nil
}

func (c *Commands) stopListeningAndSubmit(ctx context.Context) error {
	err := c.deps.Sessions.AcceptInput(ctx)
	if errors.Is(err, ErrNoActiveSession) {
		return nil
	}
	return err
}

func (c *Commands) readAloud(ctx context.Context) error {
	if !c.speechAvailable() {
		return nil
	}
	controller, ok := c.deps.Resolver.Resolve(ctx, domain.TargetFocused)
	if !ok {
		return nil
	}
	history, ok := controller.(ports.ResponseHistory)
	if !ok {
		return nil
	}
	response, ok := history.LastResponse()
	if !ok {
		return nil
	}
	_, err := c.deps.Sessions.StartOutput(ctx, controller, response)
	if errors.Is(err, ErrSessionStopped) {
		return nil
	}
	return err
}

func (c *Commands) stopReadAloud(context.Context) error {
	c.deps.Sessions.StopOutput()
	return nil
}

func (c *Commands) retrySpeechSetup(ctx context.Context) error {
	if c.deps.Setup == nil {
		return nil
	}
	err := c.deps.Setup.Ensure(ctx)
	if errors.Is(err, ErrSetupDeclined) {
		return nil
	}
	return err
}
