package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicechat/internal/chat"
	"voicechat/internal/domain"
	"voicechat/internal/ports"
)

func TestCommandsStartVoiceChatForTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		command string
		target  domain.Target
	}{
		{command: CommandStartVoiceChat, target: domain.TargetFocused},
		{command: CommandVoiceChatInView, target: domain.TargetView},
		{command: CommandInlineVoiceChat, target: domain.TargetInline},
		{command: CommandQuickVoiceChat, target: domain.TargetQuick},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, nil)
			controller := newFakeController(domain.SurfaceView)
			h.resolver.set(tt.target, controller)
			commands := NewCommands(CommandDeps{Sessions: h.coordinator, Resolver: h.resolver})

			require.NoError(t, commands.ExecuteCommand(context.Background(), tt.command))
			assert.Equal(t, []domain.Target{tt.target}, h.resolver.resolved())
			assert.True(t, h.coordinator.HasActiveSession())
		})
	}
}

func TestCommandsNoopWithoutSpeechProvider(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.resolver.set(domain.TargetFocused, newFakeController(domain.SurfaceView))
	commands := NewCommands(CommandDeps{
		Sessions:     h.coordinator,
		Resolver:     h.resolver,
		Availability: newFakeToggle(false),
	})

	for _, id := range []string{CommandStartVoiceChat, CommandReadAloud, CommandHoldToVoiceChat} {
		require.NoError(t, commands.ExecuteCommand(context.Background(), id))
	}
	assert.Empty(t, h.resolver.resolved())
	assert.False(t, h.coordinator.HasActiveSession())
}

func TestCommandsUnresolvedTargetIsNoop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	commands := NewCommands(CommandDeps{Sessions: h.coordinator, Resolver: h.resolver})

	require.NoError(t, commands.ExecuteCommand(context.Background(), CommandInlineVoiceChat))
	assert.False(t, h.coordinator.HasActiveSession())
}

func TestCommandsUnknown(t *testing.T) {
	t.Parallel()

	commands := NewCommands(CommandDeps{})
	err := commands.ExecuteCommand(context.Background(), "voice.nope")
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Len(t, commands.IDs(), 10)
}

func TestCommandsStopAndSubmit(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]any{domain.SettingSpeechTimeout: 0})
	controller := newFakeController(domain.SurfaceView)
	h.resolver.set(domain.TargetFocused, controller)
	commands := NewCommands(CommandDeps{Sessions: h.coordinator, Resolver: h.resolver})

	require.NoError(t, commands.ExecuteCommand(context.Background(), CommandStopListeningAndSubmit))

	require.NoError(t, commands.ExecuteCommand(context.Background(), CommandStartVoiceChat))
	h.capture.next(t).emit(domain.RecognitionEvent{Status: domain.RecognitionRecognized, Text: "ship it"})
	require.Eventually(t, func() bool { return controller.lastUpdate() == "ship it" }, waitTimeout, time.Millisecond)

	require.NoError(t, commands.ExecuteCommand(context.Background(), CommandStopListeningAndSubmit))
	assert.Equal(t, 1, controller.acceptCount())
	assert.False(t, h.coordinator.HasActiveSession())

	require.NoError(t, commands.ExecuteCommand(context.Background(), CommandStartVoiceChat))
	require.NoError(t, commands.ExecuteCommand(context.Background(), CommandStopListening))
	assert.False(t, h.coordinator.HasActiveSession())
	assert.Equal(t, 1, controller.acceptCount())
}

func TestCommandsReadAloudLastResponse(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	controller := &historyController{fakeController: newFakeController(domain.SurfaceView)}
	controller.last = chat.NewResponse("r1")
	h.resolver.set(domain.TargetFocused, controller)
	commands := NewCommands(CommandDeps{Sessions: h.coordinator, Resolver: h.resolver})

	require.NoError(t, commands.ExecuteCommand(context.Background(), CommandReadAloud))
	output, ok := h.coordinator.CurrentOutput()
	require.True(t, ok)

	require.NoError(t, commands.ExecuteCommand(context.Background(), CommandStopReadAloud))
	waitDone(t, output.Done())
}

func TestCommandsReadAloudWithoutHistoryIsNoop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.resolver.set(domain.TargetFocused, newFakeController(domain.SurfaceView))
	commands := NewCommands(CommandDeps{Sessions: h.coordinator, Resolver: h.resolver})

	require.NoError(t, commands.ExecuteCommand(context.Background(), CommandReadAloud))
	assert.False(t, h.coordinator.HasActiveSession())
}

func TestCommandsRetrySpeechSetup(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{errs: []error{errors.New("missing key")}}
	dialog := &fakeDialog{answers: []bool{false}}
	setup := NewSpeechSetup(probe, dialog, nil, nil)
	commands := NewCommands(CommandDeps{Setup: setup})

	require.NoError(t, commands.ExecuteCommand(context.Background(), CommandRetrySpeechSetup))
	assert.False(t, setup.HasSpeechProvider())

	require.NoError(t, commands.ExecuteCommand(context.Background(), CommandRetrySpeechSetup))
	assert.True(t, setup.HasSpeechProvider())
}

type historyController struct {
	*fakeController
	last ports.ChatResponse
}

func (h *historyController) LastResponse() (ports.ChatResponse, bool) {
	return h.last, h.last != nil
}
