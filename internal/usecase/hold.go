package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"voicechat/internal/domain"
	"voicechat/internal/ports"
)

// DefaultHoldThreshold separates a tap from a hold.
const DefaultHoldThreshold = 500 * time.Millisecond

// HoldToTalk starts voice input while a key is held and submits it on
// release. A short tap only opens the target surface.
type HoldToTalk struct {
	sessions  *Coordinator
	resolver  ports.TargetResolver
	hold      ports.KeybindingHold
	threshold time.Duration
	log       *zap.Logger
}

func NewHoldToTalk(sessions *Coordinator, resolver ports.TargetResolver, hold ports.KeybindingHold, threshold time.Duration, logger *zap.Logger) *HoldToTalk {
	if threshold <= 0 {
		threshold = DefaultHoldThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HoldToTalk{
		sessions:  sessions,
		resolver:  resolver,
		hold:      hold,
		threshold: threshold,
		log:       logger.Named("hold"),
	}
}

// Run handles one invocation of commandID. It returns once the key is
// released and any session it started has been accepted.
func (h *HoldToTalk) Run(ctx context.Context, commandID string, target domain.Target) error {
	var (
		released <-chan struct{}
		held     bool
	)
	if h.hold != nil {
		released, held = h.hold.EnableHoldMode(commandID)
	}
	if !held {
		h.focus(ctx, target)
		return nil
	}

	var session *InputSession
	fired := make(chan struct{})
	timer := time.AfterFunc(h.threshold, func() {
		defer close(fired)
		controller, ok := h.resolver.Resolve(ctx, target)
		if !ok {
			return
		}
		started, err := h.sessions.StartInput(ctx, controller, InputOptions{DisableTimeout: true})
		if err != nil {
			if !errors.Is(err, ErrSessionStopped) {
				h.log.Debug("hold session failed to start", zap.Error(err))
			}
			return
		}
		session = started
	})

	h.focus(ctx, target)

	select {
	case <-released:
	case <-ctx.Done():
	}

	if timer.Stop() {
		return nil
	}
	<-fired
	if session == nil {
		return nil
	}
	if ctx.Err() != nil {
		session.Stop()
		return nil
	}
	return session.Accept(ctx)
}

func (h *HoldToTalk) focus(ctx context.Context, target domain.Target) {
	controller, ok := h.resolver.Resolve(ctx, target)
	if !ok {
		return
	}
	controller.FocusInput()
}
