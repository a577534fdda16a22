package surface

import (
	"context"
	"sync"

	"voicechat/internal/contextkey"
	"voicechat/internal/domain"
	"voicechat/internal/event"
	"voicechat/internal/ports"
)

// Chat drives one Widget on behalf of voice sessions. It remembers the
// last response so it can be read aloud later.
type Chat struct {
	kind   domain.SurfaceKind
	widget Widget
	keys   *contextkey.Set

	mu    sync.Mutex
	last  ports.ChatResponse
	state domain.ActivationState
}

func NewChat(kind domain.SurfaceKind, widget Widget) *Chat {
	return &Chat{
		kind:   kind,
		widget: widget,
		keys: contextkey.NewSet().
			Define(contextkey.ScopedVoiceChatState, string(domain.PhaseStopped)).
			Define(contextkey.ScopedChatSynthesisInProgress, false),
		state: domain.StateStopped(),
	}
}

func (c *Chat) Kind() domain.SurfaceKind { return c.kind }

// MultiParticipant is true for every surface except inline chat, which
// talks to a single editor agent.
func (c *Chat) MultiParticipant() bool { return c.kind != domain.SurfaceInline }

func (c *Chat) ContextKeys() *contextkey.Set { return c.keys }

func (c *Chat) Widget() Widget { return c.widget }

func (c *Chat) FocusInput() { c.widget.FocusInput() }

func (c *Chat) AcceptInput(ctx context.Context) (ports.ChatResponse, error) {
	response, err := c.widget.Submit(ctx)
	if err != nil {
		return nil, err
	}
	if response != nil {
		c.mu.Lock()
		c.last = response
		c.mu.Unlock()
	}
	return response, nil
}

func (c *Chat) UpdateInput(text string) { c.widget.SetInput(text) }

func (c *Chat) Input() string { return c.widget.Input() }

func (c *Chat) SetPlaceholder(text string) { c.widget.SetPlaceholder(text) }

func (c *Chat) ClearPlaceholder() { c.widget.SetPlaceholder("") }

func (c *Chat) UpdateState(state domain.ActivationState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	if view, ok := c.widget.(StateView); ok {
		view.ShowVoiceState(state)
	}
}

// State is the last state pushed by a session.
func (c *Chat) State() domain.ActivationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Chat) OnInputAccepted(fn func()) event.Disposable { return c.widget.OnSubmitted(fn) }

func (c *Chat) OnSurfaceHidden(fn func()) event.Disposable { return c.widget.OnHidden(fn) }

func (c *Chat) LastResponse() (ports.ChatResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.last != nil
}
