// Package surface adapts host chat widgets to ports.Controller and picks
// the widget a voice command should drive.
package surface

import (
	"context"

	"voicechat/internal/domain"
	"voicechat/internal/event"
	"voicechat/internal/ports"
)

// Location is the layout region a chat widget lives in.
type Location string

const (
	LocationPanel  Location = "panel"
	LocationQuick  Location = "quick"
	LocationEditor Location = "editor"
	LocationInline Location = "inline"
)

// Widget is a host chat input.
type Widget interface {
	Location() Location
	FocusInput()
	Input() string
	SetInput(text string)
	// SetPlaceholder shows text in the empty input; "" restores the
	// widget's own placeholder.
	SetPlaceholder(text string)
	Submit(ctx context.Context) (ports.ChatResponse, error)
	OnSubmitted(fn func()) event.Disposable
	OnHidden(fn func()) event.Disposable
}

// StateView is implemented by widgets that render the voice state.
type StateView interface {
	ShowVoiceState(state domain.ActivationState)
}

// Editor is the active text editor.
type Editor interface {
	InlineChat() (Widget, bool)
	StartInlineChat(ctx context.Context) (Widget, error)
	InlineChatFocused() bool
}

// Workbench exposes the host layout to the resolver.
type Workbench interface {
	// FocusedWidget returns the last focused chat widget if its input
	// still has focus.
	FocusedWidget() (Widget, bool)
	ShowView(ctx context.Context) (Widget, error)
	OpenQuickChat(ctx context.Context) error
	ActiveEditor() (Editor, bool)
}
