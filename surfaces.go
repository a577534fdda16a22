package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"voicechat/internal/chat"
	"voicechat/internal/domain"
	"voicechat/internal/event"
	"voicechat/internal/ports"
	"voicechat/internal/surface"
)

const (
	eventWidget = "voicechat:widget"
	eventSubmit = "voicechat:submit"
	eventShow   = "voicechat:show"
)

var errUnknownResponse = errors.New("unknown response")

type emitFunc func(name string, data ...interface{})

// webWorkbench mirrors the two chat widgets rendered by the frontend: the
// main panel and the quick chat overlay. The frontend reports focus,
// typing and streamed response text through the bound App methods below.
type webWorkbench struct {
	emit emitFunc

	panel *webWidget
	quick *webWidget

	mu        sync.Mutex
	focused   *webWidget
	responses map[string]*chat.Response
}

func newWebWorkbench(emit emitFunc) *webWorkbench {
	b := &webWorkbench{emit: emit, responses: make(map[string]*chat.Response)}
	b.panel = &webWidget{bench: b, location: surface.LocationPanel}
	b.quick = &webWidget{bench: b, location: surface.LocationQuick}
	return b
}

func (b *webWorkbench) FocusedWidget() (surface.Widget, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.focused == nil {
		return nil, false
	}
	return b.focused, true
}

func (b *webWorkbench) ShowView(context.Context) (surface.Widget, error) {
	b.show(b.panel)
	return b.panel, nil
}

func (b *webWorkbench) OpenQuickChat(context.Context) error {
	b.show(b.quick)
	return nil
}

// The desktop window has no code editor, so inline chat is never offered.
func (b *webWorkbench) ActiveEditor() (surface.Editor, bool) { return nil, false }

func (b *webWorkbench) widget(location string) (*webWidget, error) {
	switch surface.Location(location) {
	case surface.LocationPanel:
		return b.panel, nil
	case surface.LocationQuick:
		return b.quick, nil
	default:
		return nil, fmt.Errorf("unknown chat location %q", location)
	}
}

func (b *webWorkbench) show(w *webWidget) {
	b.mu.Lock()
	b.focused = w
	b.mu.Unlock()
	b.emit(eventShow, map[string]string{"location": string(w.location)})
}

func (b *webWorkbench) setFocus(w *webWidget, focused bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case focused:
		b.focused = w
	case b.focused == w:
		b.focused = nil
	}
}

func (b *webWorkbench) track(response *chat.Response) {
	b.mu.Lock()
	b.responses[response.ID()] = response
	b.mu.Unlock()
}

func (b *webWorkbench) response(id string, done bool) (*chat.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	response, ok := b.responses[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownResponse, id)
	}
	if done {
		delete(b.responses, id)
	}
	return response, nil
}

// webWidget is the Go side of one frontend chat input.
type webWidget struct {
	bench    *webWorkbench
	location surface.Location

	mu          sync.Mutex
	input       string
	placeholder string
	state       domain.ActivationState

	submitted event.Signal
	hidden    event.Signal
}

func (w *webWidget) Location() surface.Location { return w.location }

func (w *webWidget) FocusInput() {
	w.bench.show(w)
}

func (w *webWidget) Input() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.input
}

func (w *webWidget) SetInput(text string) {
	w.mu.Lock()
	w.input = text
	w.mu.Unlock()
	w.publish()
}

func (w *webWidget) SetPlaceholder(text string) {
	w.mu.Lock()
	w.placeholder = text
	w.mu.Unlock()
	w.publish()
}

func (w *webWidget) ShowVoiceState(state domain.ActivationState) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()
	w.publish()
}

// Submit sends the current input to the frontend chat. The returned
// response fills as the frontend streams the answer back.
func (w *webWidget) Submit(context.Context) (ports.ChatResponse, error) {
	w.mu.Lock()
	text := w.input
	w.input = ""
	w.mu.Unlock()
	if text == "" {
		return nil, nil
	}

	response := chat.NewResponse(uuid.NewString())
	w.bench.track(response)
	w.bench.emit(eventSubmit, map[string]string{
		"location": string(w.location),
		"id":       response.ID(),
		"text":     text,
	})
	w.publish()
	w.submitted.Fire()
	return response, nil
}

func (w *webWidget) OnSubmitted(fn func()) event.Disposable {
	return w.submitted.Subscribe(fn)
}

func (w *webWidget) OnHidden(fn func()) event.Disposable {
	return w.hidden.Subscribe(fn)
}

func (w *webWidget) publish() {
	w.mu.Lock()
	payload := map[string]string{
		"location":    string(w.location),
		"input":       w.input,
		"placeholder": w.placeholder,
		"phase":       string(w.state.Phase),
	}
	w.mu.Unlock()
	w.bench.emit(eventWidget, payload)
}

// keyHold tracks keys held down in the frontend. A command invoked by
// PressCommand can ask for its release channel via EnableHoldMode.
// Press and release arrive as separate calls, so a release may be seen
// before its press; balance counts presses minus releases per key.
type keyHold struct {
	mu      sync.Mutex
	pressed map[string]chan struct{}
	balance map[string]int
}

func newKeyHold() *keyHold {
	return &keyHold{
		pressed: make(map[string]chan struct{}),
		balance: make(map[string]int),
	}
}

func (h *keyHold) EnableHoldMode(commandID string) (<-chan struct{}, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	released, ok := h.pressed[commandID]
	return released, ok
}

// press records a key down and returns a func that forgets it. A key
// that is pressed again before release keeps its first channel. A press
// whose release already arrived gets a closed channel.
func (h *keyHold) press(commandID string) func() {
	h.mu.Lock()
	h.count(commandID, 1)
	released, ok := h.pressed[commandID]
	if !ok {
		released = make(chan struct{})
		if h.balance[commandID] <= 0 {
			close(released)
		}
		h.pressed[commandID] = released
	}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.pressed[commandID] == released {
			delete(h.pressed, commandID)
		}
	}
}

func (h *keyHold) release(commandID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count(commandID, -1)
	released, ok := h.pressed[commandID]
	if !ok {
		return
	}
	select {
	case <-released:
	default:
		close(released)
	}
	delete(h.pressed, commandID)
}

func (h *keyHold) count(commandID string, delta int) {
	if n := h.balance[commandID] + delta; n != 0 {
		h.balance[commandID] = n
	} else {
		delete(h.balance, commandID)
	}
}

// FocusWidget is called by the frontend when a chat input gains or loses
// focus.
func (a *App) FocusWidget(location string, focused bool) error {
	w, err := a.bench.widget(location)
	if err != nil {
		return err
	}
	a.bench.setFocus(w, focused)
	return nil
}

// UpdateWidgetInput mirrors text typed by the user.
func (a *App) UpdateWidgetInput(location string, text string) error {
	w, err := a.bench.widget(location)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.input = text
	w.mu.Unlock()
	return nil
}

// HideWidget is called when a chat input is closed.
func (a *App) HideWidget(location string) error {
	w, err := a.bench.widget(location)
	if err != nil {
		return err
	}
	a.bench.setFocus(w, false)
	w.hidden.Fire()
	return nil
}

// AppendResponse streams answer text into a submitted response.
func (a *App) AppendResponse(id string, text string) error {
	response, err := a.bench.response(id, false)
	if err != nil {
		return err
	}
	response.Append(text)
	return nil
}

// CompleteResponse marks a submitted response finished.
func (a *App) CompleteResponse(id string) error {
	response, err := a.bench.response(id, true)
	if err != nil {
		return err
	}
	response.Complete()
	return nil
}

// SubmitWidget sends typed input through the same controller voice input
// uses, so the answer can be read aloud later.
func (a *App) SubmitWidget(location string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	w, err := a.bench.widget(location)
	if err != nil {
		return err
	}
	a.bench.setFocus(w, true)
	controller, ok := a.services.Resolver.Resolve(a.ctx, domain.TargetFocused)
	if !ok {
		return fmt.Errorf("no chat at %q", location)
	}
	_, err = controller.AcceptInput(a.ctx)
	return err
}
