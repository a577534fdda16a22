package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"voicechat/internal/chat"
	"voicechat/internal/domain"
	"voicechat/internal/event"
	"voicechat/internal/ports"
	"voicechat/internal/surface"
)

var errNoQuickChat = errors.New("quick chat is not available in the terminal")

// termWidget renders the live transcript on one status line and prints
// accepted input to out.
type termWidget struct {
	out    io.Writer
	status io.Writer
	// echo answers every submit with the submitted text so it can be read
	// aloud.
	echo bool

	mu          sync.Mutex
	input       string
	placeholder string
	accepted    []string

	submitted event.Signal
	hidden    event.Signal
}

func newTermWidget(out io.Writer, status io.Writer, echo bool) *termWidget {
	return &termWidget{out: out, status: status, echo: echo}
}

func (w *termWidget) Location() surface.Location { return surface.LocationPanel }

func (w *termWidget) FocusInput() {}

func (w *termWidget) Input() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.input
}

func (w *termWidget) SetInput(text string) {
	w.mu.Lock()
	w.input = text
	w.mu.Unlock()
	w.render()
}

func (w *termWidget) SetPlaceholder(text string) {
	w.mu.Lock()
	w.placeholder = text
	w.mu.Unlock()
	w.render()
}

func (w *termWidget) Submit(context.Context) (ports.ChatResponse, error) {
	w.mu.Lock()
	text := strings.TrimSpace(w.input)
	w.input = ""
	if text != "" {
		w.accepted = append(w.accepted, text)
	}
	w.mu.Unlock()

	fmt.Fprint(w.status, "\r\033[K")
	if text == "" {
		return nil, nil
	}
	fmt.Fprintln(w.out, text)
	w.submitted.Fire()

	if !w.echo {
		return nil, nil
	}
	return chat.NewCompleteResponse(uuid.NewString(), text), nil
}

func (w *termWidget) OnSubmitted(fn func()) event.Disposable {
	return w.submitted.Subscribe(fn)
}

func (w *termWidget) OnHidden(fn func()) event.Disposable {
	return w.hidden.Subscribe(fn)
}

// Accepted lists every submitted input in order.
func (w *termWidget) Accepted() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.accepted...)
}

func (w *termWidget) render() {
	w.mu.Lock()
	line := w.input
	if line == "" {
		line = w.placeholder
	}
	w.mu.Unlock()
	fmt.Fprintf(w.status, "\r\033[K%s", line)
}

// termWorkbench exposes the single terminal widget, which always has focus.
type termWorkbench struct {
	widget *termWidget
}

func (b termWorkbench) FocusedWidget() (surface.Widget, bool) { return b.widget, true }

func (b termWorkbench) ShowView(context.Context) (surface.Widget, error) { return b.widget, nil }

func (b termWorkbench) OpenQuickChat(context.Context) error { return errNoQuickChat }

func (b termWorkbench) ActiveEditor() (surface.Editor, bool) { return nil, false }

// termEvents prints session changes and errors to w.
type termEvents struct {
	w       io.Writer
	verbose bool
}

func (e termEvents) SessionStateChanged(kind domain.SessionKind, state domain.ActivationState, reason domain.SessionStateReason) {
	if !e.verbose {
		return
	}
	fmt.Fprintf(e.w, "\r\033[K[%s] %s (%s)\n", kind, state.Phase, reason)
}

func (e termEvents) SessionError(code domain.ErrorCode, detail string) {
	fmt.Fprintf(e.w, "\r\033[Kerror [%s]: %s\n", code, detail)
}

// Update prints the wake phrase indicator.
func (e termEvents) Update(text string, tooltip string) {
	if text == "" {
		return
	}
	fmt.Fprintf(e.w, "\r\033[K%s %s\n", text, tooltip)
}

// termDialog asks yes/no questions on the terminal.
type termDialog struct {
	in  *bufio.Reader
	out io.Writer
}

func (d termDialog) Confirm(ctx context.Context, message string, primary string) (bool, error) {
	fmt.Fprintf(d.out, "%s\n%s? [y/N] ", message, primary)

	answer := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		line, err := d.in.ReadString('\n')
		if err != nil && line == "" {
			errs <- err
			return
		}
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errs:
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
