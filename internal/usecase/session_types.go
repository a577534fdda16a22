package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"voicechat/internal/domain"
	"voicechat/internal/event"
	"voicechat/internal/ports"
)

type activeSession struct {
	id         uint64
	kind       domain.SessionKind
	surface    domain.SurfaceKind
	controller ports.Controller

	// parent outlives the session and is used for work the session hands
	// off, such as accepting input from the timeout timer.
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	resources event.Store

	uiMu        sync.Mutex
	stopped     bool
	inputClosed bool

	stateMu            sync.Mutex
	state              domain.ActivationState
	hasRecognizedInput bool
	synthesizing       bool
	captureStarted     bool

	// timeoutDisabled is fixed when the session starts.
	timeoutDisabled bool
	accepting       atomic.Bool

	stopOnce sync.Once
	done     chan struct{}
}

func newActiveSession(parent context.Context, kind domain.SessionKind, controller ports.Controller) *activeSession {
	ctx, cancel := context.WithCancel(parent)
	return &activeSession{
		kind:       kind,
		surface:    controller.Kind(),
		controller: controller,
		parent:     parent,
		ctx:        ctx,
		cancel:     cancel,
		state:      domain.StateStopped(),
		done:       make(chan struct{}),
	}
}

// guard runs fn unless the session has been torn down. Teardown waits for
// a running fn, so nothing reaches the controller after it was cleared.
func (s *activeSession) guard(fn func()) bool {
	s.uiMu.Lock()
	defer s.uiMu.Unlock()
	if s.stopped {
		return false
	}
	fn()
	return true
}

// guardInput is guard for input text writes, which also stop once the
// input is being submitted.
func (s *activeSession) guardInput(fn func()) bool {
	s.uiMu.Lock()
	defer s.uiMu.Unlock()
	if s.stopped || s.inputClosed {
		return false
	}
	fn()
	return true
}

// closeInput waits for a running input write and blocks later ones.
func (s *activeSession) closeInput() {
	s.uiMu.Lock()
	s.inputClosed = true
	s.uiMu.Unlock()
}

func (s *activeSession) markStopped() {
	s.uiMu.Lock()
	s.stopped = true
	s.uiMu.Unlock()
}

func (s *activeSession) setState(state domain.ActivationState) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
}

func (s *activeSession) getState() domain.ActivationState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *activeSession) markRecognized() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.hasRecognizedInput = true
}

func (s *activeSession) recognized() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.hasRecognizedInput
}

func (s *activeSession) setSynthesizing(v bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.synthesizing = v
}

func (s *activeSession) isSynthesizing() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.synthesizing
}

// firstCaptureStart reports true only for the first Started event.
func (s *activeSession) firstCaptureStart() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.captureStarted {
		return false
	}
	s.captureStarted = true
	return true
}
