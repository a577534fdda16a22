package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"voicechat/internal/contextkey"
	"voicechat/internal/domain"
	"voicechat/internal/event"
	"voicechat/internal/ports"
)

var (
	ErrNoActiveSession   = errors.New("no active voice session")
	ErrNoController      = errors.New("no surface to bind the voice session to")
	ErrNoResponse        = errors.New("no response to read aloud")
	ErrSessionStopped    = errors.New("voice session stopped before it started")
	ErrSpeechUnavailable = errors.New("speech provider unavailable")
)

const (
	listeningPlaceholder       = "I'm listening"
	defaultPlaceholderInterval = 500 * time.Millisecond
)

// Deps are the collaborators of a Coordinator. Only Capture and Synthesis
// are needed for the matching session kind; everything else has a no-op
// default.
type Deps struct {
	Capture       ports.CaptureEngine
	Synthesis     ports.SynthesisEngine
	Resolver      ports.TargetResolver
	Settings      ports.Configuration
	Accessibility ports.Accessibility
	Events        ports.EventSink
	Keys          *contextkey.Set
	Logger        *zap.Logger
}

// Config tunes coordinator timing.
type Config struct {
	PlaceholderInterval time.Duration
}

// InputOptions adjust one input session.
type InputOptions struct {
	// DisableTimeout suspends auto-accept, e.g. while a key is held.
	DisableTimeout bool
}

// Coordinator owns the single input session and the single output session
// of the process. Starting either kind ends both.
type Coordinator struct {
	capture       ports.CaptureEngine
	synthesis     ports.SynthesisEngine
	resolver      ports.TargetResolver
	settings      ports.Configuration
	accessibility ports.Accessibility
	events        ports.EventSink
	keys          *contextkey.Set
	log           *zap.Logger
	cfg           Config

	mu     sync.Mutex
	lastID uint64
	input  *activeSession
	output *activeSession

	keysMu  sync.Mutex
	changed event.Emitter[domain.SessionChange]
}

func NewCoordinator(deps Deps, cfg Config) *Coordinator {
	if cfg.PlaceholderInterval <= 0 {
		cfg.PlaceholderInterval = defaultPlaceholderInterval
	}
	if deps.Events == nil {
		deps.Events = noopEventSink{}
	}
	if deps.Keys == nil {
		deps.Keys = contextkey.NewGlobal()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Coordinator{
		capture:       deps.Capture,
		synthesis:     deps.Synthesis,
		resolver:      deps.Resolver,
		settings:      deps.Settings,
		accessibility: deps.Accessibility,
		events:        deps.Events,
		keys:          deps.Keys,
		log:           deps.Logger.Named("coordinator"),
		cfg:           cfg,
	}
}

// InputSession is the caller's handle on a running input session.
type InputSession struct {
	c *Coordinator
	s *activeSession
}

func (h *InputSession) ID() uint64 {
	return h.s.id
}

func (h *InputSession) Controller() ports.Controller {
	return h.s.controller
}

// Accept submits the recognized input. It is a no-op once the session
// has ended.
func (h *InputSession) Accept(ctx context.Context) error {
	err := h.c.accept(ctx, h.s.id)
	if errors.Is(err, ErrNoActiveSession) {
		return nil
	}
	return err
}

func (h *InputSession) Stop() {
	h.c.teardown(h.s, domain.SessionReasonStopped)
}

func (h *InputSession) HasRecognizedInput() bool {
	return h.s.recognized()
}

// Done is closed once the session has been torn down.
func (h *InputSession) Done() <-chan struct{} {
	return h.s.done
}

// OutputSession is the caller's handle on a running read-aloud session.
type OutputSession struct {
	c *Coordinator
	s *activeSession
}

func (h *OutputSession) ID() uint64 {
	return h.s.id
}

func (h *OutputSession) Stop() {
	h.c.teardown(h.s, domain.SessionReasonStopped)
}

func (h *OutputSession) Done() <-chan struct{} {
	return h.s.done
}

// StartInput binds a new speech-to-text session to controller.
func (c *Coordinator) StartInput(ctx context.Context, controller ports.Controller, opts InputOptions) (*InputSession, error) {
	if controller == nil {
		return nil, ErrNoController
	}
	if c.capture == nil {
		return nil, ErrSpeechUnavailable
	}

	s := newActiveSession(ctx, domain.SessionKindInput, controller)
	s.timeoutDisabled = opts.DisableTimeout
	c.install(s)

	s.resources.Add(controller.OnInputAccepted(func() {
		c.teardown(s, domain.SessionReasonAccepted)
	}))
	s.resources.Add(controller.OnSurfaceHidden(func() {
		c.teardown(s, domain.SessionReasonStopped)
	}))
	if keys := controller.ContextKeys(); keys != nil {
		s.resources.AddFunc(func() { keys.Reset(contextkey.ScopedVoiceChatState) })
	}

	initial := controller.Input()
	controller.FocusInput()
	c.setInputState(s, domain.StateGettingReady(), domain.SessionReasonGettingReady)

	capture, err := c.capture.CreateCaptureSession(s.ctx, ports.CaptureOptions{
		MultiParticipant: controller.MultiParticipant(),
		Language:         stringSetting(c.settings, domain.SettingSpeechLanguage, ""),
	})
	if err != nil {
		stopped := s.ctx.Err() != nil || errors.Is(err, context.Canceled)
		c.teardown(s, domain.SessionReasonStopped)
		if stopped {
			return nil, ErrSessionStopped
		}
		c.log.Warn("capture session failed", zap.Uint64("session", s.id), zap.Error(err))
		c.events.SessionError(domain.ErrorCodeCapture, err.Error())
		return nil, fmt.Errorf("create capture session: %w", err)
	}
	if s.ctx.Err() != nil {
		c.teardown(s, domain.SessionReasonStopped)
		return nil, ErrSessionStopped
	}

	go c.runInput(s, capture, initial)
	return &InputSession{c: c, s: s}, nil
}

// StartOutput reads response aloud on behalf of controller.
func (c *Coordinator) StartOutput(ctx context.Context, controller ports.Controller, response ports.ChatResponse) (*OutputSession, error) {
	if controller == nil {
		return nil, ErrNoController
	}
	if response == nil {
		return nil, ErrNoResponse
	}
	if c.synthesis == nil {
		return nil, ErrSpeechUnavailable
	}

	s := newActiveSession(ctx, domain.SessionKindOutput, controller)
	c.install(s)

	s.resources.Add(controller.OnSurfaceHidden(func() {
		c.teardown(s, domain.SessionReasonStopped)
	}))
	if keys := controller.ContextKeys(); keys != nil {
		s.resources.AddFunc(func() { keys.Reset(contextkey.ScopedChatSynthesisInProgress) })
	}

	synth, err := c.synthesis.CreateSynthesisSession(s.ctx)
	if err != nil {
		stopped := s.ctx.Err() != nil || errors.Is(err, context.Canceled)
		c.teardown(s, domain.SessionReasonStopped)
		if stopped {
			return nil, ErrSessionStopped
		}
		c.log.Warn("synthesis session failed", zap.Uint64("session", s.id), zap.Error(err))
		c.events.SessionError(domain.ErrorCodeSynthesis, err.Error())
		return nil, fmt.Errorf("create synthesis session: %w", err)
	}
	s.resources.Add(synth.OnStatusChange(func(status domain.SynthesisStatus) {
		c.onSynthesisStatus(s, status)
	}))

	go c.runOutput(s, synth, response)
	return &OutputSession{c: c, s: s}, nil
}

// StopInput ends the current input session, if any.
func (c *Coordinator) StopInput() {
	if s := c.currentInput(); s != nil {
		c.teardown(s, domain.SessionReasonStopped)
	}
}

// StopOutput ends the current read-aloud session, if any.
func (c *Coordinator) StopOutput() {
	if s := c.currentOutput(); s != nil {
		c.teardown(s, domain.SessionReasonStopped)
	}
}

// AcceptInput submits the current input session.
func (c *Coordinator) AcceptInput(ctx context.Context) error {
	return c.accept(ctx, 0)
}

func (c *Coordinator) CurrentInput() (*InputSession, bool) {
	s := c.currentInput()
	if s == nil {
		return nil, false
	}
	return &InputSession{c: c, s: s}, true
}

func (c *Coordinator) CurrentOutput() (*OutputSession, bool) {
	s := c.currentOutput()
	if s == nil {
		return nil, false
	}
	return &OutputSession{c: c, s: s}, true
}

func (c *Coordinator) HasActiveSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input != nil || c.output != nil
}

// Status summarizes both session slots.
func (c *Coordinator) Status() domain.Status {
	in, out := c.currentInput(), c.currentOutput()
	status := domain.Status{Input: domain.StateStopped()}
	if in != nil {
		status.Input = in.getState()
		status.InputSession = in.id
	}
	if out != nil {
		status.OutputSession = out.id
		status.OutputSurface = out.surface
		status.Synthesizing = out.isSynthesizing()
	}
	return status
}

// Keys exposes the process-wide context keys.
func (c *Coordinator) Keys() *contextkey.Set {
	return c.keys
}

// OnDidChange reports every session start and end.
func (c *Coordinator) OnDidChange(fn func(domain.SessionChange)) event.Disposable {
	return c.changed.Subscribe(fn)
}

// Close ends all sessions.
func (c *Coordinator) Close() {
	c.mu.Lock()
	in, out := c.input, c.output
	c.mu.Unlock()
	for _, s := range []*activeSession{in, out} {
		if s != nil {
			c.teardown(s, domain.SessionReasonStopped)
		}
	}
}

func (c *Coordinator) currentInput() *activeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

func (c *Coordinator) currentOutput() *activeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output
}

// install makes s the only session and tears down whatever it replaced.
func (c *Coordinator) install(s *activeSession) {
	c.mu.Lock()
	c.lastID++
	s.id = c.lastID
	previous := []*activeSession{c.input, c.output}
	c.input, c.output = nil, nil
	if s.kind == domain.SessionKindInput {
		c.input = s
	} else {
		c.output = s
	}
	c.mu.Unlock()

	for _, prev := range previous {
		if prev != nil {
			c.teardown(prev, domain.SessionReasonSuperseded)
		}
	}

	c.log.Debug("session started",
		zap.Uint64("session", s.id),
		zap.String("kind", string(s.kind)),
		zap.String("surface", string(s.surface)),
	)
	c.changed.Fire(domain.SessionChange{Kind: s.kind, ID: s.id, Surface: s.surface, Active: true})
}

func (c *Coordinator) teardown(s *activeSession, reason domain.SessionStateReason) {
	s.stopOnce.Do(func() {
		c.mu.Lock()
		if c.input == s {
			c.input = nil
		}
		if c.output == s {
			c.output = nil
		}
		c.mu.Unlock()

		s.markStopped()
		s.cancel()
		s.resources.Dispose()
		if s.kind == domain.SessionKindInput {
			s.controller.ClearPlaceholder()
			s.controller.UpdateState(domain.StateStopped())
		}
		s.setState(domain.StateStopped())
		s.setSynthesizing(false)

		c.publishKeys()
		c.events.SessionStateChanged(s.kind, domain.StateStopped(), reason)
		c.log.Debug("session ended",
			zap.Uint64("session", s.id),
			zap.String("kind", string(s.kind)),
			zap.String("reason", string(reason)),
		)
		close(s.done)
		c.changed.Fire(domain.SessionChange{Kind: s.kind, ID: s.id, Surface: s.surface, Active: false})
	})
}

// publishKeys recomputes the global keys from the current sessions.
func (c *Coordinator) publishKeys() {
	c.keysMu.Lock()
	defer c.keysMu.Unlock()

	in, out := c.currentInput(), c.currentOutput()
	state := domain.StateStopped()
	if in != nil {
		state = in.getState()
	}
	active := state.Phase == domain.PhaseActive

	c.keys.Set(contextkey.VoiceChatGettingReady, state.Phase == domain.PhaseGettingReady)
	c.keys.Set(contextkey.VoiceChatInProgress, active)
	c.keys.Set(contextkey.VoiceChatInViewInProgress, active && state.Surface == domain.SurfaceView)
	c.keys.Set(contextkey.InlineVoiceChatInProgress, active && state.Surface == domain.SurfaceInline)
	c.keys.Set(contextkey.QuickVoiceChatInProgress, active && state.Surface == domain.SurfaceQuick)
	c.keys.Set(contextkey.EditorVoiceChatInProgress, active && state.Surface == domain.SurfaceEditor)
	c.keys.Set(contextkey.TextToSpeechInProgress, out != nil && out.isSynthesizing())
}

func (c *Coordinator) setInputState(s *activeSession, state domain.ActivationState, reason domain.SessionStateReason) {
	applied := s.guard(func() {
		s.setState(state)
		s.controller.UpdateState(state)
		if keys := s.controller.ContextKeys(); keys != nil {
			keys.Set(contextkey.ScopedVoiceChatState, string(state.Phase))
		}
	})
	if !applied {
		return
	}
	c.publishKeys()
	c.events.SessionStateChanged(domain.SessionKindInput, state, reason)
}

func (c *Coordinator) runInput(s *activeSession, capture ports.CaptureSession, initial string) {
	defer c.teardown(s, domain.SessionReasonStopped)

	input := newTranscriptAggregator(initial)
	var timer *scheduler
	if timeout := speechTimeout(c.settings); timeout > 0 {
		id := s.id
		timer = newScheduler(timeout, func() {
			if err := c.accept(s.parent, id); err != nil && !errors.Is(err, ErrNoActiveSession) {
				c.log.Debug("auto-accept failed", zap.Uint64("session", id), zap.Error(err))
			}
		})
		s.resources.AddFunc(timer.Dispose)
	}

	events := capture.Events()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Status {
			case domain.RecognitionStarted:
				c.onCaptureStarted(s)
			case domain.RecognitionRecognizing:
				if ev.Text == "" {
					continue
				}
				s.markRecognized()
				value := input.Preview(ev.Text)
				s.guardInput(func() { s.controller.UpdateInput(value) })
				if timer != nil && !s.timeoutDisabled {
					timer.Cancel()
				}
			case domain.RecognitionRecognized:
				if ev.Text != "" {
					s.markRecognized()
					value := input.Commit(ev.Text)
					s.guardInput(func() { s.controller.UpdateInput(value) })
				} else if !s.recognized() {
					continue
				}
				// An utterance end without text still starts the countdown.
				if timer != nil && !ev.AwaitingMoreInput && !s.timeoutDisabled {
					timer.Schedule()
				}
			case domain.RecognitionStopped:
				return
			}
		}
	}
}

func (c *Coordinator) onCaptureStarted(s *activeSession) {
	if !s.firstCaptureStart() {
		return
	}
	c.setInputState(s, domain.StateActive(s.surface), domain.SessionReasonListening)
	go c.animatePlaceholder(s)
}

func (c *Coordinator) animatePlaceholder(s *activeSession) {
	ticker := time.NewTicker(c.cfg.PlaceholderInterval)
	defer ticker.Stop()

	dots := 0
	for {
		text := listeningPlaceholder + strings.Repeat(".", dots)
		if !s.guard(func() { s.controller.SetPlaceholder(text) }) {
			return
		}
		dots = (dots + 1) % 4

		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// accept submits the input session with the given id, or the current one
// when id is zero.
func (c *Coordinator) accept(ctx context.Context, id uint64) error {
	s := c.currentInput()
	if s == nil || (id != 0 && s.id != id) {
		return ErrNoActiveSession
	}
	if !s.recognized() {
		c.teardown(s, domain.SessionReasonStopped)
		return nil
	}
	if !s.accepting.CompareAndSwap(false, true) {
		return nil
	}
	s.closeInput()

	response, err := s.controller.AcceptInput(ctx)
	c.teardown(s, domain.SessionReasonAccepted)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		c.log.Warn("accept input failed", zap.Uint64("session", s.id), zap.Error(err))
		c.events.SessionError(domain.ErrorCodeAccept, err.Error())
		return fmt.Errorf("accept input: %w", err)
	}
	if response == nil || !c.shouldAutoSynthesize() {
		return nil
	}

	target := s.controller
	if s.surface == domain.SurfaceInline && c.resolver != nil {
		resolved, ok := c.resolver.Resolve(ctx, domain.TargetFocused)
		if !ok {
			return nil
		}
		target = resolved
	}

	if _, err := c.StartOutput(ctx, target, response); err != nil && !errors.Is(err, ErrSessionStopped) {
		return err
	}
	return nil
}

func (c *Coordinator) shouldAutoSynthesize() bool {
	switch autoSynthesizeSetting(c.settings) {
	case domain.AutoSynthesizeOn:
		return true
	case domain.AutoSynthesizeAuto:
		return c.accessibility == nil || !c.accessibility.ScreenReaderOptimized()
	default:
		return false
	}
}

func (c *Coordinator) onSynthesisStatus(s *activeSession, status domain.SynthesisStatus) {
	started := status == domain.SynthesisStarted
	applied := s.guard(func() {
		s.setSynthesizing(started)
		keys := s.controller.ContextKeys()
		if keys == nil {
			return
		}
		if started {
			keys.Set(contextkey.ScopedChatSynthesisInProgress, true)
		} else {
			keys.Reset(contextkey.ScopedChatSynthesisInProgress)
		}
	})
	if !applied {
		return
	}
	c.publishKeys()
	if started {
		c.events.SessionStateChanged(domain.SessionKindOutput, domain.StateActive(s.surface), domain.SessionReasonSpeaking)
	}
}

func (c *Coordinator) runOutput(s *activeSession, synth ports.SynthesisSession, response ports.ChatResponse) {
	defer c.teardown(s, domain.SessionReasonFinishedSpeaking)

	changed := make(chan struct{}, 1)
	s.resources.Add(response.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))

	chunker := newResponseChunker(boolSetting(c.settings, domain.SettingIgnoreCodeBlocks))
	for {
		// Completion is read before the text so a tail appended between
		// the two reads is never skipped.
		complete := response.IsComplete()
		text := response.String()

		before := chunker.offset
		if chunk := chunker.Next(text, complete); chunk != "" {
			if err := synth.Synthesize(s.ctx, chunk); err != nil {
				if s.ctx.Err() == nil && !errors.Is(err, context.Canceled) {
					c.log.Warn("synthesis failed", zap.Uint64("session", s.id), zap.Error(err))
					c.events.SessionError(domain.ErrorCodeSynthesis, err.Error())
				}
				return
			}
		}
		if s.ctx.Err() != nil || complete {
			return
		}
		if chunker.offset != before {
			continue
		}

		select {
		case <-s.ctx.Done():
			return
		case <-changed:
		}
	}
}

type noopEventSink struct{}

func (noopEventSink) SessionStateChanged(domain.SessionKind, domain.ActivationState, domain.SessionStateReason) {}

func (noopEventSink) SessionError(domain.ErrorCode, string) {}
