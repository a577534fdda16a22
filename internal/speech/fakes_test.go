package speech

import (
	"context"
	"errors"
	"io"
	"sync"

	"voicechat/internal/domain"
	"voicechat/internal/event"
	"voicechat/internal/ports"
)

type fakeAudioCapture struct {
	sessions []*fakeAudioSession
	err      error
	calls    int
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no audio session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

// fakeAudioSession yields its chunks, then blocks like a live microphone
// until Stop.
type fakeAudioSession struct {
	mu        sync.Mutex
	chunks    [][]byte
	index     int
	stopCalls int
	stopErr   error
	stopped   chan struct{}
	stopOnce  sync.Once
}

func newFakeAudioSession(chunks ...[]byte) *fakeAudioSession {
	return &fakeAudioSession{chunks: chunks, stopped: make(chan struct{})}
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.index < len(f.chunks) {
		n := copy(p, f.chunks[f.index])
		f.index++
		f.mu.Unlock()
		return n, nil
	}
	f.mu.Unlock()
	<-f.stopped
	return 0, io.EOF
}

func (f *fakeAudioSession) Close() error { return f.Stop() }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.stopOnce.Do(func() { close(f.stopped) })
	return f.stopErr
}

func (f *fakeAudioSession) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakeProvider struct {
	mu       sync.Mutex
	sessions []*fakeStreamingSession
	err      error
	calls    int
	configs  []ports.StreamingConfig
}

func (f *fakeProvider) StartStreaming(_ context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, cfg)
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no stream session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

func (f *fakeProvider) lastConfig() ports.StreamingConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configs[len(f.configs)-1]
}

type fakeStreamingSession struct {
	mu         sync.Mutex
	events     chan domain.TranscriptEvent
	sent       [][]byte
	sendErr    error
	waitErr    error
	closeSend  int
	closeCalls int
	closed     bool
}

func newFakeStreamingSession() *fakeStreamingSession {
	return &fakeStreamingSession{events: make(chan domain.TranscriptEvent, 16)}
}

func (f *fakeStreamingSession) SendAudio(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), chunk...))
	return nil
}

func (f *fakeStreamingSession) CloseSend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeSend++
	f.finishLocked()
	return nil
}

func (f *fakeStreamingSession) Events() <-chan domain.TranscriptEvent { return f.events }

func (f *fakeStreamingSession) Wait() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waitErr
}

func (f *fakeStreamingSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	f.finishLocked()
	return nil
}

// end simulates the provider closing the stream.
func (f *fakeStreamingSession) end(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waitErr = err
	f.finishLocked()
}

func (f *fakeStreamingSession) finishLocked() {
	if !f.closed {
		close(f.events)
		f.closed = true
	}
}

func (f *fakeStreamingSession) counts() (closeSend int, closeCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeSend, f.closeCalls
}

func (f *fakeStreamingSession) sentAudio() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

type fakeRules struct {
	transform func(string) string
	err       error
}

func (f *fakeRules) Apply(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.transform != nil {
		return f.transform(text), nil
	}
	return text, nil
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu     sync.Mutex
	errors []errEvent
}

func (f *fakeEventSink) SessionStateChanged(domain.SessionKind, domain.ActivationState, domain.SessionStateReason) {}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]errEvent(nil), f.errors...)
}

type fakeSpeechProvider struct {
	session *fakeSpeakSession
	err     error
	config  ports.SpeakConfig
}

func (f *fakeSpeechProvider) StartSpeaking(_ context.Context, cfg ports.SpeakConfig) (ports.SpeakSession, error) {
	f.config = cfg
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeSpeakSession struct {
	mu         sync.Mutex
	texts      []string
	err        error
	block      bool
	closeCalls int
}

func (f *fakeSpeakSession) Speak(ctx context.Context, text string, w io.Writer) error {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	block, err := f.block, f.err
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	_, werr := w.Write([]byte("pcm:" + text))
	return werr
}

func (f *fakeSpeakSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func (f *fakeSpeakSession) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

type fakePlayback struct {
	mu       sync.Mutex
	sessions []*fakePlaybackSession
	err      error
	config   ports.PlaybackConfig
}

func (f *fakePlayback) Start(_ context.Context, cfg ports.PlaybackConfig) (ports.PlaybackSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config = cfg
	if f.err != nil {
		return nil, f.err
	}
	session := &fakePlaybackSession{}
	f.sessions = append(f.sessions, session)
	return session, nil
}

func (f *fakePlayback) last() *fakePlaybackSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[len(f.sessions)-1]
}

type fakePlaybackSession struct {
	mu      sync.Mutex
	played  []byte
	closed  bool
	stopped bool
}

func (f *fakePlaybackSession) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, p...)
	return len(p), nil
}

func (f *fakePlaybackSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePlaybackSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakePlaybackSession) snapshot() (played string, closed bool, stopped bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.played), f.closed, f.stopped
}

type fakeCaptureEngine struct {
	mu      sync.Mutex
	err     error
	events  chan domain.RecognitionEvent
	options []ports.CaptureOptions
}

func newFakeCaptureEngine() *fakeCaptureEngine {
	return &fakeCaptureEngine{events: make(chan domain.RecognitionEvent, 8)}
}

func (f *fakeCaptureEngine) CreateCaptureSession(_ context.Context, opts ports.CaptureOptions) (ports.CaptureSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.options = append(f.options, opts)
	if f.err != nil {
		return nil, f.err
	}
	return fakeCaptureSession{events: f.events}, nil
}

func (f *fakeCaptureEngine) lastOptions() ports.CaptureOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.options[len(f.options)-1]
}

type fakeCaptureSession struct {
	events chan domain.RecognitionEvent
}

func (f fakeCaptureSession) Events() <-chan domain.RecognitionEvent { return f.events }

type fakeSettings map[string]any

func (f fakeSettings) GetValue(id string) any { return f[id] }

func (f fakeSettings) OnDidChange(func([]string)) event.Disposable { return event.None }
