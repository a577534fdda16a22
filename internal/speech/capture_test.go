package speech

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicechat/internal/domain"
	"voicechat/internal/ports"
)

const waitTimeout = 2 * time.Second

func TestCaptureEngineMapsTranscripts(t *testing.T) {
	t.Parallel()

	audio := newFakeAudioSession([]byte("pcm"))
	stream := newFakeStreamingSession()
	provider := &fakeProvider{sessions: []*fakeStreamingSession{stream}}
	rules := &fakeRules{transform: func(s string) string { return strings.ReplaceAll(s, "deep gram", "Deepgram") }}
	engine := NewCaptureEngine(&fakeAudioCapture{sessions: []*fakeAudioSession{audio}}, provider, rules, &fakeEventSink{}, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := engine.CreateCaptureSession(ctx, ports.CaptureOptions{
		MultiParticipant: true,
		Language:         "de",
		Keywords:         []string{"hey"},
	})
	require.NoError(t, err)

	cfg := provider.lastConfig()
	assert.True(t, cfg.InterimResults)
	assert.True(t, cfg.Diarize)
	assert.Equal(t, "de", cfg.Language)
	assert.Equal(t, []string{"hey"}, cfg.Keywords)

	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: "deep"}
	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindPartial}
	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "deep gram rocks"}
	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindFinal}
	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, IsSpeechFinal: true}

	want := []domain.RecognitionEvent{
		{Status: domain.RecognitionStarted},
		{Status: domain.RecognitionRecognizing, Text: "deep"},
		{Status: domain.RecognitionRecognized, Text: "Deepgram rocks", AwaitingMoreInput: true},
		{Status: domain.RecognitionRecognized},
	}
	for _, expected := range want {
		select {
		case got := <-session.Events():
			assert.Equal(t, expected, got)
		case <-time.After(waitTimeout):
			t.Fatalf("timed out waiting for %+v", expected)
		}
	}

	cancel()
	for range session.Events() {
	}
	assert.Equal(t, 1, audio.stops())
	_, closeCalls := stream.counts()
	assert.Equal(t, 1, closeCalls)
	assert.Equal(t, [][]byte{[]byte("pcm")}, stream.sentAudio())
}

func TestCaptureEngineRulesFailureKeepsRawText(t *testing.T) {
	t.Parallel()

	stream := newFakeStreamingSession()
	engine := NewCaptureEngine(
		&fakeAudioCapture{sessions: []*fakeAudioSession{newFakeAudioSession()}},
		&fakeProvider{sessions: []*fakeStreamingSession{stream}},
		&fakeRules{err: errors.New("bad rule")},
		nil,
		Config{},
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session, err := engine.CreateCaptureSession(ctx, ports.CaptureOptions{})
	require.NoError(t, err)

	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "raw", IsSpeechFinal: true}
	assert.Equal(t, domain.RecognitionStarted, (<-session.Events()).Status)
	assert.Equal(t, domain.RecognitionEvent{Status: domain.RecognitionRecognized, Text: "raw"}, <-session.Events())
}

func TestCaptureEngineStreamEndEmitsStopped(t *testing.T) {
	t.Parallel()

	audio := newFakeAudioSession()
	stream := newFakeStreamingSession()
	events := &fakeEventSink{}
	engine := NewCaptureEngine(
		&fakeAudioCapture{sessions: []*fakeAudioSession{audio}},
		&fakeProvider{sessions: []*fakeStreamingSession{stream}},
		nil,
		events,
		Config{},
		nil,
	)

	session, err := engine.CreateCaptureSession(context.Background(), ports.CaptureOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.RecognitionStarted, (<-session.Events()).Status)

	stream.end(errors.New("socket dropped"))

	var statuses []domain.RecognitionStatus
	for ev := range session.Events() {
		statuses = append(statuses, ev.Status)
	}
	assert.Equal(t, []domain.RecognitionStatus{domain.RecognitionStopped}, statuses)
	assert.Equal(t, 1, audio.stops())

	closeSend, _ := stream.counts()
	assert.Equal(t, 1, closeSend)

	errs := events.snapshotErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, domain.ErrorCodeCapture, errs[0].code)
	assert.Equal(t, "socket dropped", errs[0].detail)
}

func TestCaptureEngineAudioFailureClosesStream(t *testing.T) {
	t.Parallel()

	stream := newFakeStreamingSession()
	engine := NewCaptureEngine(
		&fakeAudioCapture{err: errors.New("no microphone")},
		&fakeProvider{sessions: []*fakeStreamingSession{stream}},
		nil,
		nil,
		Config{},
		nil,
	)

	_, err := engine.CreateCaptureSession(context.Background(), ports.CaptureOptions{})
	require.ErrorContains(t, err, "no microphone")

	_, closeCalls := stream.counts()
	assert.Equal(t, 1, closeCalls)
}

func TestCaptureEngineProviderFailure(t *testing.T) {
	t.Parallel()

	capture := &fakeAudioCapture{sessions: []*fakeAudioSession{newFakeAudioSession()}}
	engine := NewCaptureEngine(capture, &fakeProvider{err: errors.New("unauthorized")}, nil, nil, Config{}, nil)

	_, err := engine.CreateCaptureSession(context.Background(), ports.CaptureOptions{})
	require.ErrorContains(t, err, "unauthorized")
	assert.Equal(t, 0, capture.calls, "microphone must not open without a stream")
}
