package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicechat/internal/domain"
	"voicechat/internal/ports"
)

func TestSynthesizerPlaysTextWithStatus(t *testing.T) {
	t.Parallel()

	speak := &fakeSpeakSession{}
	provider := &fakeSpeechProvider{session: speak}
	playback := &fakePlayback{}
	synth := NewSynthesizer(provider, playback, Config{}, nil)

	session, err := synth.CreateSynthesisSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 24000, provider.config.SampleRate)

	var mu sync.Mutex
	var statuses []domain.SynthesisStatus
	session.OnStatusChange(func(s domain.SynthesisStatus) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	})

	require.NoError(t, session.Synthesize(context.Background(), " Hello there. "))

	played, closed, stopped := playback.last().snapshot()
	assert.Equal(t, "pcm:Hello there.", played)
	assert.True(t, closed)
	assert.False(t, stopped)
	assert.Equal(t, ports.PlaybackConfig{SampleRate: 24000}, playback.config)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.SynthesisStatus{domain.SynthesisStarted, domain.SynthesisStopped}, statuses)
}

func TestSynthesizerSkipsBlankText(t *testing.T) {
	t.Parallel()

	playback := &fakePlayback{}
	synth := NewSynthesizer(&fakeSpeechProvider{session: &fakeSpeakSession{}}, playback, Config{}, nil)
	session, err := synth.CreateSynthesisSession(context.Background())
	require.NoError(t, err)

	require.NoError(t, session.Synthesize(context.Background(), "  \n"))
	assert.Empty(t, playback.sessions)
}

func TestSynthesizerCancelStopsPlayback(t *testing.T) {
	t.Parallel()

	playback := &fakePlayback{}
	synth := NewSynthesizer(&fakeSpeechProvider{session: &fakeSpeakSession{block: true}}, playback, Config{}, nil)
	session, err := synth.CreateSynthesisSession(context.Background())
	require.NoError(t, err)

	stoppedStatus := make(chan struct{})
	session.OnStatusChange(func(s domain.SynthesisStatus) {
		if s == domain.SynthesisStopped {
			close(stoppedStatus)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = session.Synthesize(ctx, "long answer")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, closed, stopped := playback.last().snapshot()
	assert.True(t, stopped)
	assert.False(t, closed)
	select {
	case <-stoppedStatus:
	case <-time.After(waitTimeout):
		t.Fatalf("stopped status not fired")
	}
}

func TestSynthesizerReportsProviderError(t *testing.T) {
	t.Parallel()

	playback := &fakePlayback{}
	speak := &fakeSpeakSession{err: errors.New("quota exceeded")}
	session, err := NewSynthesizer(&fakeSpeechProvider{session: speak}, playback, Config{}, nil).CreateSynthesisSession(context.Background())
	require.NoError(t, err)

	require.EqualError(t, session.Synthesize(context.Background(), "hi"), "quota exceeded")
	_, _, stopped := playback.last().snapshot()
	assert.True(t, stopped)
}

func TestSynthesizerClosesProviderWithContext(t *testing.T) {
	t.Parallel()

	speak := &fakeSpeakSession{}
	synth := NewSynthesizer(&fakeSpeechProvider{session: speak}, &fakePlayback{}, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := synth.CreateSynthesisSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, speak.closes())

	cancel()
	require.Eventually(t, func() bool { return speak.closes() == 1 }, waitTimeout, time.Millisecond)
}

func TestSynthesizerStartFailure(t *testing.T) {
	t.Parallel()

	synth := NewSynthesizer(&fakeSpeechProvider{err: errors.New("offline")}, &fakePlayback{}, Config{}, nil)
	_, err := synth.CreateSynthesisSession(context.Background())
	require.ErrorContains(t, err, "offline")
}
