package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterDeliversInSubscriptionOrder(t *testing.T) {
	t.Parallel()

	var e Emitter[int]
	var got []string
	e.Subscribe(func(v int) { got = append(got, "a") })
	e.Subscribe(func(v int) { got = append(got, "b") })

	e.Fire(1)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestEmitterDisposeStopsDelivery(t *testing.T) {
	t.Parallel()

	var e Emitter[string]
	calls := 0
	sub := e.Subscribe(func(string) { calls++ })

	e.Fire("x")
	sub.Dispose()
	sub.Dispose()
	e.Fire("y")

	assert.Equal(t, 1, calls)
	assert.Zero(t, e.Len())
}

func TestEmitterListenerDisposedDuringFireIsSkipped(t *testing.T) {
	t.Parallel()

	var e Emitter[int]
	var second Disposable
	secondCalls := 0
	e.Subscribe(func(int) { second.Dispose() })
	second = e.Subscribe(func(int) { secondCalls++ })

	e.Fire(1)
	assert.Zero(t, secondCalls)
}

func TestStoreDisposesInReverseOrderOnce(t *testing.T) {
	t.Parallel()

	var order []int
	var s Store
	s.AddFunc(func() { order = append(order, 1) })
	s.AddFunc(func() { order = append(order, 2) })

	s.Dispose()
	s.Dispose()

	require.True(t, s.IsDisposed())
	assert.Equal(t, []int{2, 1}, order)
}

func TestStoreAddAfterDisposeReleasesImmediately(t *testing.T) {
	t.Parallel()

	var s Store
	s.Dispose()

	released := false
	s.AddFunc(func() { released = true })
	assert.True(t, released)
}

func TestSignal(t *testing.T) {
	t.Parallel()

	var s Signal
	calls := 0
	sub := s.Subscribe(func() { calls++ })
	s.Fire()
	sub.Dispose()
	s.Fire()
	assert.Equal(t, 1, calls)
}
