// Package event provides typed emitters whose subscriptions are released
// through explicit Disposables.
package event

import "sync"

// Disposable releases a subscription or other scoped resource.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable.
type DisposeFunc func()

func (f DisposeFunc) Dispose() {
	if f != nil {
		f()
	}
}

// None is a Disposable that does nothing.
var None Disposable = DisposeFunc(nil)

type listener[T any] struct {
	id uint64
	fn func(T)
}

// Emitter delivers values to subscribers in subscription order.
// Listeners run on the goroutine that calls Fire and without any
// emitter lock held, so they may subscribe, dispose or fire again.
type Emitter[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []listener[T]
}

// Subscribe registers fn and returns the handle that removes it.
func (e *Emitter[T]) Subscribe(fn func(T)) Disposable {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listener[T]{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return DisposeFunc(func() {
		once.Do(func() { e.remove(id) })
	})
}

// Fire calls every current listener with value.
func (e *Emitter[T]) Fire(value T) {
	e.mu.Lock()
	snapshot := make([]listener[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, l := range snapshot {
		if e.has(l.id) {
			l.fn(value)
		}
	}
}

// Len reports the number of live subscriptions.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

func (e *Emitter[T]) has(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range e.listeners {
		if l.id == id {
			return true
		}
	}
	return false
}

func (e *Emitter[T]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Signal is an Emitter without a payload.
type Signal struct {
	emitter Emitter[struct{}]
}

func (s *Signal) Subscribe(fn func()) Disposable {
	return s.emitter.Subscribe(func(struct{}) { fn() })
}

func (s *Signal) Fire() {
	s.emitter.Fire(struct{}{})
}

func (s *Signal) Len() int {
	return s.emitter.Len()
}

// Store owns a set of Disposables and releases them together, once.
// Adding to a disposed Store releases the item immediately.
type Store struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

func (s *Store) Add(d Disposable) {
	if d == nil {
		return
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		d.Dispose()
		return
	}
	s.items = append(s.items, d)
	s.mu.Unlock()
}

// AddFunc is shorthand for Add(DisposeFunc(fn)).
func (s *Store) AddFunc(fn func()) {
	s.Add(DisposeFunc(fn))
}

// Dispose releases items in reverse order of addition.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	items := s.items
	s.items = nil
	s.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}

func (s *Store) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
