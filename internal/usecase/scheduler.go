package usecase

import (
	"sync"
	"time"
)

// scheduler runs fn once after delay; Schedule restarts the countdown.
type scheduler struct {
	delay time.Duration
	fn    func()

	mu       sync.Mutex
	timer    *time.Timer
	disposed bool
}

func newScheduler(delay time.Duration, fn func()) *scheduler {
	return &scheduler{delay: delay, fn: fn}
}

func (s *scheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fn)
}

func (s *scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *scheduler) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
