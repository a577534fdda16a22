package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"voicechat/internal/domain"
	"voicechat/internal/event"
	"voicechat/internal/ports"
)

var ErrSetupDeclined = errors.New("speech setup declined")

const (
	setupFailedMessage = "Voice features are unavailable: %v"
	setupRetryLabel    = "Retry"
)

// SpeechSetup tracks whether speech engines are usable and walks the user
// through fixing them. It implements ports.SpeechAvailability.
type SpeechSetup struct {
	probe  ports.SpeechProbe
	dialog ports.Dialog
	events ports.EventSink
	log    *zap.Logger

	mu        sync.Mutex
	available bool
	lastErr   error
	changed   event.Signal
}

func NewSpeechSetup(probe ports.SpeechProbe, dialog ports.Dialog, events ports.EventSink, logger *zap.Logger) *SpeechSetup {
	if events == nil {
		events = noopEventSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpeechSetup{probe: probe, dialog: dialog, events: events, log: logger.Named("setup")}
}

func (s *SpeechSetup) HasSpeechProvider() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

func (s *SpeechSetup) OnDidChange(fn func()) event.Disposable {
	return s.changed.Subscribe(fn)
}

// LastError returns the reason of the last failed probe.
func (s *SpeechSetup) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Refresh probes once without asking the user anything.
func (s *SpeechSetup) Refresh(ctx context.Context) error {
	var err error
	if s.probe == nil {
		err = ErrSpeechUnavailable
	} else {
		err = s.probe.Probe(ctx)
	}
	s.set(err)
	return err
}

// Ensure probes and, on failure, offers a retry until the probe passes or
// the user declines.
func (s *SpeechSetup) Ensure(ctx context.Context) error {
	for {
		err := s.Refresh(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.log.Warn("speech setup failed", zap.Error(err))
		s.events.SessionError(domain.ErrorCodeSetup, err.Error())
		if s.dialog == nil {
			return fmt.Errorf("speech setup: %w", err)
		}

		retry, dialogErr := s.dialog.Confirm(ctx, fmt.Sprintf(setupFailedMessage, err), setupRetryLabel)
		if dialogErr != nil {
			return fmt.Errorf("speech setup dialog: %w", dialogErr)
		}
		if !retry {
			return ErrSetupDeclined
		}
	}
}

func (s *SpeechSetup) set(err error) {
	s.mu.Lock()
	changed := s.available != (err == nil)
	s.available = err == nil
	s.lastErr = err
	s.mu.Unlock()

	if changed {
		s.changed.Fire()
	}
}
