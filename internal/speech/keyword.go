package speech

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"voicechat/internal/domain"
	"voicechat/internal/ports"
)

var ErrEmptyWakePhrase = errors.New("wake phrase is empty")

// KeywordSpotter listens on a capture stream and reports when the
// configured wake phrase is spoken.
type KeywordSpotter struct {
	capture  ports.CaptureEngine
	settings ports.Configuration
	log      *zap.Logger
}

func NewKeywordSpotter(capture ports.CaptureEngine, settings ports.Configuration, logger *zap.Logger) *KeywordSpotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeywordSpotter{capture: capture, settings: settings, log: logger.Named("keyword")}
}

// RecognizeKeyword blocks until the wake phrase is heard, the stream ends
// or ctx is cancelled. Only a heard phrase yields KeywordRecognized.
func (k *KeywordSpotter) RecognizeKeyword(ctx context.Context) (domain.KeywordResult, error) {
	phrase := normalizePhrase(k.setting(domain.SettingWakePhrase))
	if phrase == "" {
		return domain.KeywordStopped, ErrEmptyWakePhrase
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session, err := k.capture.CreateCaptureSession(ctx, ports.CaptureOptions{
		Language: k.setting(domain.SettingSpeechLanguage),
		Keywords: strings.Fields(phrase),
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.KeywordStopped, nil
		}
		return domain.KeywordStopped, err
	}

	events := session.Events()
	for {
		select {
		case <-ctx.Done():
			return domain.KeywordStopped, nil
		case ev, ok := <-events:
			if !ok {
				return domain.KeywordStopped, nil
			}
			if ev.Status != domain.RecognitionRecognizing && ev.Status != domain.RecognitionRecognized {
				continue
			}
			if containsPhrase(normalizePhrase(ev.Text), phrase) {
				k.log.Debug("wake phrase heard", zap.String("text", ev.Text))
				return domain.KeywordRecognized, nil
			}
		}
	}
}

func (k *KeywordSpotter) setting(id string) string {
	if k.settings == nil {
		return ""
	}
	value, _ := k.settings.GetValue(id).(string)
	return value
}

// normalizePhrase lowercases text, drops punctuation and collapses spaces.
func normalizePhrase(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r), r == '-':
			return ' '
		}
		return -1
	}, text)
	return strings.Join(strings.Fields(cleaned), " ")
}

// containsPhrase matches phrase on word boundaries.
func containsPhrase(text string, phrase string) bool {
	if text == "" || phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}
