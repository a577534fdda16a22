package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

const defaultAPIBaseURL = "https://api.deepgram.com/v1"

var ErrMissingAPIKey = errors.New("DEEPGRAM_API_KEY is not configured")

// Config controls Deepgram websocket settings for both listening and
// speaking.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	// Endpointing is the silence in milliseconds after which Deepgram
	// marks speech final. Zero keeps the server default.
	Endpointing int
	// UtteranceEndMillis enables UtteranceEnd messages when interim
	// results are on.
	UtteranceEndMillis int
	SpeakModel         string
}

// Provider implements ports.TranscriptionProvider and ports.SpeechProvider.
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewProvider(cfg Config) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.SpeakModel == "" {
		cfg.SpeakModel = "aura-asteria-en"
	}
	return &Provider{cfg: cfg, dialer: websocket.DefaultDialer}
}

// HasAPIKey reports whether a key is configured.
func (p *Provider) HasAPIKey() bool {
	return strings.TrimSpace(p.cfg.APIKey) != ""
}

func (p *Provider) dial(ctx context.Context, endpoint string) (*websocket.Conn, error) {
	if !p.HasAPIKey() {
		return nil, ErrMissingAPIKey
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, _, err := p.dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}
	return conn, nil
}

// endpointURL turns the REST base URL into a websocket URL for path.
func endpointURL(base string, path string) (*url.URL, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		base = defaultAPIBaseURL
	}

	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	u, err := url.Parse(base + path)
	if err != nil {
		return nil, fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}
	return u, nil
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
