package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voicechat/internal/ports"
)

var ErrSpeakSessionClosed = errors.New("speak session closed")

// StartSpeaking opens an Aura text-to-speech websocket.
func (p *Provider) StartSpeaking(ctx context.Context, cfg ports.SpeakConfig) (ports.SpeakSession, error) {
	wsURL, err := buildSpeakURL(p.cfg, cfg)
	if err != nil {
		return nil, err
	}

	conn, err := p.dial(ctx, wsURL)
	if err != nil {
		return nil, err
	}
	return &speakSession{conn: conn}, nil
}

type speakSession struct {
	conn *websocket.Conn

	// mu serializes utterances; each owns the connection until Flushed.
	mu     sync.Mutex
	closed bool

	closeOnce sync.Once
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type speakResponse struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Message     string `json:"err_msg"`
}

// Speak synthesizes text and copies the audio to w as it arrives. It
// returns once the server has flushed the utterance.
func (s *speakSession) Speak(ctx context.Context, text string, w io.Writer) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSpeakSessionClosed
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := s.conn.WriteJSON(speakMessage{Type: "Speak", Text: text}); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	if err := s.conn.WriteJSON(speakMessage{Type: "Flush"}); err != nil {
		return fmt.Errorf("failed to flush text: %w", err)
	}

	for {
		kind, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.closed = true
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read speech audio: %w", err)
		}

		if kind == websocket.BinaryMessage {
			if _, err := w.Write(payload); err != nil {
				return fmt.Errorf("failed to play speech audio: %w", err)
			}
			continue
		}

		var response speakResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}
		switch response.Type {
		case "Flushed":
			return nil
		case "Error":
			message := strings.TrimSpace(response.Description)
			if message == "" {
				message = strings.TrimSpace(response.Message)
			}
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			return errors.New(message)
		}
	}
}

func (s *speakSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = s.conn.Close()
	})
	return err
}

func buildSpeakURL(providerCfg Config, speakCfg ports.SpeakConfig) (string, error) {
	speakURL, err := endpointURL(providerCfg.APIBaseURL, "/speak")
	if err != nil {
		return "", err
	}

	if speakCfg.Encoding == "" {
		speakCfg.Encoding = "linear16"
	}
	if speakCfg.SampleRate <= 0 {
		speakCfg.SampleRate = 24000
	}

	query := speakURL.Query()
	query.Set("model", providerCfg.SpeakModel)
	query.Set("encoding", speakCfg.Encoding)
	query.Set("sample_rate", strconv.Itoa(speakCfg.SampleRate))
	speakURL.RawQuery = query.Encode()
	return speakURL.String(), nil
}
