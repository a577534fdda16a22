package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voicechat/internal/ports"
)

func TestBuildSpeakURLDefaults(t *testing.T) {
	t.Parallel()

	url, err := buildSpeakURL(Config{APIBaseURL: "https://api.deepgram.com/v1", SpeakModel: "aura-asteria-en"}, ports.SpeakConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"wss://api.deepgram.com/v1/speak", "model=aura-asteria-en", "encoding=linear16", "sample_rate=24000"} {
		if !strings.Contains(url, want) {
			t.Fatalf("expected %q in url: %s", want, url)
		}
	}
}

func TestProviderStartSpeakingRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(Config{}).StartSpeaking(context.Background(), ports.SpeakConfig{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestSpeakSessionWritesAudioUntilFlushed(t *testing.T) {
	t.Parallel()

	messages := make(chan speakMessage, 4)
	server := newWebsocketServer(t, func(conn *websocket.Conn, _ *http.Request) {
		for {
			var msg speakMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			messages <- msg
			if msg.Type == "Flush" {
				_ = conn.WriteMessage(websocket.BinaryMessage, []byte("pcm-1"))
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata"}`))
				_ = conn.WriteMessage(websocket.BinaryMessage, []byte("pcm-2"))
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Flushed","sequence_id":0}`))
			}
		}
	})

	p := NewProvider(Config{APIKey: "secret", APIBaseURL: server.URL})
	session, err := p.StartSpeaking(context.Background(), ports.SpeakConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer session.Close()

	var out bytes.Buffer
	if err := session.Speak(context.Background(), " Hello there. ", &out); err != nil {
		t.Fatalf("speak failed: %v", err)
	}
	if out.String() != "pcm-1pcm-2" {
		t.Fatalf("unexpected audio: %q", out.String())
	}

	speak := <-messages
	flush := <-messages
	if speak.Type != "Speak" || speak.Text != "Hello there." {
		t.Fatalf("unexpected speak message: %+v", speak)
	}
	if flush.Type != "Flush" {
		t.Fatalf("unexpected flush message: %+v", flush)
	}

	if err := session.Speak(context.Background(), "   ", &out); err != nil {
		t.Fatalf("blank text should be skipped, got %v", err)
	}
}

func TestSpeakSessionReportsProviderError(t *testing.T) {
	t.Parallel()

	server := newWebsocketServer(t, func(conn *websocket.Conn, _ *http.Request) {
		var msg speakMessage
		_ = conn.ReadJSON(&msg)
		payload, _ := json.Marshal(speakResponse{Type: "Error", Description: "quota exceeded"})
		_ = conn.WriteMessage(websocket.TextMessage, payload)
		_, _, _ = conn.ReadMessage()
	})

	session, err := NewProvider(Config{APIKey: "secret", APIBaseURL: server.URL}).StartSpeaking(context.Background(), ports.SpeakConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer session.Close()

	err = session.Speak(context.Background(), "hi", &bytes.Buffer{})
	if err == nil || err.Error() != "quota exceeded" {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestSpeakSessionCancel(t *testing.T) {
	t.Parallel()

	server := newWebsocketServer(t, func(conn *websocket.Conn, _ *http.Request) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	session, err := NewProvider(Config{APIKey: "secret", APIBaseURL: server.URL}).StartSpeaking(context.Background(), ports.SpeakConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = session.Speak(ctx, "never flushed", &bytes.Buffer{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if err := session.Speak(context.Background(), "again", &bytes.Buffer{}); !errors.Is(err, ErrSpeakSessionClosed) {
		t.Fatalf("expected closed session, got %v", err)
	}
}
