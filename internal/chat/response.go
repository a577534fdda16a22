// Package chat holds the streaming response model handed back by surfaces
// when voice input is accepted.
package chat

import (
	"strings"
	"sync"

	"voicechat/internal/event"
)

// Response accumulates streamed text until it is completed.
type Response struct {
	mu       sync.RWMutex
	id       string
	text     strings.Builder
	complete bool
	changed  event.Signal
}

func NewResponse(id string) *Response {
	return &Response{id: id}
}

// NewCompleteResponse returns a response that already holds all of text.
func NewCompleteResponse(id string, text string) *Response {
	r := NewResponse(id)
	r.text.WriteString(text)
	r.complete = true
	return r
}

func (r *Response) ID() string {
	return r.id
}

// Append adds streamed text. Appending to a complete response is ignored.
func (r *Response) Append(text string) {
	if text == "" {
		return
	}
	r.mu.Lock()
	if r.complete {
		r.mu.Unlock()
		return
	}
	r.text.WriteString(text)
	r.mu.Unlock()
	r.changed.Fire()
}

// Complete marks the response finished.
func (r *Response) Complete() {
	r.mu.Lock()
	if r.complete {
		r.mu.Unlock()
		return
	}
	r.complete = true
	r.mu.Unlock()
	r.changed.Fire()
}

func (r *Response) IsComplete() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.complete
}

func (r *Response) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.text.String()
}

func (r *Response) OnChange(fn func()) event.Disposable {
	return r.changed.Subscribe(fn)
}
