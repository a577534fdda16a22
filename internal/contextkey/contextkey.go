// Package contextkey holds the key-value flags that describe voice state,
// either process-wide or scoped to one surface.
package contextkey

import (
	"sync"

	"voicechat/internal/event"
)

// Key names. Global keys live in the coordinator's Set, scoped keys in the
// Set that travels with each Controller.
const (
	VoiceChatGettingReady      = "voiceChatGettingReady"
	VoiceChatInProgress        = "voiceChatInProgress"
	VoiceChatInViewInProgress  = "voiceChatInViewInProgress"
	InlineVoiceChatInProgress  = "inlineVoiceChatInProgress"
	QuickVoiceChatInProgress   = "quickVoiceChatInProgress"
	EditorVoiceChatInProgress  = "voiceChatInEditorInProgress"
	TextToSpeechInProgress     = "textToSpeechInProgress"
	KeywordActivationListening = "keywordActivationListening"

	ScopedVoiceChatState          = "scopedVoiceChatState"
	ScopedChatSynthesisInProgress = "scopedChatSynthesisInProgress"
)

// Change describes one key transition.
type Change struct {
	Key   string
	Value any
}

// Set is a concurrency-safe key-value context. Reset restores a key to the
// default registered with Define, or removes it.
type Set struct {
	mu       sync.RWMutex
	values   map[string]any
	defaults map[string]any
	changed  event.Emitter[Change]
}

func NewSet() *Set {
	return &Set{values: map[string]any{}, defaults: map[string]any{}}
}

// Define registers a default value and applies it.
func (s *Set) Define(key string, def any) *Set {
	s.mu.Lock()
	s.defaults[key] = def
	s.values[key] = def
	s.mu.Unlock()
	return s
}

func (s *Set) Set(key string, value any) {
	s.mu.Lock()
	if prev, ok := s.values[key]; ok && prev == value {
		s.mu.Unlock()
		return
	}
	s.values[key] = value
	s.mu.Unlock()
	s.changed.Fire(Change{Key: key, Value: value})
}

func (s *Set) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Bool reads a key as a boolean; absent or non-boolean values are false.
func (s *Set) Bool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

func (s *Set) Reset(key string) {
	s.mu.Lock()
	def, hasDefault := s.defaults[key]
	prev, had := s.values[key]
	if hasDefault {
		s.values[key] = def
	} else {
		delete(s.values, key)
	}
	s.mu.Unlock()

	if (hasDefault && had && prev == def) || (!hasDefault && !had) {
		return
	}
	s.changed.Fire(Change{Key: key, Value: def})
}

// Snapshot copies the current values.
func (s *Set) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Set) OnDidChange(fn func(Change)) event.Disposable {
	return s.changed.Subscribe(fn)
}

// NewGlobal returns a Set with every process-wide key defined.
func NewGlobal() *Set {
	return NewSet().
		Define(VoiceChatGettingReady, false).
		Define(VoiceChatInProgress, false).
		Define(VoiceChatInViewInProgress, false).
		Define(InlineVoiceChatInProgress, false).
		Define(QuickVoiceChatInProgress, false).
		Define(EditorVoiceChatInProgress, false).
		Define(TextToSpeechInProgress, false).
		Define(KeywordActivationListening, false)
}
