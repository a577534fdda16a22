package usecase

import "sync"

// transcriptAggregator tracks the input value of a surface during one
// capture session: the text that was there before, plus every recognized
// segment.
type transcriptAggregator struct {
	mu    sync.Mutex
	value string
}

func newTranscriptAggregator(initial string) *transcriptAggregator {
	return &transcriptAggregator{value: initial}
}

// Preview returns the input value with a tentative segment appended,
// without committing it.
func (a *transcriptAggregator) Preview(text string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return joinInput(a.value, text)
}

// Commit appends a recognized segment and returns the new input value.
func (a *transcriptAggregator) Commit(text string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = joinInput(a.value, text)
	return a.value
}

func (a *transcriptAggregator) Value() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

func joinInput(prev string, text string) string {
	if prev == "" {
		return text
	}
	if text == "" {
		return prev
	}
	return prev + " " + text
}
