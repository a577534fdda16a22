package usecase

import (
	"strings"

	"voicechat/internal/markdown"
)

const (
	lineDelimiter = '\n'
	wordDelimiter = ' '
	codeFence     = "```"
)

func isSentenceDelimiter(c byte) bool {
	switch c {
	case '.', '!', '?', ':':
		return true
	default:
		return false
	}
}

// ParseNextChatResponseChunk returns the longest speakable prefix of
// text[offset:] that ends at a sentence or line boundary, and the offset
// just past that boundary. It returns "" and offset unchanged when no
// boundary exists yet.
func ParseNextChatResponseChunk(text string, offset int) (string, int) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(text) {
		return "", offset
	}

	relevant := text[offset:]
	for i := len(relevant) - 1; i >= 0; i-- {
		c := relevant[i]
		if c == lineDelimiter || (isSentenceDelimiter(c) && i+1 < len(relevant) && relevant[i+1] == wordDelimiter) {
			return strings.TrimSpace(relevant[:i+1]), offset + i + 1
		}
	}
	return "", offset
}

// codeBlockFilter drops fenced code from successive chunks of one response.
type codeBlockFilter struct {
	enabled bool
	inside  bool
}

func (f *codeBlockFilter) Filter(chunk string) string {
	if !f.enabled || chunk == "" {
		return chunk
	}

	lines := strings.Split(chunk, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), codeFence) {
			f.inside = !f.inside
			continue
		}
		if !f.inside {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// responseChunker walks a streaming response and yields speakable text.
type responseChunker struct {
	offset int
	filter codeBlockFilter
}

func newResponseChunker(ignoreCodeBlocks bool) *responseChunker {
	return &responseChunker{filter: codeBlockFilter{enabled: ignoreCodeBlocks}}
}

// Next consumes the next chunk of text. When complete is true the whole
// remaining tail is consumed regardless of punctuation.
func (c *responseChunker) Next(text string, complete bool) string {
	var chunk string
	if complete {
		if c.offset < len(text) {
			chunk = text[c.offset:]
		}
		c.offset = len(text)
	} else {
		chunk, c.offset = ParseNextChatResponseChunk(text, c.offset)
	}

	chunk = c.filter.Filter(chunk)
	if strings.TrimSpace(chunk) == "" {
		return ""
	}
	return markdown.PlainText(chunk)
}
