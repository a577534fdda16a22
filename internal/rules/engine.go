package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

type compiledRule interface {
	Apply(input string) (output string, changed bool)
}

// RuleParser parses one line into a compiled rule.
type RuleParser interface {
	CanParse(line string) bool
	Parse(line string) (compiledRule, error)
}

// Engine rewrites transcripts with substitutions loaded from a rules file.
// It is safe for concurrent use; Reload swaps the rule set atomically.
type Engine struct {
	path      string
	parsers   []RuleParser
	loopLimit int

	mu    sync.RWMutex
	rules []compiledRule
}

// NewEngine loads and compiles rules from a file using built-in parsers.
func NewEngine(path string, loopLimit int) (*Engine, error) {
	return NewEngineWithParsers(path, loopLimit, defaultRuleParsers())
}

// NewEngineWithParsers allows parser extension without engine changes.
func NewEngineWithParsers(path string, loopLimit int, parsers []RuleParser) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = 30
	}
	if len(parsers) == 0 {
		parsers = defaultRuleParsers()
	}

	e := &Engine{path: strings.TrimSpace(path), parsers: parsers, loopLimit: loopLimit}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Path is the rules file, or empty when no file is configured.
func (e *Engine) Path() string {
	return e.path
}

// Reload re-reads the rules file. A missing file clears the rules; a
// broken file keeps the previous rules and returns the parse error.
func (e *Engine) Reload() error {
	if e.path == "" {
		return nil
	}

	var rules []compiledRule
	contents, err := os.ReadFile(e.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read rules file %q: %w", e.path, err)
	default:
		rules, err = parseRules(string(contents), e.parsers)
		if err != nil {
			return fmt.Errorf("failed to parse rules file %q: %w", e.path, err)
		}
	}

	e.mu.Lock()
	e.rules = rules
	e.mu.Unlock()
	return nil
}

// Len reports how many rules are loaded.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Apply runs every rule repeatedly until the text stops changing or the
// loop limit is reached.
func (e *Engine) Apply(text string) (string, error) {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	if len(rules) == 0 {
		return text, nil
	}

	result := text
	for i := 0; i < e.loopLimit; i++ {
		changed := false
		for _, rule := range rules {
			next, ruleChanged := rule.Apply(result)
			if ruleChanged {
				result = next
				changed = true
			}
		}
		if !changed {
			return result, nil
		}
	}

	return result, nil
}
