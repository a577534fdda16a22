package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"voicechat/internal/domain"
	"voicechat/internal/event"
)

// Settings holds the voice settings keyed by their dotted id. File values
// override the defaults; nested YAML maps and flat dotted keys are both
// accepted.
type Settings struct {
	path string
	log  *zap.Logger

	mu     sync.RWMutex
	values map[string]any

	changed event.Emitter[[]string]
}

func NewSettings(path string, logger *zap.Logger) *Settings {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Settings{path: path, log: logger.Named("settings"), values: domain.DefaultSettings()}
}

// LoadSettings reads path once. A missing file yields the defaults.
func LoadSettings(path string, logger *zap.Logger) (*Settings, error) {
	s := NewSettings(path, logger)
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) GetValue(id string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[id]
}

// OnDidChange reports the sorted ids whose value changed.
func (s *Settings) OnDidChange(fn func(ids []string)) event.Disposable {
	return s.changed.Subscribe(fn)
}

func (s *Settings) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Reload re-reads the settings file and publishes the ids that changed.
func (s *Settings) Reload() error {
	next := domain.DefaultSettings()
	if s.path != "" {
		contents, err := os.ReadFile(s.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return fmt.Errorf("failed to read settings file %q: %w", s.path, err)
		default:
			var raw map[string]any
			if err := yaml.Unmarshal(contents, &raw); err != nil {
				return fmt.Errorf("failed to parse settings file %q: %w", s.path, err)
			}
			flatten("", raw, next)
		}
	}
	s.apply(next)
	return nil
}

// Set changes one setting and writes the user values back to the file.
func (s *Settings) Set(id string, value any) error {
	s.mu.RLock()
	next := make(map[string]any, len(s.values))
	for k, v := range s.values {
		next[k] = v
	}
	s.mu.RUnlock()

	next[id] = value
	if err := s.save(next); err != nil {
		return err
	}
	s.apply(next)
	return nil
}

// Watch reloads the settings whenever the file changes.
func (s *Settings) Watch(delay time.Duration) (*FileWatcher, error) {
	if s.path == "" {
		return nil, errors.New("settings file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}
	return WatchFile(s.path, delay, func() {
		if err := s.Reload(); err != nil {
			s.log.Warn("settings reload failed", zap.Error(err))
		}
	}, s.log)
}

func (s *Settings) apply(next map[string]any) {
	s.mu.Lock()
	var ids []string
	for id, value := range next {
		if old, ok := s.values[id]; !ok || !reflect.DeepEqual(old, value) {
			ids = append(ids, id)
		}
	}
	for id := range s.values {
		if _, ok := next[id]; !ok {
			ids = append(ids, id)
		}
	}
	s.values = next
	s.mu.Unlock()

	if len(ids) == 0 {
		return
	}
	sort.Strings(ids)
	s.log.Debug("settings changed", zap.Strings("ids", ids))
	s.changed.Fire(ids)
}

// save persists the values that differ from the defaults as flat keys.
func (s *Settings) save(values map[string]any) error {
	if s.path == "" {
		return nil
	}
	defaults := domain.DefaultSettings()
	user := make(map[string]any)
	for id, value := range values {
		if def, ok := defaults[id]; ok && reflect.DeepEqual(def, value) {
			continue
		}
		user[id] = value
	}

	contents, err := yaml.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(s.path, contents, 0o600); err != nil {
		return fmt.Errorf("failed to write settings file %q: %w", s.path, err)
	}
	return nil
}

func flatten(prefix string, raw map[string]any, out map[string]any) {
	for key, value := range raw {
		id := key
		if prefix != "" {
			id = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(id, nested, out)
			continue
		}
		out[id] = value
	}
}
