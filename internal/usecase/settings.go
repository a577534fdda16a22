package usecase

import (
	"strings"
	"time"

	"voicechat/internal/domain"
	"voicechat/internal/ports"
)

// DefaultSpeechTimeout is the silence after which recognized speech is
// submitted when the setting is unusable.
const DefaultSpeechTimeout = domain.DefaultSpeechTimeoutMillis * time.Millisecond

func settingValue(cfg ports.Configuration, id string) any {
	if cfg == nil {
		return nil
	}
	return cfg.GetValue(id)
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// speechTimeout reads the auto-accept timeout. Zero disables auto-accept.
func speechTimeout(cfg ports.Configuration) time.Duration {
	ms, ok := numberValue(settingValue(cfg, domain.SettingSpeechTimeout))
	if !ok || ms < 0 {
		return DefaultSpeechTimeout
	}
	return time.Duration(ms * float64(time.Millisecond))
}

func stringSetting(cfg ports.Configuration, id string, fallback string) string {
	s, ok := settingValue(cfg, id).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

func boolSetting(cfg ports.Configuration, id string) bool {
	b, _ := settingValue(cfg, id).(bool)
	return b
}

func autoSynthesizeSetting(cfg ports.Configuration) domain.AutoSynthesize {
	switch v := settingValue(cfg, domain.SettingAutoSynthesize).(type) {
	case bool:
		if v {
			return domain.AutoSynthesizeOn
		}
	case string:
		switch domain.AutoSynthesize(strings.TrimSpace(v)) {
		case domain.AutoSynthesizeOn:
			return domain.AutoSynthesizeOn
		case domain.AutoSynthesizeAuto:
			return domain.AutoSynthesizeAuto
		}
	}
	return domain.AutoSynthesizeOff
}

func keywordActivationSetting(cfg ports.Configuration) domain.KeywordActivation {
	v, _ := settingValue(cfg, domain.SettingKeywordActivation).(string)
	switch mode := domain.KeywordActivation(strings.TrimSpace(v)); mode {
	case domain.KeywordActivationChatInView,
		domain.KeywordActivationQuickChat,
		domain.KeywordActivationInlineChat,
		domain.KeywordActivationChatInContext:
		return mode
	default:
		return domain.KeywordActivationOff
	}
}
