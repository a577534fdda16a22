package domain

// Setting ids understood by the voice features.
const (
	SettingSpeechTimeout     = "accessibility.voice.speechTimeout"
	SettingAutoSynthesize    = "accessibility.voice.autoSynthesize"
	SettingKeywordActivation = "accessibility.voice.keywordActivation"
	SettingIgnoreCodeBlocks  = "accessibility.voice.ignoreCodeBlocks"
	SettingSpeechLanguage    = "accessibility.voice.speechLanguage"
	SettingWakePhrase        = "accessibility.voice.wakePhrase"
)

// DefaultSpeechTimeoutMillis applies when the timeout setting is missing,
// negative or not a number.
const DefaultSpeechTimeoutMillis = 1200

// DefaultSettings returns the value of every voice setting when the user
// has not configured one.
func DefaultSettings() map[string]any {
	return map[string]any{
		SettingSpeechTimeout:     DefaultSpeechTimeoutMillis,
		SettingAutoSynthesize:    string(AutoSynthesizeOff),
		SettingKeywordActivation: string(KeywordActivationOff),
		SettingIgnoreCodeBlocks:  false,
		SettingSpeechLanguage:    "en-US",
		SettingWakePhrase:        "hey code",
	}
}
