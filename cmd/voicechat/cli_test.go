package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicechat/internal/domain"
	"voicechat/internal/usecase"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("VOICECHAT_SETTINGS_FILE", "")
	t.Setenv("VOICECHAT_RULES_FILE", "")
	t.Setenv("DEEPGRAM_API_KEY", "")
	return dir
}

func TestSettingsSetAndList(t *testing.T) {
	dir := isolate(t)

	_, err := execute(t, "", "settings", "set", domain.SettingSpeechTimeout, "2500")
	require.NoError(t, err)
	_, err = execute(t, "", "settings", "set", domain.SettingKeywordActivation, "quickChat")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "voicechat", "settings.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "2500")

	out, err := execute(t, "", "settings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, domain.SettingSpeechTimeout+" = 2500")
	assert.Contains(t, out, domain.SettingKeywordActivation+" = quickChat")
	assert.Contains(t, out, domain.SettingWakePhrase+" = hey code")

	out, err = execute(t, "", "settings", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "voicechat", "settings.yaml")+"\n", out)
}

func TestSettingsSetRejectsBadValues(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "settings", "set", "accessibility.voice.unknown", "1")
	assert.Error(t, err)
	_, err = execute(t, "", "settings", "set", domain.SettingSpeechTimeout, "soon")
	assert.Error(t, err)
}

func TestParseSettingValue(t *testing.T) {
	t.Parallel()

	v, err := parseSettingValue(domain.SettingIgnoreCodeBlocks, "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = parseSettingValue(domain.SettingSpeechTimeout, "0")
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	v, err = parseSettingValue(domain.SettingAutoSynthesize, "on")
	require.NoError(t, err)
	assert.Equal(t, "on", v)

	v, err = parseSettingValue(domain.SettingWakePhrase, "hey: there")
	require.NoError(t, err)
	assert.Equal(t, "hey: there", v)

	_, err = parseSettingValue(domain.SettingIgnoreCodeBlocks, "maybe")
	assert.Error(t, err)
}

func TestCommandsListsIDs(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "commands")
	require.NoError(t, err)
	for _, id := range []string{usecase.CommandStartVoiceChat, usecase.CommandReadAloud, usecase.CommandHoldToVoiceChat} {
		assert.Contains(t, out, id)
	}
}

func TestCheckReportsMissingSpeech(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "check")
	assert.Error(t, err)
	assert.Contains(t, out, "speech:    unavailable")
	assert.Contains(t, out, "model:     nova-2")
}

func TestReadRequiresText(t *testing.T) {
	isolate(t)

	_, err := execute(t, "   ", "read")
	assert.EqualError(t, err, "nothing to read")
}

func TestListenFailsWhenSetupDeclined(t *testing.T) {
	isolate(t)

	_, err := execute(t, "n\n", "listen")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speech is unavailable")
}

func TestWakeRequiresKeywordActivation(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "wake")
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.SettingKeywordActivation)
}

func TestReadText(t *testing.T) {
	t.Parallel()

	text, err := readText(strings.NewReader("from stdin"), nil)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", text)

	text, err = readText(strings.NewReader("dash"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "dash", text)

	text, err = readText(strings.NewReader("ignored"), []string{"hello", "there"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
}

func blockingReader() (io.Reader, io.Closer) {
	r, w := io.Pipe()
	return r, w
}
