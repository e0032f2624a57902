package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "METRICS_ADDR", "TTS_PROVIDER", "LOCAL_TTS_COMMAND",
	"XFYUN_APPID", "XFYUN_API_KEY", "XFYUN_API_SECRET", "XFYUN_HOST_URL", "XFYUN_VOICE", "XFYUN_ENCODING",
	"YANDEX_API_KEY", "YANDEX_FOLDER_ID", "YANDEX_VOICE",
	"PLAYBACK_SAMPLE_RATE", "PLAYBACK_FRAMES_PER_BUFFER", "PLAYBACK_POLL_INTERVAL_MS",
}

// isolate clears every variable Load reads and moves into an empty dir so a
// developer's .env does not leak into the test.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.TTS.Provider)
	assert.Equal(t, "wss://tts-api.xfyun.cn/v2/tts", cfg.TTS.Xunfei.HostURL)
	assert.Equal(t, "xiaoyan", cfg.TTS.Xunfei.Voice)
	assert.Equal(t, "lame", cfg.TTS.Xunfei.Encoding)
	assert.Equal(t, 0.85, cfg.TTS.Local.Rate)
	assert.Equal(t, 100, cfg.Playback.PollIntervalMS)
	assert.False(t, cfg.TTS.Xunfei.HasCredentials())
	assert.False(t, cfg.TTS.Yandex.HasCredentials())
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "phonics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  log_level: debug
tts:
  provider: xunfei
  xunfei:
    app_id: yaml-app
    api_key: yaml-key
    api_secret: yaml-secret
    voice: aisjiuxu
playback:
  sample_rate: 16000
`), 0o600))

	t.Setenv("XFYUN_APPID", "env-app")
	t.Setenv("PLAYBACK_POLL_INTERVAL_MS", "50")
	t.Setenv("PLAYBACK_FRAMES_PER_BUFFER", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "xunfei", cfg.TTS.Provider)
	assert.Equal(t, "env-app", cfg.TTS.Xunfei.AppID)
	assert.Equal(t, "yaml-key", cfg.TTS.Xunfei.APIKey)
	assert.Equal(t, "aisjiuxu", cfg.TTS.Xunfei.Voice)
	assert.Equal(t, "lame", cfg.TTS.Xunfei.Encoding)
	assert.Equal(t, 16000, cfg.Playback.SampleRate)
	assert.Equal(t, 50, cfg.Playback.PollIntervalMS)
	assert.Equal(t, 1024, cfg.Playback.FramesPerBuffer)
	assert.True(t, cfg.TTS.Xunfei.HasCredentials())
	assert.Equal(t, zap.DebugLevel, cfg.App.GetLogLevel().Level())
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("YANDEX_API_KEY=from-dotenv\nYANDEX_FOLDER_ID=b1g\n"), 0o600))
	// godotenv never overrides variables that are already set, even when empty.
	require.NoError(t, os.Unsetenv("YANDEX_API_KEY"))
	require.NoError(t, os.Unsetenv("YANDEX_FOLDER_ID"))
	t.Cleanup(func() {
		os.Unsetenv("YANDEX_API_KEY")
		os.Unsetenv("YANDEX_FOLDER_ID")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.TTS.Yandex.APIKey)
	assert.True(t, cfg.TTS.Yandex.HasCredentials())
}

func TestLoadMissingFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown provider", map[string]string{"TTS_PROVIDER": "polly"}},
		{"unknown encoding", map[string]string{"XFYUN_ENCODING": "speex"}},
		{"zero sample rate", map[string]string{"PLAYBACK_SAMPLE_RATE": "0"}},
		{"negative poll interval", map[string]string{"PLAYBACK_POLL_INTERVAL_MS": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestProviderIsCaseInsensitive(t *testing.T) {
	isolate(t)
	t.Setenv("TTS_PROVIDER", "WebSpeech")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "WebSpeech", cfg.TTS.Provider)
}

func TestGetLogLevel(t *testing.T) {
	cases := map[string]zap.AtomicLevel{
		"debug": zap.NewAtomicLevelAt(zap.DebugLevel),
		"warn":  zap.NewAtomicLevelAt(zap.WarnLevel),
		"error": zap.NewAtomicLevelAt(zap.ErrorLevel),
		"bogus": zap.NewAtomicLevelAt(zap.InfoLevel),
	}
	for level, want := range cases {
		c := AppConfig{LogLevel: level}
		assert.Equal(t, want.Level(), c.GetLogLevel().Level(), level)
	}
}
