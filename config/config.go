package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	TTS      TTSConfig      `yaml:"tts"`
	Playback PlaybackConfig `yaml:"playback"`
}

type AppConfig struct {
	Env         string `yaml:"env"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// TTSConfig selects the speech provider and holds per-provider settings.
type TTSConfig struct {
	Provider string       `yaml:"provider"`
	Local    LocalConfig  `yaml:"local"`
	Xunfei   XunfeiConfig `yaml:"xunfei"`
	Yandex   YandexConfig `yaml:"yandex"`
}

type LocalConfig struct {
	// Command overrides the platform synthesiser, e.g. "espeak-ng -g 2".
	Command string  `yaml:"command"`
	Rate    float64 `yaml:"rate"`
	Pitch   float64 `yaml:"pitch"`
	Volume  float64 `yaml:"volume"`
}

type XunfeiConfig struct {
	AppID              string `yaml:"app_id"`
	APIKey             string `yaml:"api_key"`
	APISecret          string `yaml:"api_secret"`
	HostURL            string `yaml:"host_url"`
	Voice              string `yaml:"voice"`
	Encoding           string `yaml:"encoding"`
	SampleRate         int    `yaml:"sample_rate"`
	Speed              int    `yaml:"speed"`
	Volume             int    `yaml:"volume"`
	Pitch              int    `yaml:"pitch"`
	HandshakeTimeoutMS int    `yaml:"handshake_timeout_ms"`
}

type YandexConfig struct {
	APIKey     string `yaml:"api_key"`
	FolderID   string `yaml:"folder_id"`
	Voice      string `yaml:"voice"`
	Endpoint   string `yaml:"endpoint"`
	SampleRate int    `yaml:"sample_rate"`
}

type PlaybackConfig struct {
	SampleRate      int `yaml:"sample_rate"`
	FramesPerBuffer int `yaml:"frames_per_buffer"`
	PollIntervalMS  int `yaml:"poll_interval_ms"`
}

var providers = []string{"local", "webspeech", "xunfei", "yandex"}

func Default() Config {
	return Config{
		App: AppConfig{
			Env:      "production",
			LogLevel: "info",
		},
		TTS: TTSConfig{
			Local: LocalConfig{
				Rate:   0.85,
				Pitch:  1,
				Volume: 1,
			},
			Xunfei: XunfeiConfig{
				HostURL:            "wss://tts-api.xfyun.cn/v2/tts",
				Voice:              "xiaoyan",
				Encoding:           "lame",
				SampleRate:         16000,
				Speed:              50,
				Volume:             50,
				Pitch:              50,
				HandshakeTimeoutMS: 5000,
			},
			Yandex: YandexConfig{
				Voice:      "john",
				Endpoint:   "tts.api.cloud.yandex.net:443",
				SampleRate: 22050,
			},
		},
		Playback: PlaybackConfig{
			SampleRate:      24000,
			FramesPerBuffer: 1024,
			PollIntervalMS:  100,
		},
	}
}

// Load reads .env (if present), then the YAML file at path (if given), then
// environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %w", err)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.App.Env, "APP_ENV")
	overrideString(&cfg.App.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.App.MetricsAddr, "METRICS_ADDR")

	overrideString(&cfg.TTS.Provider, "TTS_PROVIDER")
	overrideString(&cfg.TTS.Local.Command, "LOCAL_TTS_COMMAND")

	overrideString(&cfg.TTS.Xunfei.AppID, "XFYUN_APPID")
	overrideString(&cfg.TTS.Xunfei.APIKey, "XFYUN_API_KEY")
	overrideString(&cfg.TTS.Xunfei.APISecret, "XFYUN_API_SECRET")
	overrideString(&cfg.TTS.Xunfei.HostURL, "XFYUN_HOST_URL")
	overrideString(&cfg.TTS.Xunfei.Voice, "XFYUN_VOICE")
	overrideString(&cfg.TTS.Xunfei.Encoding, "XFYUN_ENCODING")

	overrideString(&cfg.TTS.Yandex.APIKey, "YANDEX_API_KEY")
	overrideString(&cfg.TTS.Yandex.FolderID, "YANDEX_FOLDER_ID")
	overrideString(&cfg.TTS.Yandex.Voice, "YANDEX_VOICE")

	overrideInt(&cfg.Playback.SampleRate, "PLAYBACK_SAMPLE_RATE")
	overrideInt(&cfg.Playback.FramesPerBuffer, "PLAYBACK_FRAMES_PER_BUFFER")
	overrideInt(&cfg.Playback.PollIntervalMS, "PLAYBACK_POLL_INTERVAL_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

// validate rejects unusable settings. Missing remote credentials are allowed:
// the provider selector falls back to local synthesis.
func validate(cfg Config) error {
	provider := strings.ToLower(cfg.TTS.Provider)
	if provider != "" && !contains(providers, provider) {
		return fmt.Errorf("unsupported tts provider %q, expected one of: %s", cfg.TTS.Provider, strings.Join(providers, ", "))
	}
	switch cfg.TTS.Xunfei.Encoding {
	case "lame", "raw":
	default:
		return fmt.Errorf("unsupported xunfei encoding %q", cfg.TTS.Xunfei.Encoding)
	}
	if cfg.TTS.Xunfei.SampleRate <= 0 || cfg.TTS.Yandex.SampleRate <= 0 {
		return errors.New("synthesis sample rates must be positive")
	}
	if cfg.Playback.SampleRate <= 0 {
		return errors.New("playback sample_rate must be positive")
	}
	if cfg.Playback.FramesPerBuffer <= 0 {
		return errors.New("playback frames_per_buffer must be positive")
	}
	if cfg.Playback.PollIntervalMS <= 0 {
		return errors.New("playback poll_interval_ms must be positive")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// HasCredentials reports whether all three signing credentials are set.
func (c XunfeiConfig) HasCredentials() bool {
	return c.AppID != "" && c.APIKey != "" && c.APISecret != ""
}

func (c YandexConfig) HasCredentials() bool {
	return c.APIKey != "" && c.FolderID != ""
}

func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// GetLogLevel maps LogLevel to a zap level, defaulting to info.
func (c *AppConfig) GetLogLevel() zap.AtomicLevel {
	switch c.LogLevel {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}
