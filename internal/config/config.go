// Package config loads pipeline configuration from defaults, an optional
// YAML file, and environment variable overrides, in that precedence order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	defaultServerHost          = "0.0.0.0"
	defaultServerPort          = 8000
	defaultLogLevel            = "INFO"
	defaultVideoFPS            = 3
	defaultAudioSampleRate     = 16000
	defaultAudioFrameMs        = 20
	defaultAudioOverlapMs      = 1000
	defaultVADAggressiveness   = 1
	defaultSTTLanguage         = "pt-BR"
	defaultSTTMaxDurationSec   = 240
	defaultEmotionWindowSec    = 10
	defaultEventForwardBaseURL = "http://localhost:8080"
	defaultHTTPTimeoutSec      = 10
	defaultMetricsAddr         = ":9090"
	defaultWhisperServerURL    = "http://localhost:8081"
	defaultIdleTimeoutSec      = 30
	defaultDataChanInitDelayMs = 100
)

// Config holds every pipeline tunable. Fields are validated with
// go-playground/validator after the three load layers are merged.
type Config struct {
	ServerHost string `yaml:"server_host" validate:"required"`
	ServerPort int    `yaml:"server_port" validate:"min=1,max=65535"`
	LogLevel   string `yaml:"log_level" validate:"oneof=DEBUG INFO WARN ERROR"`

	VideoFPS int `yaml:"video_fps" validate:"min=1,max=60"`

	AudioSampleRate   int `yaml:"audio_sample_rate" validate:"min=8000"`
	AudioFrameMs      int `yaml:"audio_frame_ms" validate:"min=1"`
	AudioOverlapMs    int `yaml:"audio_overlap_ms" validate:"min=0"`
	VADAggressiveness int `yaml:"vad_aggressiveness" validate:"min=0,max=3"`

	STTLanguage       string `yaml:"stt_language" validate:"required"`
	STTMaxDurationSec int    `yaml:"stt_max_duration_sec" validate:"min=1"`

	EmotionWindowSec int `yaml:"emotion_window_sec" validate:"min=1"`

	EventForwardBaseURL string `yaml:"event_forward_base_url" validate:"required,url"`
	APIKey              string `yaml:"api_key"`
	HTTPRequestTimeout  time.Duration

	MetricsAddr           string `yaml:"metrics_addr" validate:"required"`
	WhisperServerURL      string `yaml:"whisper_server_url" validate:"required,url"`
	VADModelPath          string `yaml:"vad_model_path"`
	EmotionModelPath      string `yaml:"emotion_model_path"`
	IdleTimeoutSec        int    `yaml:"idle_timeout_sec" validate:"min=1"`
	DataChanInitDelayMs   int    `yaml:"data_channel_init_delay_ms" validate:"min=0"`
}

type yamlConfig struct {
	ServerHost          string `yaml:"server_host"`
	ServerPort          int    `yaml:"server_port"`
	LogLevel            string `yaml:"log_level"`
	VideoFPS            int    `yaml:"video_fps"`
	AudioSampleRate     int    `yaml:"audio_sample_rate"`
	AudioFrameMs        int    `yaml:"audio_frame_ms"`
	AudioOverlapMs      int    `yaml:"audio_overlap_ms"`
	VADAggressiveness   int    `yaml:"vad_aggressiveness"`
	STTLanguage         string `yaml:"stt_language"`
	STTMaxDurationSec   int    `yaml:"stt_max_duration_sec"`
	EmotionWindowSec    int    `yaml:"emotion_window_sec"`
	EventForwardBaseURL string `yaml:"event_forward_base_url"`
	APIKey              string `yaml:"api_key"`
	HTTPTimeoutSec      int    `yaml:"http_request_timeout_sec"`
	MetricsAddr         string `yaml:"metrics_addr"`
	WhisperServerURL    string `yaml:"whisper_server_url"`
	VADModelPath        string `yaml:"vad_model_path"`
	EmotionModelPath    string `yaml:"emotion_model_path"`
	IdleTimeoutSec      int    `yaml:"idle_timeout_sec"`
	DataChanInitDelayMs int    `yaml:"data_channel_init_delay_ms"`
}

// Load builds a Config from defaults, optionally overlaid with a YAML file
// at path (skipped if path is empty or unreadable), then overlaid with
// environment variables. The merged result is validated before returning.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ServerHost:          defaultServerHost,
		ServerPort:          defaultServerPort,
		LogLevel:            defaultLogLevel,
		VideoFPS:            defaultVideoFPS,
		AudioSampleRate:     defaultAudioSampleRate,
		AudioFrameMs:        defaultAudioFrameMs,
		AudioOverlapMs:      defaultAudioOverlapMs,
		VADAggressiveness:   defaultVADAggressiveness,
		STTLanguage:         defaultSTTLanguage,
		STTMaxDurationSec:   defaultSTTMaxDurationSec,
		EmotionWindowSec:    defaultEmotionWindowSec,
		EventForwardBaseURL: defaultEventForwardBaseURL,
		HTTPRequestTimeout:  defaultHTTPTimeoutSec * time.Second,
		MetricsAddr:         defaultMetricsAddr,
		WhisperServerURL:    defaultWhisperServerURL,
		IdleTimeoutSec:      defaultIdleTimeoutSec,
		DataChanInitDelayMs: defaultDataChanInitDelayMs,
	}

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var yc yamlConfig
			if err := yaml.Unmarshal(data, &yc); err != nil {
				return nil, fmt.Errorf("config: parse yaml: %w", err)
			}
			applyYAML(cfg, &yc)
		}
	}

	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

func applyYAML(cfg *Config, yc *yamlConfig) {
	if yc.ServerHost != "" {
		cfg.ServerHost = yc.ServerHost
	}
	if yc.ServerPort > 0 {
		cfg.ServerPort = yc.ServerPort
	}
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.VideoFPS > 0 {
		cfg.VideoFPS = yc.VideoFPS
	}
	if yc.AudioSampleRate > 0 {
		cfg.AudioSampleRate = yc.AudioSampleRate
	}
	if yc.AudioFrameMs > 0 {
		cfg.AudioFrameMs = yc.AudioFrameMs
	}
	if yc.AudioOverlapMs > 0 {
		cfg.AudioOverlapMs = yc.AudioOverlapMs
	}
	if yc.VADAggressiveness > 0 {
		cfg.VADAggressiveness = yc.VADAggressiveness
	}
	if yc.STTLanguage != "" {
		cfg.STTLanguage = yc.STTLanguage
	}
	if yc.STTMaxDurationSec > 0 {
		cfg.STTMaxDurationSec = yc.STTMaxDurationSec
	}
	if yc.EmotionWindowSec > 0 {
		cfg.EmotionWindowSec = yc.EmotionWindowSec
	}
	if yc.EventForwardBaseURL != "" {
		cfg.EventForwardBaseURL = yc.EventForwardBaseURL
	}
	if yc.APIKey != "" {
		cfg.APIKey = yc.APIKey
	}
	if yc.HTTPTimeoutSec > 0 {
		cfg.HTTPRequestTimeout = time.Duration(yc.HTTPTimeoutSec) * time.Second
	}
	if yc.MetricsAddr != "" {
		cfg.MetricsAddr = yc.MetricsAddr
	}
	if yc.WhisperServerURL != "" {
		cfg.WhisperServerURL = yc.WhisperServerURL
	}
	if yc.VADModelPath != "" {
		cfg.VADModelPath = yc.VADModelPath
	}
	if yc.EmotionModelPath != "" {
		cfg.EmotionModelPath = yc.EmotionModelPath
	}
	if yc.IdleTimeoutSec > 0 {
		cfg.IdleTimeoutSec = yc.IdleTimeoutSec
	}
	if yc.DataChanInitDelayMs > 0 {
		cfg.DataChanInitDelayMs = yc.DataChanInitDelayMs
	}
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	intv := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("SERVER_HOST", &cfg.ServerHost)
	intv("SERVER_PORT", &cfg.ServerPort)
	str("LOG_LEVEL", &cfg.LogLevel)
	intv("VIDEO_FPS", &cfg.VideoFPS)
	intv("AUDIO_SAMPLE_RATE", &cfg.AudioSampleRate)
	intv("AUDIO_FRAME_MS", &cfg.AudioFrameMs)
	intv("AUDIO_OVERLAP_MS", &cfg.AudioOverlapMs)
	intv("VAD_AGGRESSIVENESS", &cfg.VADAggressiveness)
	str("STT_LANGUAGE", &cfg.STTLanguage)
	intv("STT_MAX_DURATION_SEC", &cfg.STTMaxDurationSec)
	intv("EMOTION_WINDOW_SEC", &cfg.EmotionWindowSec)
	str("EVENT_FORWARD_BASE_URL", &cfg.EventForwardBaseURL)
	str("API_KEY", &cfg.APIKey)
	if v := os.Getenv("HTTP_REQUEST_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTPRequestTimeout = time.Duration(n) * time.Second
		}
	}
	str("METRICS_ADDR", &cfg.MetricsAddr)
	str("WHISPER_SERVER_URL", &cfg.WhisperServerURL)
	str("VAD_MODEL_PATH", &cfg.VADModelPath)
	str("EMOTION_MODEL_PATH", &cfg.EmotionModelPath)
	intv("IDLE_TIMEOUT_SEC", &cfg.IdleTimeoutSec)
	intv("DATA_CHANNEL_INIT_DELAY_MS", &cfg.DataChanInitDelayMs)
}

// ChunkBytes returns the byte length of one PCM chunk at the configured
// sample rate and frame duration (16-bit mono).
func (c *Config) ChunkBytes() int {
	return c.AudioSampleRate * c.AudioFrameMs / 1000 * 2
}

// OverlapChunks returns the OverlapBuffer capacity in chunks.
func (c *Config) OverlapChunks() int {
	if c.AudioFrameMs <= 0 {
		return 0
	}
	return c.AudioOverlapMs / c.AudioFrameMs
}
