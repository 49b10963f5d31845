// Package config loads the lingua server configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the root configuration for the translation gateway.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Translator  TranslatorConfig  `mapstructure:"translator"`
	Transcriber TranscriberConfig `mapstructure:"transcriber"`
	Synthesizer SynthesizerConfig `mapstructure:"synthesizer"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// StorageConfig holds the temporary audio workspace settings.
type StorageConfig struct {
	TempDir string `mapstructure:"temp_dir"`
}

// TranslatorConfig selects the text translation provider.
type TranslatorConfig struct {
	Provider       string         `mapstructure:"provider"` // mymemory, gemini, openai, mock
	SourceLanguage string         `mapstructure:"source_language"`
	MyMemory       MyMemoryConfig `mapstructure:"mymemory"`
	Gemini         GeminiConfig   `mapstructure:"gemini"`
	OpenAI         ModelConfig    `mapstructure:"openai"`
}

// MyMemoryConfig configures the MyMemory REST translator.
type MyMemoryConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Email   string `mapstructure:"email"`
}

// GeminiConfig configures the Gemini translator.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// ModelConfig names an OpenAI model.
type ModelConfig struct {
	Model string `mapstructure:"model"`
}

// TranscriberConfig selects the speech recognition provider.
type TranscriberConfig struct {
	Provider string             `mapstructure:"provider"` // openai, google, mock
	OpenAI   ModelConfig        `mapstructure:"openai"`
	Google   GoogleSpeechConfig `mapstructure:"google"`
}

// GoogleSpeechConfig configures Google Cloud Speech-to-Text.
type GoogleSpeechConfig struct {
	SampleRate int    `mapstructure:"sample_rate"`
	Model      string `mapstructure:"model"`
}

// SynthesizerConfig selects the speech synthesis provider.
type SynthesizerConfig struct {
	Provider   string           `mapstructure:"provider"` // elevenlabs, openai, mock
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
	OpenAI     OpenAIVoice      `mapstructure:"openai"`
}

// ElevenLabsConfig configures the Eleven Labs synthesizer.
type ElevenLabsConfig struct {
	APIKey       string  `mapstructure:"api_key"`
	BaseURL      string  `mapstructure:"base_url"`
	VoiceID      string  `mapstructure:"voice_id"`
	ModelID      string  `mapstructure:"model_id"`
	OutputFormat string  `mapstructure:"output_format"`
	Stability    float64 `mapstructure:"stability"`
	Clarity      float64 `mapstructure:"clarity"`
}

// OpenAIVoice configures OpenAI speech synthesis.
type OpenAIVoice struct {
	Model string `mapstructure:"model"`
	Voice string `mapstructure:"voice"`
}

// OpenAIConfig holds credentials shared by every OpenAI backed provider.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

var (
	translatorProviders  = []string{"mymemory", "gemini", "openai", "mock"}
	transcriberProviders = []string{"openai", "google", "mock"}
	synthesizerProviders = []string{"elevenlabs", "openai", "mock"}
)

// Load reads the configuration from a .env file, the config file, environment
// variables and defaults, in increasing order of precedence for the last three.
// If configFile is non-empty it is used directly; otherwise ./lingua.yaml,
// ./configs/lingua.yaml and /etc/lingua/lingua.yaml are searched.
func Load(configFile string, logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	v := viper.New()

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 120*time.Second)
	v.SetDefault("server.max_upload_bytes", 25<<20)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("storage.temp_dir", "")
	v.SetDefault("translator.provider", "mymemory")
	v.SetDefault("translator.source_language", "en")
	v.SetDefault("translator.mymemory.base_url", "")
	v.SetDefault("translator.mymemory.email", "")
	v.SetDefault("translator.gemini.api_key", "")
	v.SetDefault("translator.gemini.model", "gemini-2.0-flash")
	v.SetDefault("translator.openai.model", "gpt-4o-mini")
	v.SetDefault("transcriber.provider", "openai")
	v.SetDefault("transcriber.openai.model", "whisper-1")
	v.SetDefault("transcriber.google.sample_rate", 0)
	v.SetDefault("transcriber.google.model", "")
	v.SetDefault("synthesizer.provider", "elevenlabs")
	v.SetDefault("synthesizer.elevenlabs.api_key", "")
	v.SetDefault("synthesizer.elevenlabs.base_url", "")
	v.SetDefault("synthesizer.elevenlabs.voice_id", "")
	v.SetDefault("synthesizer.elevenlabs.model_id", "")
	v.SetDefault("synthesizer.elevenlabs.output_format", "")
	v.SetDefault("synthesizer.elevenlabs.stability", 0.0)
	v.SetDefault("synthesizer.elevenlabs.clarity", 0.0)
	v.SetDefault("synthesizer.openai.model", "tts-1")
	v.SetDefault("synthesizer.openai.voice", "alloy")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("lingua")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/lingua")
	}

	// LINGUA_SERVER_PORT, LINGUA_TRANSLATOR_PROVIDER, ...
	v.SetEnvPrefix("LINGUA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		logger.Info("No config file found, using defaults and environment variables")
	} else {
		logger.Info("Loaded config file", zap.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Provider names select factories by exact match
	cfg.Translator.Provider = normalizeName(cfg.Translator.Provider)
	cfg.Transcriber.Provider = normalizeName(cfg.Transcriber.Provider)
	cfg.Synthesizer.Provider = normalizeName(cfg.Synthesizer.Provider)

	cfg.OpenAI.APIKey = resolveSecret(cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	cfg.Translator.Gemini.APIKey = resolveSecret(cfg.Translator.Gemini.APIKey, "GEMINI_API_KEY")
	cfg.Synthesizer.ElevenLabs.APIKey = resolveSecret(cfg.Synthesizer.ElevenLabs.APIKey, "ELEVEN_LABS_API_KEY")

	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must not be negative, got %d", c.Server.MaxUploadBytes)
	}
	if err := oneOf("translator.provider", c.Translator.Provider, translatorProviders); err != nil {
		return err
	}
	if err := oneOf("transcriber.provider", c.Transcriber.Provider, transcriberProviders); err != nil {
		return err
	}
	if err := oneOf("synthesizer.provider", c.Synthesizer.Provider, synthesizerProviders); err != nil {
		return err
	}
	if format := strings.ToLower(c.Logging.Format); format != "json" && format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func oneOf(key, value string, allowed []string) error {
	for _, candidate := range allowed {
		if value == candidate {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// resolveSecret expands "${VAR}" references and falls back to the
// conventional provider variable when the value is empty.
func resolveSecret(val, fallbackEnv string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		val = os.Getenv(val[2 : len(val)-1])
	}
	if val == "" {
		val = os.Getenv(fallbackEnv)
	}
	return val
}

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level: %w", err)
	}

	var zapConfig zap.Config
	if strings.EqualFold(cfg.Format, "console") {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	return zapConfig.Build()
}
