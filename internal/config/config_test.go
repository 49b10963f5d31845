package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg, err := Load("", zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(25<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "mymemory", cfg.Translator.Provider)
	assert.Equal(t, "en", cfg.Translator.SourceLanguage)
	assert.Equal(t, "openai", cfg.Transcriber.Provider)
	assert.Equal(t, "elevenlabs", cfg.Synthesizer.Provider)
	assert.Equal(t, "sk-fallback", cfg.OpenAI.APIKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lingua.yaml")
	content := `
server:
  port: 8080
  request_timeout: 45s
translator:
  provider: gemini
  gemini:
    api_key: ${TEST_GEMINI_KEY}
synthesizer:
  provider: mock
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TEST_GEMINI_KEY", "gm-secret")
	t.Setenv("LINGUA_SERVER_PORT", "9090")
	t.Setenv("LINGUA_TRANSCRIBER_PROVIDER", "google")

	cfg, err := Load(path, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "environment overrides the file")
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "gemini", cfg.Translator.Provider)
	assert.Equal(t, "gm-secret", cfg.Translator.Gemini.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.Translator.Gemini.Model)
	assert.Equal(t, "google", cfg.Transcriber.Provider)
	assert.Equal(t, "mock", cfg.Synthesizer.Provider)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NormalizesProviderNames(t *testing.T) {
	t.Setenv("LINGUA_TRANSLATOR_PROVIDER", "Mock")
	t.Setenv("LINGUA_TRANSCRIBER_PROVIDER", " GOOGLE ")
	t.Setenv("LINGUA_SYNTHESIZER_PROVIDER", "OpenAI")

	cfg, err := Load("", zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Translator.Provider)
	assert.Equal(t, "google", cfg.Transcriber.Provider)
	assert.Equal(t, "openai", cfg.Synthesizer.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lingua.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))

	_, err := Load(path, zap.NewNop())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:      ServerConfig{Port: 5000},
			Logging:     LoggingConfig{Level: "info", Format: "json"},
			Translator:  TranslatorConfig{Provider: "mymemory"},
			Transcriber: TranscriberConfig{Provider: "openai"},
			Synthesizer: SynthesizerConfig{Provider: "elevenlabs"},
		}
	}

	cases := map[string]func(c *Config){
		"zero port":           func(c *Config) { c.Server.Port = 0 },
		"port out of range":   func(c *Config) { c.Server.Port = 70000 },
		"negative upload":     func(c *Config) { c.Server.MaxUploadBytes = -1 },
		"unknown translator":  func(c *Config) { c.Translator.Provider = "babelfish" },
		"unknown transcriber": func(c *Config) { c.Transcriber.Provider = "" },
		"unknown synthesizer": func(c *Config) { c.Synthesizer.Provider = "espeak" },
		"mixed case provider": func(c *Config) { c.Translator.Provider = "Mock" },
		"unknown log format":  func(c *Config) { c.Logging.Format = "xml" },
	}

	assert.NoError(t, valid().Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = NewLogger(LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = NewLogger(LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
