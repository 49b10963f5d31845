package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/lingua/adapters/llm"
	"github.com/satriahrh/lingua/adapters/mymemory"
	"github.com/satriahrh/lingua/adapters/speech"
	"github.com/satriahrh/lingua/adapters/stt"
	"github.com/satriahrh/lingua/adapters/tempfs"
	"github.com/satriahrh/lingua/adapters/tts"
	"github.com/satriahrh/lingua/domain/repositories"
	"github.com/satriahrh/lingua/internal/api"
	"github.com/satriahrh/lingua/internal/config"
	"github.com/satriahrh/lingua/internal/metrics"
	"github.com/satriahrh/lingua/internal/pipeline"
	"github.com/satriahrh/lingua/internal/websocket"
	"github.com/satriahrh/lingua/usecase"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	flag.Parse()

	bootLogger, _ := zap.NewProduction()
	cfg, err := config.Load(*configFile, bootLogger)
	if err != nil {
		bootLogger.Fatal("Failed to load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		bootLogger.Fatal("Invalid config", zap.Error(err))
	}
	bootLogger.Sync()

	// Initialize logger
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		bootLogger.Fatal("Failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	translator, err := newTranslator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize translator", zap.Error(err))
	}
	transcriber, closeTranscriber, err := newTranscriber(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize transcriber", zap.Error(err))
	}
	defer closeTranscriber()
	synthesizer, err := newSynthesizer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize synthesizer", zap.Error(err))
	}

	store, err := tempfs.NewStore(tempfs.Config{Root: cfg.Storage.TempDir}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize audio workspace", zap.Error(err))
	}

	recorder := metrics.NewRecorder()

	// Initialize usecase services
	runner := pipeline.NewRunner(logger, recorder)
	service := usecase.NewTranslationService(transcriber, translator, synthesizer, store, runner, logger)

	// Initialize WebSocket hub with translation service
	hub := websocket.NewHub(service, websocket.HubConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, logger)
	go hub.Run(ctx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(logger)

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
	}))
	if cfg.Server.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(cfg.Server.MaxUploadBytes, 10)))
	}
	e.Use(recorder.Middleware())

	// Initialize API routes
	handler := api.NewTranslateHandler(service, cfg.Server.RequestTimeout, logger)
	api.InitRoutes(e, handler, hub, recorder.Handler(), logger)

	// Graceful shutdown
	address := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("address", address),
		zap.String("translator", cfg.Translator.Provider),
		zap.String("transcriber", cfg.Transcriber.Provider),
		zap.String("synthesizer", cfg.Synthesizer.Provider))

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newTranslator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.TextTranslator, error) {
	switch cfg.Translator.Provider {
	case "gemini":
		return llm.NewGeminiTranslator(ctx, llm.GeminiConfig{
			APIKey: cfg.Translator.Gemini.APIKey,
			Model:  cfg.Translator.Gemini.Model,
		}, logger)
	case "openai":
		return llm.NewOpenAITranslator(llm.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.Translator.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		}, logger)
	case "mock":
		return speech.NewMockTranslator(logger), nil
	case "mymemory":
		return mymemory.NewTranslator(mymemory.Config{
			APIBaseURL:     cfg.Translator.MyMemory.BaseURL,
			SourceLanguage: cfg.Translator.SourceLanguage,
			Email:          cfg.Translator.MyMemory.Email,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown translator provider %q", cfg.Translator.Provider)
	}
}

func newTranscriber(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SpeechTranscriber, func(), error) {
	noop := func() {}
	switch cfg.Transcriber.Provider {
	case "google":
		transcriber, err := stt.NewGoogleTranscriber(ctx, stt.GoogleConfig{
			SampleRate: cfg.Transcriber.Google.SampleRate,
			Model:      cfg.Transcriber.Google.Model,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return transcriber, func() {
			if err := transcriber.Close(); err != nil {
				logger.Warn("Failed to close speech client", zap.Error(err))
			}
		}, nil
	case "mock":
		return speech.NewMockTranscriber(logger), noop, nil
	case "openai":
		transcriber, err := stt.NewWhisperTranscriber(stt.WhisperConfig{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.Transcriber.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		}, logger)
		return transcriber, noop, err
	default:
		return nil, noop, fmt.Errorf("unknown transcriber provider %q", cfg.Transcriber.Provider)
	}
}

func newSynthesizer(cfg *config.Config, logger *zap.Logger) (repositories.SpeechSynthesizer, error) {
	switch cfg.Synthesizer.Provider {
	case "openai":
		return tts.NewOpenAISynthesizer(tts.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.Synthesizer.OpenAI.Model,
			Voice:   cfg.Synthesizer.OpenAI.Voice,
			BaseURL: cfg.OpenAI.BaseURL,
		}, logger)
	case "mock":
		return speech.NewMockSynthesizer(logger), nil
	case "elevenlabs":
		el := cfg.Synthesizer.ElevenLabs
		return tts.NewElevenLabsSynthesizer(tts.ElevenLabsConfig{
			APIKey:       el.APIKey,
			APIBaseURL:   el.BaseURL,
			VoiceID:      el.VoiceID,
			ModelID:      el.ModelID,
			OutputFormat: el.OutputFormat,
			Stability:    el.Stability,
			Clarity:      el.Clarity,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown synthesizer provider %q", cfg.Synthesizer.Provider)
	}
}
