package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/entities"
	"github.com/satriahrh/lingua/domain/repositories"
)

// WhisperConfig holds configuration for the OpenAI Whisper transcriber
type WhisperConfig struct {
	APIKey  string // Required
	Model   string // Optional, default whisper-1
	BaseURL string // Optional, any OpenAI compatible transcription endpoint
}

// WhisperTranscriber implements SpeechTranscriber using the OpenAI audio API
type WhisperTranscriber struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

var _ repositories.SpeechTranscriber = (*WhisperTranscriber)(nil)

// NewWhisperTranscriber creates a new Whisper transcriber
func NewWhisperTranscriber(config WhisperConfig, logger *zap.Logger) (*WhisperTranscriber, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = openai.Whisper1
		logger.Info("Using default model", zap.String("model", model))
	}

	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// Transcribe uploads the audio file and joins the returned segments
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio *entities.AudioResource, sourceLanguage string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audio.Path,
		Language: sourceLanguage,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	transcript := strings.TrimSpace(resp.Text)
	if len(resp.Segments) > 0 {
		parts := make([]string, 0, len(resp.Segments))
		for _, segment := range resp.Segments {
			if text := strings.TrimSpace(segment.Text); text != "" {
				parts = append(parts, text)
			}
		}
		transcript = strings.Join(parts, " ")
	}

	if transcript == "" {
		return "", errors.New("no speech detected in audio")
	}

	w.logger.Info("Transcription completed",
		zap.String("resourceID", audio.ID),
		zap.Int("segments", len(resp.Segments)),
		zap.String("language", resp.Language))
	return transcript, nil
}
