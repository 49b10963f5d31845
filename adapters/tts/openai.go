package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/repositories"
)

// OpenAIConfig holds configuration for the OpenAI speech synthesizer
type OpenAIConfig struct {
	APIKey  string // Required
	Model   string // Optional, default tts-1
	Voice   string // Optional, default alloy
	BaseURL string // Optional
}

// OpenAISynthesizer implements SpeechSynthesizer with the OpenAI speech endpoint
type OpenAISynthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	logger *zap.Logger
}

var _ repositories.SpeechSynthesizer = (*OpenAISynthesizer)(nil)

// NewOpenAISynthesizer creates a new OpenAI synthesizer
func NewOpenAISynthesizer(config OpenAIConfig, logger *zap.Logger) (*OpenAISynthesizer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := openai.SpeechModel(config.Model)
	if model == "" {
		model = openai.TTSModel1
		logger.Info("Using default model", zap.String("model", string(model)))
	}

	voice := openai.SpeechVoice(config.Voice)
	if voice == "" {
		voice = openai.VoiceAlloy
		logger.Info("Using default voice", zap.String("voice", string(voice)))
	}

	return &OpenAISynthesizer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		voice:  voice,
		logger: logger,
	}, nil
}

// Synthesize writes mp3 audio for text into out. The voice is multilingual,
// so language only shows up in logs.
func (o *OpenAISynthesizer) Synthesize(ctx context.Context, text string, language string, out io.Writer) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("text cannot be empty")
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          o.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Close()

	written, err := io.Copy(out, resp)
	if err != nil {
		return fmt.Errorf("failed to stream synthesized audio: %w", err)
	}
	if written == 0 {
		return errors.New("speech synthesis returned no audio")
	}

	o.logger.Info("Speech synthesis completed",
		zap.String("language", language),
		zap.Int64("totalBytes", written))
	return nil
}
