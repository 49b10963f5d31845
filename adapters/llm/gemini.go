package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/lingua/domain/repositories"
)

const (
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultTemperature    = 0.1
	defaultTimeoutSeconds = 30
)

// GeminiConfig holds configuration for the Gemini translator
// Required fields:
// - APIKey: Google AI API key
// Optional fields with defaults:
// - Model: (default: "gemini-2.0-flash")
// - Temperature: between 0 and 1 (default: 0.1)
// - TimeoutSeconds: per request timeout (default: 30)
// - BaseURL: overrides the Gemini API endpoint
type GeminiConfig struct {
	APIKey         string
	Model          string
	Temperature    float32
	TimeoutSeconds int
	BaseURL        string
}

// GeminiTranslator implements TextTranslator using Google's Gemini API
type GeminiTranslator struct {
	client         *genai.Client
	logger         *zap.Logger
	model          string
	temperature    float32
	timeoutSeconds int
}

var _ repositories.TextTranslator = (*GeminiTranslator)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}

	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
	}

	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}

	return nil
}

// NewGeminiTranslator creates a new Gemini translator
func NewGeminiTranslator(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiTranslator, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", model))
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
		logger.Info("Using default temperature", zap.Float32("temperature", temperature))
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
		logger.Info("Using default timeoutSeconds", zap.Int("timeoutSeconds", timeoutSeconds))
	}

	return &GeminiTranslator{
		client:         client,
		logger:         logger,
		model:          model,
		temperature:    temperature,
		timeoutSeconds: timeoutSeconds,
	}, nil
}

// Translate asks the model for a translation of text into targetLanguage
func (g *GeminiTranslator) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.timeoutSeconds)*time.Second)
	defer cancel()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(translationInstruction(targetLanguage), genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", errors.New("translation failed: no content generated")
	}

	var translated strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			translated.WriteString(part.Text)
		}
	}

	result := strings.TrimSpace(translated.String())
	if result == "" {
		return "", errors.New("translation failed: empty response")
	}

	g.logger.Debug("Gemini translation completed",
		zap.String("targetLanguage", targetLanguage),
		zap.String("preview", result[:min(50, len(result))]))

	return result, nil
}

// translationInstruction is shared by the LLM-backed translators
func translationInstruction(targetLanguage string) string {
	return fmt.Sprintf("You are a translation engine. Translate the user's message into the language "+
		"identified by the ISO 639-1 code %q. Reply with the translation only, without quotes, notes or "+
		"transliteration. If the message is already in that language, return it unchanged.", targetLanguage)
}
