package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/repositories"
)

// OpenAIConfig holds configuration for the OpenAI chat translator
type OpenAIConfig struct {
	APIKey  string // Required
	Model   string // Optional, default gpt-4o-mini
	BaseURL string // Optional, for OpenAI compatible gateways
}

// OpenAITranslator implements TextTranslator with chat completions
type OpenAITranslator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

var _ repositories.TextTranslator = (*OpenAITranslator)(nil)

// NewOpenAITranslator creates a new OpenAI translator
func NewOpenAITranslator(config OpenAIConfig, logger *zap.Logger) (*OpenAITranslator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = openai.GPT4oMini
		logger.Info("Using default model", zap.String("model", model))
	}

	return &OpenAITranslator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// Translate asks the chat model for a translation of text into targetLanguage
func (o *OpenAITranslator) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translationInstruction(targetLanguage)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("translation failed: no choices returned")
	}

	result := strings.TrimSpace(resp.Choices[0].Message.Content)
	if result == "" {
		return "", errors.New("translation failed: empty response")
	}

	o.logger.Debug("OpenAI translation completed",
		zap.String("targetLanguage", targetLanguage),
		zap.String("model", o.model))
	return result, nil
}
