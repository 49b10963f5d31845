package speech

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/entities"
	"github.com/satriahrh/lingua/domain/repositories"
)

var (
	_ repositories.SpeechTranscriber = (*MockTranscriber)(nil)
	_ repositories.TextTranslator    = (*MockTranslator)(nil)
	_ repositories.SpeechSynthesizer = (*MockSynthesizer)(nil)
)

// MockTranscriber is a placeholder implementation for speech recognition
type MockTranscriber struct {
	logger *zap.Logger
}

// NewMockTranscriber creates a new mock transcriber
func NewMockTranscriber(logger *zap.Logger) *MockTranscriber {
	return &MockTranscriber{logger: logger}
}

// Transcribe implements repositories.SpeechTranscriber
func (s *MockTranscriber) Transcribe(ctx context.Context, audio *entities.AudioResource, sourceLanguage string) (string, error) {
	size, err := audio.Size()
	if err != nil {
		return "", err
	}

	s.logger.Info("Processing speech-to-text",
		zap.Int64("audioSize", size),
		zap.String("sourceLanguage", sourceLanguage))

	// Mock transcription based on audio size
	switch {
	case size == 0:
		return "", fmt.Errorf("audio too short")
	case size > 10000:
		return "Hello, how are you today? I would like to tell you about my day.", nil
	case size > 1000:
		return "Thank you for listening.", nil
	default:
		return "Hello", nil
	}
}

// MockTranslator tags text with the target language instead of translating it
type MockTranslator struct {
	logger *zap.Logger
}

// NewMockTranslator creates a new mock translator
func NewMockTranslator(logger *zap.Logger) *MockTranslator {
	return &MockTranslator{logger: logger}
}

// Translate implements repositories.TextTranslator
func (t *MockTranslator) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	t.logger.Info("Processing translation", zap.String("targetLanguage", targetLanguage))
	return fmt.Sprintf("[%s] %s", targetLanguage, text), nil
}

// MockSynthesizer is a placeholder implementation for text-to-speech
type MockSynthesizer struct {
	logger *zap.Logger
}

// NewMockSynthesizer creates a new mock synthesizer
func NewMockSynthesizer(logger *zap.Logger) *MockSynthesizer {
	return &MockSynthesizer{logger: logger}
}

// Synthesize implements repositories.SpeechSynthesizer
func (t *MockSynthesizer) Synthesize(ctx context.Context, text string, language string, out io.Writer) error {
	t.logger.Info("Processing text-to-speech",
		zap.Int("textLength", len(text)),
		zap.String("language", language))

	// Mock audio data - generate based on text length
	mockAudio := make([]byte, 10+len(text)*100)
	copy(mockAudio, "ID3\x04\x00\x00\x00\x00\x00\x00")
	for i := 10; i < len(mockAudio); i++ {
		mockAudio[i] = byte(i % 256)
	}

	_, err := out.Write(mockAudio)
	return err
}
