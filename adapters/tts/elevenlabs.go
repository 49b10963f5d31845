package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/repositories"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	elevenLabsVoice   = "21m00Tcm4TlvDq8ikWAM" // Rachel
	elevenLabsModel   = "eleven_flash_v2_5"
	elevenLabsMP3     = "mp3_44100_128"
)

// ElevenLabsConfig configures the Eleven Labs synthesizer. Only APIKey is
// required. Zero Stability and Clarity fall back to 0.5 and 0.75.
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	Stability    float64
	Clarity      float64
}

func (c ElevenLabsConfig) validate() error {
	switch {
	case c.APIKey == "":
		return fmt.Errorf("eleven labs API key is required")
	case c.Stability < 0 || c.Stability > 1:
		return fmt.Errorf("stability must be between 0 and 1, got %g", c.Stability)
	case c.Clarity < 0 || c.Clarity > 1:
		return fmt.Errorf("clarity must be between 0 and 1, got %g", c.Clarity)
	case c.OutputFormat != "" && !strings.HasPrefix(c.OutputFormat, "mp3_"):
		// the gateways serve audio/mp3 only
		return fmt.Errorf("output format must be an mp3 variant, got %s", c.OutputFormat)
	}
	return nil
}

// ElevenLabsSynthesizer renders speech through the Eleven Labs streaming endpoint
type ElevenLabsSynthesizer struct {
	config ElevenLabsConfig
	client *http.Client
	logger *zap.Logger
}

var _ repositories.SpeechSynthesizer = (*ElevenLabsSynthesizer)(nil)

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	LanguageCode  string                  `json:"language_code,omitempty"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

// NewElevenLabsSynthesizer validates config and fills in its defaults
func NewElevenLabsSynthesizer(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsSynthesizer, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	config.APIBaseURL = strings.TrimRight(orDefault(config.APIBaseURL, elevenLabsBaseURL), "/")
	config.VoiceID = orDefault(config.VoiceID, elevenLabsVoice)
	config.ModelID = orDefault(config.ModelID, elevenLabsModel)
	config.OutputFormat = orDefault(config.OutputFormat, elevenLabsMP3)
	if config.Stability == 0 {
		config.Stability = 0.5
	}
	if config.Clarity == 0 {
		config.Clarity = 0.75
	}

	logger.Info("Eleven Labs synthesizer ready",
		zap.String("voiceID", config.VoiceID),
		zap.String("modelID", config.ModelID),
		zap.String("outputFormat", config.OutputFormat))

	return &ElevenLabsSynthesizer{
		config: config,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// supportsLanguageCode reports whether model accepts language_code. Only the
// v2.5 turbo and flash models enforce a language; others reject the field.
func supportsLanguageCode(model string) bool {
	return strings.HasSuffix(model, "_v2_5")
}

// Synthesize streams the spoken rendition of text into out
func (e *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string, language string, out io.Writer) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text cannot be empty")
	}

	e.logger.Info("Converting text to speech",
		zap.Int("textLength", len(text)),
		zap.String("language", language))

	request := elevenLabsRequest{
		Text:    text,
		ModelID: e.config.ModelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       e.config.Stability,
			SimilarityBoost: e.config.Clarity,
			UseSpeakerBoost: true,
		},
	}
	if supportsLanguageCode(e.config.ModelID) {
		request.LanguageCode = language
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s&enable_logging=false",
		e.config.APIBaseURL, e.config.VoiceID, e.config.OutputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.config.APIKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("speech synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("eleven labs API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(errorBody)))
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to stream synthesized audio: %w", err)
	}
	if written == 0 {
		return fmt.Errorf("eleven labs API returned no audio")
	}

	e.logger.Info("Finished streaming audio data", zap.Int64("totalBytes", written))
	return nil
}
