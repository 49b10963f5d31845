package mymemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/repositories"
)

const (
	defaultAPIBaseURL     = "https://api.mymemory.translated.net"
	defaultSourceLanguage = "en"
	defaultTimeout        = 15 * time.Second
)

// Config holds configuration for the MyMemory translator
// Optional fields with defaults:
// - APIBaseURL: (default: "https://api.mymemory.translated.net")
// - SourceLanguage: language of incoming text (default: "en")
// - Email: raises the anonymous daily quota when set
// - Timeout: per request timeout (default: 15s)
type Config struct {
	APIBaseURL     string
	SourceLanguage string
	Email          string
	Timeout        time.Duration
}

// Translator implements TextTranslator using the MyMemory REST API
type Translator struct {
	apiBaseURL     string
	sourceLanguage string
	email          string
	client         *http.Client
	logger         *zap.Logger
}

var _ repositories.TextTranslator = (*Translator)(nil)

type translateResponse struct {
	ResponseData struct {
		TranslatedText string  `json:"translatedText"`
		Match          float64 `json:"match"`
	} `json:"responseData"`
	ResponseStatus  json.RawMessage `json:"responseStatus"`
	ResponseDetails string          `json:"responseDetails"`
}

// ValidateConfig validates the Config
func ValidateConfig(config Config) error {
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	if config.APIBaseURL != "" {
		if _, err := url.ParseRequestURI(config.APIBaseURL); err != nil {
			return fmt.Errorf("invalid API base URL %q: %w", config.APIBaseURL, err)
		}
	}
	return nil
}

// NewTranslator creates a new MyMemory translator
func NewTranslator(config Config, logger *zap.Logger) (*Translator, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := strings.TrimRight(config.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	sourceLanguage := config.SourceLanguage
	if sourceLanguage == "" {
		sourceLanguage = defaultSourceLanguage
		logger.Info("Using default source language", zap.String("sourceLanguage", sourceLanguage))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Translator{
		apiBaseURL:     apiBaseURL,
		sourceLanguage: sourceLanguage,
		email:          config.Email,
		client:         &http.Client{Timeout: timeout},
		logger:         logger,
	}, nil
}

// Translate translates text from the configured source language into targetLanguage
func (t *Translator) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	if strings.EqualFold(t.sourceLanguage, targetLanguage) {
		return text, nil
	}

	query := url.Values{}
	query.Set("q", text)
	query.Set("langpair", t.sourceLanguage+"|"+targetLanguage)
	if t.email != "" {
		query.Set("de", t.email)
	}

	endpoint := fmt.Sprintf("%s/get?%s", t.apiBaseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	t.logger.Debug("Sending request to MyMemory",
		zap.String("langpair", t.sourceLanguage+"|"+targetLanguage),
		zap.Int("textLength", len(text)))

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("translation API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode translation response: %w", err)
	}

	// responseStatus comes back as a number on success and sometimes as a
	// quoted string on errors.
	status := strings.Trim(string(payload.ResponseStatus), `"`)
	if status != "200" {
		details := payload.ResponseDetails
		if details == "" {
			details = payload.ResponseData.TranslatedText
		}
		return "", errors.New(details)
	}

	translated := payload.ResponseData.TranslatedText
	if translated == "" {
		return "", errors.New("translation API returned empty text")
	}
	return translated, nil
}
