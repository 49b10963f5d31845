package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/entities"
	"github.com/satriahrh/lingua/domain/repositories"
)

const defaultOpusSampleRate = 48000

// GoogleConfig holds configuration for the Google Cloud transcriber.
// Credentials come from Application Default Credentials.
type GoogleConfig struct {
	// SampleRate is sent for Opus containers, which carry no usable header.
	// Defaults to 48000.
	SampleRate int
	Model      string
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// GoogleTranscriber implements SpeechTranscriber for Google Cloud
type GoogleTranscriber struct {
	client     *speech.Client
	recognize  recognizeFunc
	sampleRate int
	model      string
	logger     *zap.Logger
}

var _ repositories.SpeechTranscriber = (*GoogleTranscriber)(nil)

// NewGoogleTranscriber creates the speech client once for the process lifetime
func NewGoogleTranscriber(ctx context.Context, config GoogleConfig, logger *zap.Logger) (*GoogleTranscriber, error) {
	if config.SampleRate < 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	g := newGoogleTranscriber(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return client.Recognize(ctx, req)
	}, config, logger)
	g.client = client
	return g, nil
}

func newGoogleTranscriber(recognize recognizeFunc, config GoogleConfig, logger *zap.Logger) *GoogleTranscriber {
	sampleRate := config.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultOpusSampleRate
		logger.Info("Using default sample rate", zap.Int("sampleRate", sampleRate))
	}
	return &GoogleTranscriber{
		recognize:  recognize,
		sampleRate: sampleRate,
		model:      config.Model,
		logger:     logger,
	}
}

// Transcribe converts the audio resource to text using synchronous recognition
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio *entities.AudioResource, sourceLanguage string) (string, error) {
	encoding, err := encodingForExtension(audio.Extension)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(audio.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("no audio data received")
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:     encoding,
		LanguageCode: sourceLanguage,
		Model:        g.model,
	}
	if encoding == speechpb.RecognitionConfig_OGG_OPUS || encoding == speechpb.RecognitionConfig_WEBM_OPUS {
		recognitionConfig.SampleRateHertz = int32(g.sampleRate)
	}

	resp, err := g.recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		return "", fmt.Errorf("speech recognition failed: %w", err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		if alternatives := result.GetAlternatives(); len(alternatives) > 0 {
			parts = append(parts, strings.TrimSpace(alternatives[0].GetTranscript()))
		}
	}

	transcript := strings.Join(parts, " ")
	if transcript == "" {
		return "", errors.New("no speech detected in audio")
	}

	g.logger.Info("Transcription completed",
		zap.String("resourceID", audio.ID),
		zap.Int("results", len(parts)))
	return transcript, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleTranscriber) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// encodingForExtension maps an upload extension to a Google Speech API encoding.
// WAV and FLAC headers are read by the service, so no sample rate is needed.
func encodingForExtension(ext string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToLower(ext) {
	case "":
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, nil
	case ".wav":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case ".flac":
		return speechpb.RecognitionConfig_FLAC, nil
	case ".ogg", ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case ".webm":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	case ".amr":
		return speechpb.RecognitionConfig_AMR, nil
	case ".awb":
		return speechpb.RecognitionConfig_AMR_WB, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio format: %s", ext)
	}
}
