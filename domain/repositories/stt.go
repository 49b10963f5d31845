package repositories

import (
	"context"

	"github.com/satriahrh/lingua/domain/entities"
)

// SpeechTranscriber abstracts speech recognition services
type SpeechTranscriber interface {
	// Transcribe reads the audio resource and returns the recognized text.
	// The resource is read-only to the transcriber.
	Transcribe(ctx context.Context, audio *entities.AudioResource, sourceLanguage string) (string, error)
}
