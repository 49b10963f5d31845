package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/entities"
	"github.com/satriahrh/lingua/domain/repositories"
	"github.com/satriahrh/lingua/internal/pipeline"
)

// TranscriptionStep turns the incoming audio resource into text
type TranscriptionStep struct {
	transcriber    repositories.SpeechTranscriber
	sourceLanguage string
}

func NewTranscriptionStep(transcriber repositories.SpeechTranscriber, sourceLanguage string) *TranscriptionStep {
	return &TranscriptionStep{transcriber: transcriber, sourceLanguage: sourceLanguage}
}

func (s *TranscriptionStep) Stage() entities.Stage {
	return entities.StageTranscription
}

func (s *TranscriptionStep) Execute(ctx context.Context, in pipeline.Payload) (pipeline.Payload, error) {
	if in.Audio == nil {
		return pipeline.Payload{}, errors.New(errNoAudio)
	}
	if err := in.Audio.Acquire(); err != nil {
		return pipeline.Payload{}, err
	}

	text, err := s.transcriber.Transcribe(ctx, in.Audio, s.sourceLanguage)
	if err != nil {
		return pipeline.Payload{}, err
	}
	return pipeline.Payload{Text: text}, nil
}

// TranslationStep translates the text payload into the target language
type TranslationStep struct {
	translator     repositories.TextTranslator
	targetLanguage string
}

func NewTranslationStep(translator repositories.TextTranslator, targetLanguage string) *TranslationStep {
	return &TranslationStep{translator: translator, targetLanguage: targetLanguage}
}

func (s *TranslationStep) Stage() entities.Stage {
	return entities.StageTranslation
}

func (s *TranslationStep) Execute(ctx context.Context, in pipeline.Payload) (pipeline.Payload, error) {
	translated, err := s.translator.Translate(ctx, in.Text, s.targetLanguage)
	if err != nil {
		return pipeline.Payload{}, err
	}
	return pipeline.Payload{Text: translated}, nil
}

// SynthesisStep renders the text payload as mp3 into a resource allocated
// from the invocation scope
type SynthesisStep struct {
	synthesizer repositories.SpeechSynthesizer
	scope       repositories.AudioScope
	language    string
	logger      *zap.Logger
}

func NewSynthesisStep(synthesizer repositories.SpeechSynthesizer, scope repositories.AudioScope, language string, logger *zap.Logger) *SynthesisStep {
	return &SynthesisStep{
		synthesizer: synthesizer,
		scope:       scope,
		language:    language,
		logger:      logger,
	}
}

func (s *SynthesisStep) Stage() entities.Stage {
	return entities.StageSynthesis
}

func (s *SynthesisStep) Execute(ctx context.Context, in pipeline.Payload) (out pipeline.Payload, err error) {
	audio, err := s.scope.Allocate(".mp3")
	if err != nil {
		return pipeline.Payload{}, fmt.Errorf("failed to allocate output audio: %w", err)
	}
	defer func() {
		// A partially written file is useless to the caller.
		if err != nil {
			if rerr := audio.Release(); rerr != nil {
				s.logger.Warn("Failed to release output audio", zap.String("resourceID", audio.ID), zap.Error(rerr))
			}
		}
	}()

	f, err := audio.Create()
	if err != nil {
		return pipeline.Payload{}, fmt.Errorf("failed to create output audio: %w", err)
	}

	if err := s.synthesizer.Synthesize(ctx, in.Text, s.language, f); err != nil {
		f.Close()
		return pipeline.Payload{}, err
	}
	if err := f.Close(); err != nil {
		return pipeline.Payload{}, fmt.Errorf("failed to finish output audio: %w", err)
	}

	audio.ContentType = entities.DefaultAudioContentType
	return pipeline.Payload{Audio: audio}, nil
}
