package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/entities"
	"github.com/satriahrh/lingua/domain/repositories"
	"github.com/satriahrh/lingua/internal/pipeline"
)

// TranslationRequest is a validated request for one pipeline invocation
type TranslationRequest struct {
	Mode           entities.Mode
	Text           string
	Audio          io.Reader
	AudioFilename  string
	SourceLanguage string
	TargetLanguage string
}

// Failure messages for calls made without their required inputs
const (
	errNoAudio = "no audio to transcribe"
	errNoScope = "no audio workspace for synthesis"
)

// TranslationService composes transcription, translation and synthesis into
// the four translation modes
type TranslationService struct {
	transcriber repositories.SpeechTranscriber
	translator  repositories.TextTranslator
	synthesizer repositories.SpeechSynthesizer
	store       repositories.AudioStore
	runner      *pipeline.Runner
	logger      *zap.Logger
}

// NewTranslationService creates a new translation service
func NewTranslationService(
	transcriber repositories.SpeechTranscriber,
	translator repositories.TextTranslator,
	synthesizer repositories.SpeechSynthesizer,
	store repositories.AudioStore,
	runner *pipeline.Runner,
	logger *zap.Logger,
) *TranslationService {
	return &TranslationService{
		transcriber: transcriber,
		translator:  translator,
		synthesizer: synthesizer,
		store:       store,
		runner:      runner,
		logger:      logger,
	}
}

// RunTextToText translates text once
func (s *TranslationService) RunTextToText(ctx context.Context, text, targetLanguage string) entities.OperationResult {
	steps := []pipeline.Step{
		NewTranslationStep(s.translator, targetLanguage),
	}
	return s.run(ctx, uuid.NewString(), entities.ModeTextToText, steps, pipeline.Payload{Text: text})
}

// RunTextToSpeech translates text and synthesizes the translation. The
// returned audio belongs to scope.
func (s *TranslationService) RunTextToSpeech(ctx context.Context, scope repositories.AudioScope, text, targetLanguage string) entities.OperationResult {
	if scope == nil {
		return entities.FailedResult(entities.StageSynthesis, errNoScope)
	}
	steps := []pipeline.Step{
		NewTranslationStep(s.translator, targetLanguage),
		NewSynthesisStep(s.synthesizer, scope, targetLanguage, s.logger),
	}
	return s.run(ctx, scope.ID(), entities.ModeTextToSpeech, steps, pipeline.Payload{Text: text})
}

// RunSpeechToText transcribes audio and translates the transcript
func (s *TranslationService) RunSpeechToText(ctx context.Context, audio *entities.AudioResource, sourceLanguage, targetLanguage string) entities.OperationResult {
	if audio == nil {
		return entities.FailedResult(entities.StageTranscription, errNoAudio)
	}
	steps := []pipeline.Step{
		NewTranscriptionStep(s.transcriber, sourceLanguage),
		NewTranslationStep(s.translator, targetLanguage),
	}
	return s.run(ctx, audio.InvocationID, entities.ModeSpeechToText, steps, pipeline.Payload{Audio: audio})
}

// RunSpeechToSpeech transcribes, translates and synthesizes. The returned
// audio belongs to scope.
func (s *TranslationService) RunSpeechToSpeech(ctx context.Context, scope repositories.AudioScope, audio *entities.AudioResource, sourceLanguage, targetLanguage string) entities.OperationResult {
	if audio == nil {
		return entities.FailedResult(entities.StageTranscription, errNoAudio)
	}
	if scope == nil {
		return entities.FailedResult(entities.StageSynthesis, errNoScope)
	}
	steps := []pipeline.Step{
		NewTranscriptionStep(s.transcriber, sourceLanguage),
		NewTranslationStep(s.translator, targetLanguage),
		NewSynthesisStep(s.synthesizer, scope, targetLanguage, s.logger),
	}
	return s.run(ctx, scope.ID(), entities.ModeSpeechToSpeech, steps, pipeline.Payload{Audio: audio})
}

// Execute runs one invocation inside its own audio scope. consume receives
// the result while any audio it carries is still readable; the scope, and
// every resource in it, is released when Execute returns. The returned error
// is either a resource error or whatever consume returned. Stage failures are
// delivered to consume as data.
func (s *TranslationService) Execute(ctx context.Context, req TranslationRequest, consume func(entities.OperationResult) error) error {
	scope, err := s.store.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to create audio workspace: %w", err)
	}
	defer func() {
		if cerr := scope.Close(); cerr != nil {
			s.logger.Warn("Failed to clean up audio workspace",
				zap.String("invocationID", scope.ID()),
				zap.Error(cerr))
		}
	}()

	s.logger.Info("Processing translation",
		zap.String("invocationID", scope.ID()),
		zap.String("mode", string(req.Mode)),
		zap.String("sourceLanguage", req.SourceLanguage),
		zap.String("targetLanguage", req.TargetLanguage))

	var result entities.OperationResult
	switch req.Mode {
	case entities.ModeTextToText:
		steps := []pipeline.Step{NewTranslationStep(s.translator, req.TargetLanguage)}
		result = s.run(ctx, scope.ID(), req.Mode, steps, pipeline.Payload{Text: req.Text})
	case entities.ModeTextToSpeech:
		result = s.RunTextToSpeech(ctx, scope, req.Text, req.TargetLanguage)
	case entities.ModeSpeechToText, entities.ModeSpeechToSpeech:
		if req.Audio == nil {
			return fmt.Errorf("mode %s requires audio", req.Mode)
		}
		audio, err := scope.Import(req.Audio, req.AudioFilename)
		if err != nil {
			return fmt.Errorf("failed to store uploaded audio: %w", err)
		}
		if req.Mode == entities.ModeSpeechToText {
			result = s.RunSpeechToText(ctx, audio, req.SourceLanguage, req.TargetLanguage)
		} else {
			result = s.RunSpeechToSpeech(ctx, scope, audio, req.SourceLanguage, req.TargetLanguage)
		}
	default:
		return fmt.Errorf("%w: %q", entities.ErrUnknownMode, req.Mode)
	}

	return consume(result)
}

func (s *TranslationService) run(ctx context.Context, id string, mode entities.Mode, steps []pipeline.Step, in pipeline.Payload) entities.OperationResult {
	exec := s.runner.Run(ctx, id, mode, steps, in)
	return exec.Result()
}
