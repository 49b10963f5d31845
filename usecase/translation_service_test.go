package usecase

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/lingua/adapters/tempfs"
	"github.com/satriahrh/lingua/domain/entities"
	"github.com/satriahrh/lingua/domain/repositories"
	"github.com/satriahrh/lingua/domain/repositories/mocks"
	"github.com/satriahrh/lingua/internal/pipeline"
)

// recordingStore keeps every scope it opens so tests can inspect release counts
type recordingStore struct {
	*tempfs.Store
	scopes []*tempfs.Scope
}

func (r *recordingStore) Open(ctx context.Context) (repositories.AudioScope, error) {
	scope, err := r.Store.Open(ctx)
	if err != nil {
		return nil, err
	}
	r.scopes = append(r.scopes, scope.(*tempfs.Scope))
	return scope, nil
}

type fixture struct {
	transcriber *mocks.Transcriber
	translator  *mocks.Translator
	synthesizer *mocks.Synthesizer
	store       *recordingStore
	service     *TranslationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store, err := tempfs.NewStore(tempfs.Config{Root: t.TempDir()}, logger)
	require.NoError(t, err)

	f := &fixture{
		transcriber: &mocks.Transcriber{},
		translator:  &mocks.Translator{},
		synthesizer: &mocks.Synthesizer{},
		store:       &recordingStore{Store: store},
	}
	f.service = NewTranslationService(f.transcriber, f.translator, f.synthesizer, f.store, pipeline.NewRunner(logger), logger)
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.transcriber.AssertExpectations(t)
	f.translator.AssertExpectations(t)
	f.synthesizer.AssertExpectations(t)
}

// assertAllReleased checks that each scope released what it created and
// left nothing on disk
func (f *fixture) assertAllReleased(t *testing.T) {
	for _, scope := range f.store.scopes {
		created, released := scope.Stats()
		assert.Equal(t, created, released, "scope %s", scope.ID())
		assert.NoDirExists(t, scope.Dir())
	}
	entries, err := os.ReadDir(f.store.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func collect(result *entities.OperationResult) func(entities.OperationResult) error {
	return func(r entities.OperationResult) error {
		*result = r
		return nil
	}
}

func TestRunTextToText(t *testing.T) {
	f := newFixture(t)
	f.translator.On("Translate", mock.Anything, "hello", "fr").Return("bonjour", nil).Twice()

	first := f.service.RunTextToText(context.Background(), "hello", "fr")
	second := f.service.RunTextToText(context.Background(), "hello", "fr")

	assert.True(t, first.Succeeded())
	assert.Equal(t, "bonjour", first.Text())
	assert.Equal(t, first, second)
	f.assertExpectations(t)
}

func TestRunTextToText_ForwardsFailureVerbatim(t *testing.T) {
	f := newFixture(t)
	f.translator.On("Translate", mock.Anything, "hello", "xx").Return("", errors.New("'xx' is an invalid target language")).Once()

	result := f.service.RunTextToText(context.Background(), "hello", "xx")

	require.False(t, result.Succeeded())
	assert.Empty(t, result.Text())
	assert.Equal(t, entities.StageTranslation, result.Failure().Stage)
	assert.Equal(t, "'xx' is an invalid target language", result.Failure().Message)
}

func TestRun_MissingInputs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scope, err := f.store.Open(ctx)
	require.NoError(t, err)
	defer scope.Close()

	tests := []struct {
		name  string
		run   func() entities.OperationResult
		stage entities.Stage
	}{
		{"speech-to-text without audio", func() entities.OperationResult {
			return f.service.RunSpeechToText(ctx, nil, "en", "fr")
		}, entities.StageTranscription},
		{"speech-to-speech without audio", func() entities.OperationResult {
			return f.service.RunSpeechToSpeech(ctx, scope, nil, "en", "fr")
		}, entities.StageTranscription},
		{"speech-to-speech without scope", func() entities.OperationResult {
			audio, err := scope.Import(strings.NewReader("RIFF"), "clip.wav")
			require.NoError(t, err)
			return f.service.RunSpeechToSpeech(ctx, nil, audio, "en", "fr")
		}, entities.StageSynthesis},
		{"text-to-speech without scope", func() entities.OperationResult {
			return f.service.RunTextToSpeech(ctx, nil, "hello", "fr")
		}, entities.StageSynthesis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result entities.OperationResult
			require.NotPanics(t, func() { result = tt.run() })
			require.False(t, result.Succeeded())
			assert.Equal(t, tt.stage, result.Failure().Stage)
			assert.NotEmpty(t, result.Failure().Message)
		})
	}
	f.assertExpectations(t)
}

func TestExecute_TextToSpeech(t *testing.T) {
	f := newFixture(t)
	f.translator.On("Translate", mock.Anything, "hello", "ja").Return("こんにちは", nil).Once()
	f.synthesizer.On("Synthesize", mock.Anything, "こんにちは", "ja", mock.Anything).
		Run(mocks.WriteAudio([]byte("mp3-bytes"))).Return(nil).Once()

	var streamed string
	var output *entities.AudioResource
	err := f.service.Execute(context.Background(), TranslationRequest{
		Mode:           entities.ModeTextToSpeech,
		Text:           "hello",
		TargetLanguage: "ja",
	}, func(r entities.OperationResult) error {
		require.True(t, r.HasAudio())
		output = r.Audio()
		data, err := os.ReadFile(output.Path)
		streamed = string(data)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", streamed)
	assert.Equal(t, entities.DefaultAudioContentType, output.ContentType)
	assert.Equal(t, entities.AudioStateReleased, output.State())
	f.assertExpectations(t)
	f.assertAllReleased(t)
}

func TestExecute_SpeechToSpeech(t *testing.T) {
	f := newFixture(t)
	f.transcriber.On("Transcribe", mock.Anything, mock.AnythingOfType("*entities.AudioResource"), "en").Return("hello", nil).Once()
	f.translator.On("Translate", mock.Anything, "hello", "ja").Return("こんにちは", nil).Once()
	f.synthesizer.On("Synthesize", mock.Anything, "こんにちは", "ja", mock.Anything).
		Run(mocks.WriteAudio([]byte("R"))).Return(nil).Once()

	var streamed string
	err := f.service.Execute(context.Background(), TranslationRequest{
		Mode:           entities.ModeSpeechToSpeech,
		Audio:          strings.NewReader("webm-bytes"),
		AudioFilename:  "audio.webm",
		SourceLanguage: "en",
		TargetLanguage: "ja",
	}, func(r entities.OperationResult) error {
		data, err := os.ReadFile(r.Audio().Path)
		streamed = string(data)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, "R", streamed)
	f.assertExpectations(t)
	f.assertAllReleased(t)

	created, released := f.store.scopes[0].Stats()
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, released)
}

func TestExecute_SpeechToTextReadsUpload(t *testing.T) {
	f := newFixture(t)
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything, "es").
		Return("hola", nil).
		Run(func(args mock.Arguments) {
			audio := args.Get(1).(*entities.AudioResource)
			data, err := os.ReadFile(audio.Path)
			require.NoError(t, err)
			assert.Equal(t, "upload", string(data))
			assert.Equal(t, ".wav", audio.Extension)
			assert.Equal(t, entities.AudioStateInUse, audio.State())
		}).Once()
	f.translator.On("Translate", mock.Anything, "hola", "en").Return("hello", nil).Once()

	var result entities.OperationResult
	err := f.service.Execute(context.Background(), TranslationRequest{
		Mode:           entities.ModeSpeechToText,
		Audio:          strings.NewReader("upload"),
		AudioFilename:  "clip.wav",
		SourceLanguage: "es",
		TargetLanguage: "en",
	}, collect(&result))

	require.NoError(t, err)
	assert.Equal(t, "hello", result.Text())
	f.assertExpectations(t)
	f.assertAllReleased(t)
}

func TestExecute_ShortCircuitsOnEveryStage(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fixture)
		stage entities.Stage
	}{
		{
			name: "transcription",
			setup: func(f *fixture) {
				f.transcriber.On("Transcribe", mock.Anything, mock.Anything, "en").Return("", errors.New("audio too short")).Once()
			},
			stage: entities.StageTranscription,
		},
		{
			name: "translation",
			setup: func(f *fixture) {
				f.transcriber.On("Transcribe", mock.Anything, mock.Anything, "en").Return("hello", nil).Once()
				f.translator.On("Translate", mock.Anything, "hello", "ja").Return("", errors.New("audio too short")).Once()
			},
			stage: entities.StageTranslation,
		},
		{
			name: "synthesis",
			setup: func(f *fixture) {
				f.transcriber.On("Transcribe", mock.Anything, mock.Anything, "en").Return("hello", nil).Once()
				f.translator.On("Translate", mock.Anything, "hello", "ja").Return("こんにちは", nil).Once()
				f.synthesizer.On("Synthesize", mock.Anything, "こんにちは", "ja", mock.Anything).
					Run(mocks.WriteAudio([]byte("partial"))).Return(errors.New("audio too short")).Once()
			},
			stage: entities.StageSynthesis,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.setup(f)

			var result entities.OperationResult
			err := f.service.Execute(context.Background(), TranslationRequest{
				Mode:           entities.ModeSpeechToSpeech,
				Audio:          strings.NewReader("x"),
				AudioFilename:  "a.webm",
				SourceLanguage: "en",
				TargetLanguage: "ja",
			}, collect(&result))

			require.NoError(t, err)
			require.False(t, result.Succeeded())
			assert.Equal(t, tc.stage, result.Failure().Stage)
			assert.Equal(t, "audio too short", result.Failure().Message)
			assert.Nil(t, result.Audio())

			f.assertExpectations(t)
			if tc.stage == entities.StageTranscription {
				f.translator.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
			}
			if tc.stage != entities.StageSynthesis {
				f.synthesizer.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
			f.assertAllReleased(t)
		})
	}
}

func TestExecute_ReleasesOnLeafPanic(t *testing.T) {
	f := newFixture(t)
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything, "en").Return("hello", nil).Once()
	f.translator.On("Translate", mock.Anything, "hello", "fr").Return("bonjour", nil).Once()
	f.synthesizer.On("Synthesize", mock.Anything, "bonjour", "fr", mock.Anything).
		Run(func(mock.Arguments) { panic("synthesizer crashed") }).Return(nil).Once()

	var result entities.OperationResult
	err := f.service.Execute(context.Background(), TranslationRequest{
		Mode:           entities.ModeSpeechToSpeech,
		Audio:          strings.NewReader("x"),
		AudioFilename:  "a.ogg",
		SourceLanguage: "en",
		TargetLanguage: "fr",
	}, collect(&result))

	require.NoError(t, err)
	require.False(t, result.Succeeded())
	assert.Equal(t, entities.StageSynthesis, result.Failure().Stage)
	assert.Equal(t, "synthesizer crashed", result.Failure().Message)
	f.assertAllReleased(t)
}

func TestExecute_ConsumeErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	f.translator.On("Translate", mock.Anything, "hello", "it").Return("ciao", nil).Once()

	wantErr := errors.New("client went away")
	err := f.service.Execute(context.Background(), TranslationRequest{
		Mode:           entities.ModeTextToText,
		Text:           "hello",
		TargetLanguage: "it",
	}, func(entities.OperationResult) error { return wantErr })

	assert.ErrorIs(t, err, wantErr)
	f.assertAllReleased(t)
}

func TestExecute_RejectsUnknownMode(t *testing.T) {
	f := newFixture(t)

	err := f.service.Execute(context.Background(), TranslationRequest{Mode: "video"}, func(entities.OperationResult) error {
		t.Fatal("consume must not be called")
		return nil
	})

	assert.ErrorIs(t, err, entities.ErrUnknownMode)
	f.assertAllReleased(t)
}

func TestExecute_StoreFailure(t *testing.T) {
	logger := zap.NewNop()
	store, err := tempfs.NewStore(tempfs.Config{Root: t.TempDir()}, logger)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(store.Root()))

	translator := &mocks.Translator{}
	service := NewTranslationService(&mocks.Transcriber{}, translator, &mocks.Synthesizer{}, store, pipeline.NewRunner(logger), logger)

	err = service.Execute(context.Background(), TranslationRequest{Mode: entities.ModeTextToText, Text: "hi"}, func(entities.OperationResult) error {
		t.Fatal("consume must not be called")
		return nil
	})

	assert.ErrorContains(t, err, "failed to create audio workspace")
	translator.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
}
