// Package mocks provides testify mocks of the leaf interfaces.
package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/satriahrh/lingua/domain/entities"
	"github.com/satriahrh/lingua/domain/repositories"
)

var (
	_ repositories.TextTranslator    = (*Translator)(nil)
	_ repositories.SpeechTranscriber = (*Transcriber)(nil)
	_ repositories.SpeechSynthesizer = (*Synthesizer)(nil)
)

type Translator struct {
	mock.Mock
}

func (m *Translator) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	args := m.Called(ctx, text, targetLanguage)
	return args.String(0), args.Error(1)
}

type Transcriber struct {
	mock.Mock
}

func (m *Transcriber) Transcribe(ctx context.Context, audio *entities.AudioResource, sourceLanguage string) (string, error) {
	args := m.Called(ctx, audio, sourceLanguage)
	return args.String(0), args.Error(1)
}

type Synthesizer struct {
	mock.Mock
}

func (m *Synthesizer) Synthesize(ctx context.Context, text string, language string, out io.Writer) error {
	args := m.Called(ctx, text, language, out)
	return args.Error(0)
}

// WriteAudio returns a Run func that writes data to the synthesizer output
func WriteAudio(data []byte) func(mock.Arguments) {
	return func(args mock.Arguments) {
		args.Get(3).(io.Writer).Write(data)
	}
}
