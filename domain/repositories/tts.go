package repositories

import (
	"context"
	"io"
)

// SpeechSynthesizer abstracts text-to-speech services. Implementations write
// mp3 audio to out; the caller owns the resource behind it.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, language string, out io.Writer) error
}
