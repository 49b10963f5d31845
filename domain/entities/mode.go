package entities

import (
	"errors"
	"fmt"
)

// ErrUnknownMode is returned by ParseMode for any option outside the four pipelines
var ErrUnknownMode = errors.New("unknown translation mode")

// Mode selects one of the four translation pipelines
type Mode string

const (
	ModeTextToText     Mode = "text-to-text"
	ModeTextToSpeech   Mode = "text-to-speech"
	ModeSpeechToText   Mode = "speech-to-text"
	ModeSpeechToSpeech Mode = "speech-to-speech"
)

// Stage identifies a single leaf invocation inside a pipeline
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageTranslation   Stage = "translation"
	StageSynthesis     Stage = "synthesis"
)

// Modes lists every supported mode in wire order
var Modes = []Mode{ModeTextToText, ModeTextToSpeech, ModeSpeechToText, ModeSpeechToSpeech}

// ParseMode converts a request option into a Mode
func ParseMode(option string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == option {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, option)
}

// RequiresText reports whether the mode takes text input
func (m Mode) RequiresText() bool {
	return m == ModeTextToText || m == ModeTextToSpeech
}

// RequiresAudio reports whether the mode takes an uploaded audio resource
func (m Mode) RequiresAudio() bool {
	return m == ModeSpeechToText || m == ModeSpeechToSpeech
}

// ProducesAudio reports whether the mode yields synthesized audio
func (m Mode) ProducesAudio() bool {
	return m == ModeTextToSpeech || m == ModeSpeechToSpeech
}

// Stages returns the fixed stage order for the mode
func (m Mode) Stages() []Stage {
	switch m {
	case ModeTextToText:
		return []Stage{StageTranslation}
	case ModeTextToSpeech:
		return []Stage{StageTranslation, StageSynthesis}
	case ModeSpeechToText:
		return []Stage{StageTranscription, StageTranslation}
	case ModeSpeechToSpeech:
		return []Stage{StageTranscription, StageTranslation, StageSynthesis}
	default:
		return nil
	}
}

func (m Mode) String() string {
	return string(m)
}
