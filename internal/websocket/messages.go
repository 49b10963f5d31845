package websocket

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/satriahrh/lingua/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Client to server message types
const (
	MessageTypeTranslateText  MessageType = "translate_text"
	MessageTypeTranslateStart MessageType = "translate_start"
	MessageTypeTranslateEnd   MessageType = "translate_end"
	MessageTypePing           MessageType = "ping"
)

// Server to client message types
const (
	MessageTypeTranslation   MessageType = "translation"
	MessageTypeSpeakingStart MessageType = "speaking_start"
	MessageTypeSpeakingEnd   MessageType = "speaking_end"
	MessageTypeUploadReady   MessageType = "upload_ready"
	MessageTypePong          MessageType = "pong"
	MessageTypeError         MessageType = "error"
)

// ClientMessage is any control frame sent by the client
type ClientMessage struct {
	Type           MessageType `json:"type"`
	Option         string      `json:"option,omitempty"`
	Text           *string     `json:"text,omitempty"`
	Language       string      `json:"language,omitempty"`
	SourceLanguage string      `json:"source_language,omitempty"`
	Filename       string      `json:"filename,omitempty"`
}

// TranslationMessage carries the text of a text producing mode
type TranslationMessage struct {
	Type           MessageType `json:"type"`
	TranslatedText string      `json:"translated_text"`
}

// SpeakingMessage brackets the binary frames of a synthesized answer
type SpeakingMessage struct {
	Type        MessageType `json:"type"`
	ContentType string      `json:"content_type,omitempty"`
	Bytes       int64       `json:"bytes,omitempty"`
}

// ErrorMessage reports a validation, stage or resource failure
type ErrorMessage struct {
	Type  MessageType    `json:"type"`
	Error string         `json:"error"`
	Stage entities.Stage `json:"stage,omitempty"`
}

// StatusMessage is a bare acknowledgement
type StatusMessage struct {
	Type MessageType `json:"type"`
}

// MessageValidator checks client control frames before they reach the pipeline
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses a control frame and applies per type rules. The
// returned message has language defaults filled in.
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch msg.Type {
	case MessageTypeTranslateText:
		mode, err := v.parseMode(msg.Option)
		if err != nil {
			return nil, err
		}
		if !mode.RequiresText() {
			return nil, fmt.Errorf("option %s requires audio, use translate_start", mode)
		}
		if msg.Text == nil {
			return nil, fmt.Errorf("Missing text parameter")
		}

	case MessageTypeTranslateStart:
		mode, err := v.parseMode(msg.Option)
		if err != nil {
			return nil, err
		}
		if !mode.RequiresAudio() {
			return nil, fmt.Errorf("option %s requires text, use translate_text", mode)
		}

	case MessageTypeTranslateEnd, MessageTypePing:

	case "":
		return nil, fmt.Errorf("message missing type field")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", msg.Type)
	}

	if strings.TrimSpace(msg.Language) == "" {
		msg.Language = entities.DefaultLanguage
	}
	if strings.TrimSpace(msg.SourceLanguage) == "" {
		msg.SourceLanguage = entities.DefaultLanguage
	}
	return &msg, nil
}

func (v *MessageValidator) parseMode(option string) (entities.Mode, error) {
	if option == "" {
		return "", fmt.Errorf("Missing option parameter")
	}
	mode, err := entities.ParseMode(option)
	if err != nil {
		return "", fmt.Errorf("Invalid option")
	}
	return mode, nil
}

// Mode returns the parsed option. Only valid after ValidateMessage.
func (m *ClientMessage) Mode() entities.Mode {
	mode, _ := entities.ParseMode(m.Option)
	return mode
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(message string, stage entities.Stage) *ErrorMessage {
	return &ErrorMessage{
		Type:  MessageTypeError,
		Error: message,
		Stage: stage,
	}
}
