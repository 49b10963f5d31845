package api

import "github.com/satriahrh/lingua/domain/entities"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// TranslateResponse is returned by text producing modes
type TranslateResponse struct {
	TranslatedText string `json:"translated_text"`
}

// HealthResponse reports liveness
type HealthResponse struct {
	Status string `json:"status"`
}

// LanguagesResponse lists the languages offered to clients
type LanguagesResponse struct {
	Languages []entities.Language `json:"languages"`
	Modes     []entities.Mode     `json:"modes"`
}

// Validation messages returned with 400
const (
	msgMissingOption = "Missing option parameter"
	msgInvalidOption = "Invalid option"
	msgMissingText   = "Missing text parameter"
	msgMissingAudio  = "Missing audio file"
	msgNoAudioFile   = "No selected audio file"
	msgInvalidForm   = "Invalid form data"
)

// Form fields accepted by POST /translate
const (
	fieldOption         = "option"
	fieldText           = "text"
	fieldLanguage       = "language"
	fieldSourceLanguage = "source_language"
	fieldAudio          = "audio"
)
