package repositories

import "context"

// TextTranslator abstracts any translation provider
type TextTranslator interface {
	// Translate returns text rendered in targetLanguage
	Translate(ctx context.Context, text string, targetLanguage string) (string, error)
}
