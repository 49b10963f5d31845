package entities

// DefaultLanguage is used when a request omits a language field
const DefaultLanguage = "en"

// Language is an entry in the catalogue offered to clients. Codes are not
// validated against it; leaves decide what they accept.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SupportedLanguages is the catalogue served on /languages
var SupportedLanguages = []Language{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "it", Name: "Italian"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ar", Name: "Arabic"},
	{Code: "hi", Name: "Hindi"},
}
