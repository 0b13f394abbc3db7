package model

// LanguageInfo holds the code and display name of a supported content language.
type LanguageInfo struct {
	Code   string `json:"code"`   // e.g., "vi"
	Name   string `json:"name"`   // e.g., "Vietnamese"
	Locale string `json:"locale"` // e.g., "vi-VN"
}

// SupportedLanguages lists the languages the guide ships translations for.
var SupportedLanguages = []LanguageInfo{
	{Code: "vi", Name: "Vietnamese", Locale: "vi-VN"},
	{Code: "en", Name: "English", Locale: "en-US"},
}

// LocaleFor maps a language code to its default TTS locale.
// Unknown codes are returned unchanged.
func LocaleFor(code string) string {
	code = NormalizeLanguage(code)
	for _, l := range SupportedLanguages {
		if l.Code == code {
			return l.Locale
		}
	}
	return code
}
