// Package localization picks values out of the localized text objects used
// by the Areena APIs.
package localization

// Three-letter codes for the subtitle languages that appear in Areena
// streams, keyed by the two-letter codes used on web pages.
var languageCodes = map[string]string{
	"fi": "fin",
	"sv": "swe",
	"se": "smi",
	"en": "eng",
}

// ThreeLetterLanguage maps a two-letter language code to the corresponding
// three-letter code. Unknown codes are returned unchanged.
func ThreeLetterLanguage(lang string) string {
	if code, ok := languageCodes[lang]; ok {
		return code
	}
	return lang
}

var twoLetterCodes = map[string]string{
	"fin": "fi",
	"swe": "sv",
	"sme": "se",
}

// TwoLetterLanguage maps a three-letter language code to the two-letter
// code used in stream metadata. Returns "" for unknown codes.
func TwoLetterLanguage(lang string) string {
	return twoLetterCodes[lang]
}

// TranslationChooser selects the best translation from a localized text
// object, preferring the requested language.
type TranslationChooser struct {
	preferred string
}

// NewTranslationChooser returns a chooser that prefers the given
// three-letter language code ("fin" or "swe").
func NewTranslationChooser(language string) *TranslationChooser {
	if language != "swe" {
		language = "fin"
	}
	return &TranslationChooser{preferred: language}
}

// Language returns the preferred three-letter language code.
func (c *TranslationChooser) Language() string {
	return c.preferred
}

// Choose picks a translation from a localized object. The preferred
// language wins, then Finnish, then Swedish, then any remaining value.
// The preview API keys translations by three-letter codes and the
// programs catalog by two-letter codes, so both spellings are accepted.
func (c *TranslationChooser) Choose(translations map[string]string) string {
	if translations == nil {
		return ""
	}
	if v := translations[c.preferred]; v != "" {
		return v
	}
	if v := translations[TwoLetterLanguage(c.preferred)]; v != "" {
		return v
	}
	for _, lang := range []string{"fin", "fi", "swe", "sv"} {
		if v := translations[lang]; v != "" {
			return v
		}
	}
	for _, v := range translations {
		if v != "" {
			return v
		}
	}
	return ""
}
