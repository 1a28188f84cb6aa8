// Package i18n holds the bot's user-facing message table.
//
// Every message is looked up by key and locale. Missing translations fall
// back to English, and a missing key renders as the key itself so a typo is
// visible in chat instead of producing an empty reply.
package i18n

import (
	"fmt"
	"strings"
)

// Locale is one of the supported interface languages.
type Locale string

const (
	EN Locale = "en"
	DE Locale = "de"
	FA Locale = "fa"
)

// Fallback is used when a message has no translation for the requested locale.
const Fallback = EN

// Locales returns the supported locales. The first one is the default for
// new sessions.
func Locales() []Locale {
	return []Locale{EN, DE, FA}
}

// ParseLocale accepts a locale code in any case.
func ParseLocale(s string) (Locale, bool) {
	l := Locale(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Locales() {
		if l == known {
			return l, true
		}
	}
	return "", false
}

// OCRLanguage is the tesseract language code matching the locale.
func (l Locale) OCRLanguage() string {
	switch l {
	case DE:
		return "deu"
	case FA:
		return "fas"
	default:
		return "eng"
	}
}

// T renders the message for key in locale l. Args are applied with
// fmt.Sprintf semantics.
func T(l Locale, key string, args ...any) string {
	variants, ok := messages[key]
	if !ok {
		return key
	}
	format, ok := variants[l]
	if !ok {
		format = variants[Fallback]
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Has reports whether key exists in the table.
func Has(key string) bool {
	_, ok := messages[key]
	return ok
}
