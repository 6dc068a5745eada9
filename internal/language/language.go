package language

import (
	"sort"
	"strings"
)

// Auto asks the endpoint to detect the source language.
const Auto = "auto"

// Language is one entry of the code table.
type Language struct {
	Code string
	Name string
}

// Languages maps lower-case codes accepted in configuration to languages.
// Regional variants are accepted as targets; endpoints ignore them as sources.
var Languages = map[string]Language{
	"ar":      {Code: "ar", Name: "Arabic"},
	"bg":      {Code: "bg", Name: "Bulgarian"},
	"cs":      {Code: "cs", Name: "Czech"},
	"da":      {Code: "da", Name: "Danish"},
	"de":      {Code: "de", Name: "German"},
	"el":      {Code: "el", Name: "Greek"},
	"en":      {Code: "en", Name: "English"},
	"en-gb":   {Code: "en-GB", Name: "English (British)"},
	"en-us":   {Code: "en-US", Name: "English (American)"},
	"es":      {Code: "es", Name: "Spanish"},
	"et":      {Code: "et", Name: "Estonian"},
	"fi":      {Code: "fi", Name: "Finnish"},
	"fr":      {Code: "fr", Name: "French"},
	"hu":      {Code: "hu", Name: "Hungarian"},
	"id":      {Code: "id", Name: "Indonesian"},
	"it":      {Code: "it", Name: "Italian"},
	"ja":      {Code: "ja", Name: "Japanese"},
	"ko":      {Code: "ko", Name: "Korean"},
	"lt":      {Code: "lt", Name: "Lithuanian"},
	"lv":      {Code: "lv", Name: "Latvian"},
	"nb":      {Code: "nb", Name: "Norwegian (Bokmål)"},
	"nl":      {Code: "nl", Name: "Dutch"},
	"pl":      {Code: "pl", Name: "Polish"},
	"pt":      {Code: "pt", Name: "Portuguese"},
	"pt-br":   {Code: "pt-BR", Name: "Portuguese (Brazilian)"},
	"pt-pt":   {Code: "pt-PT", Name: "Portuguese (European)"},
	"ro":      {Code: "ro", Name: "Romanian"},
	"ru":      {Code: "ru", Name: "Russian"},
	"sk":      {Code: "sk", Name: "Slovak"},
	"sl":      {Code: "sl", Name: "Slovenian"},
	"sv":      {Code: "sv", Name: "Swedish"},
	"tr":      {Code: "tr", Name: "Turkish"},
	"uk":      {Code: "uk", Name: "Ukrainian"},
	"zh":      {Code: "zh", Name: "Chinese"},
	"zh-hans": {Code: "zh-Hans", Name: "Chinese (Simplified)"},
	"zh-hant": {Code: "zh-Hant", Name: "Chinese (Traditional)"},
}

// GetLanguage looks a code up case-insensitively.
func GetLanguage(code string) (Language, bool) {
	lang, ok := Languages[strings.ToLower(strings.TrimSpace(code))]
	return lang, ok
}

// IsAuto reports whether code requests source detection.
func IsAuto(code string) bool {
	return strings.EqualFold(strings.TrimSpace(code), Auto)
}

// DisplayName returns the language name, or the code itself when unknown.
func DisplayName(code string) string {
	if IsAuto(code) {
		return "the detected source language"
	}
	if lang, ok := GetLanguage(code); ok {
		return lang.Name
	}
	return strings.TrimSpace(code)
}

// LanguageEntry represents a map entry for listing.
type LanguageEntry struct {
	ID string // The map key
	Language
}

// GetSupportedLanguages returns a list of supported languages sorted by Name and then ID.
func GetSupportedLanguages() []LanguageEntry {
	entries := make([]LanguageEntry, 0, len(Languages))
	for k, v := range Languages {
		entries = append(entries, LanguageEntry{ID: k, Language: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}
