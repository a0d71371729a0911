package domain

import "sort"

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// DefaultLanguage is used when a session or participant declares none.
const DefaultLanguage = "en"

var supportedLanguages = map[string]Language{
	"en":  {Code: "en", Name: "English", Flag: "🇺🇸"},
	"es":  {Code: "es", Name: "Spanish", Flag: "🇪🇸"},
	"fr":  {Code: "fr", Name: "French", Flag: "🇫🇷"},
	"de":  {Code: "de", Name: "German", Flag: "🇩🇪"},
	"ja":  {Code: "ja", Name: "Japanese", Flag: "🇯🇵"},
	"ar":  {Code: "ar", Name: "Arabic", Flag: "🇸🇦"},
	"cmn": {Code: "cmn", Name: "Chinese", Flag: "🇨🇳"},
	"pt":  {Code: "pt", Name: "Portuguese", Flag: "🇵🇹"},
	"ru":  {Code: "ru", Name: "Russian", Flag: "🇷🇺"},
	"ko":  {Code: "ko", Name: "Korean", Flag: "🇰🇷"},
}

func IsSupportedLanguage(code string) bool {
	_, ok := supportedLanguages[code]
	return ok
}

// SupportedLanguages returns the caption languages sorted by code.
func SupportedLanguages() []Language {
	out := make([]Language, 0, len(supportedLanguages))
	for _, l := range supportedLanguages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
