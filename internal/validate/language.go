package validate

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 returns the lowercase two-letter language code of text,
// or "" when the sample is too small to call.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}

// scriptRanges maps a base language code to the unicode ranges a
// translation into that language is expected to contain.
var scriptRanges = map[string][]*unicode.RangeTable{
	"zh": {unicode.Han},
	"ja": {unicode.Hiragana, unicode.Katakana, unicode.Han},
	"ko": {unicode.Hangul},
	"ru": {unicode.Cyrillic},
	"uk": {unicode.Cyrillic},
	"bg": {unicode.Cyrillic},
	"sr": {unicode.Cyrillic},
	"ar": {unicode.Arabic},
	"fa": {unicode.Arabic},
	"ur": {unicode.Arabic},
	"he": {unicode.Hebrew},
	"el": {unicode.Greek},
	"th": {unicode.Thai},
	"hi": {unicode.Devanagari},
	"mr": {unicode.Devanagari},
	"ne": {unicode.Devanagari},
}

// baseLang reduces a BCP-47 code like zh-CN to its primary subtag.
func baseLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

// requiredScript returns the expected unicode ranges for lang, if any.
// Languages without an entry use Latin script and expect no particular
// character class.
func requiredScript(lang string) ([]*unicode.RangeTable, bool) {
	tables, ok := scriptRanges[baseLang(lang)]
	return tables, ok
}

// containsScript reports whether text contains at least one rune from the
// given ranges.
func containsScript(text string, tables []*unicode.RangeTable) bool {
	for _, r := range text {
		for _, t := range tables {
			if unicode.Is(t, r) {
				return true
			}
		}
	}
	return false
}

var wordRe = regexp.MustCompile(`[A-Za-z]{2,}`)

// technicalAllowlist holds terms that legitimately stay English in any
// target language.
var technicalAllowlist = map[string]struct{}{
	"api": {}, "url": {}, "html": {}, "css": {}, "sku": {}, "id": {},
	"seo": {}, "app": {}, "email": {}, "online": {}, "web": {}, "wifi": {},
	"usb": {}, "pdf": {}, "faq": {}, "ok": {}, "vip": {}, "diy": {},
}

// englishResidue returns the ratio of ASCII words longer than three
// characters (excluding the technical allowlist and brand words) to all
// words in text, plus the number of candidate words considered.
func englishResidue(text string) (float64, int) {
	words := wordRe.FindAllString(text, -1)
	if len(words) == 0 {
		return 0, 0
	}

	english := 0
	for _, w := range words {
		if len(w) <= 3 {
			continue
		}
		lw := strings.ToLower(w)
		if _, ok := technicalAllowlist[lw]; ok {
			continue
		}
		if isBrandWord(w) {
			continue
		}
		english++
	}
	return float64(english) / float64(len(words)), len(words)
}
