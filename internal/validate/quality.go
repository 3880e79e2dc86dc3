package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/davidbz/markl/internal/domain"
)

// brandWords is the fixed list whose occurrence counts must survive
// translation.
var brandWords = []string{
	"Shopify", "PayPal", "Visa", "Mastercard", "Stripe", "Klarna",
	"Google", "Apple", "iPhone", "Android", "Facebook", "Instagram",
	"WhatsApp", "TikTok", "YouTube", "Twitter", "Amazon",
}

var brandRes = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(brandWords))
	for _, b := range brandWords {
		m[b] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(b) + `\b`)
	}
	return m
}()

func isBrandWord(w string) bool {
	for _, b := range brandWords {
		if strings.EqualFold(w, b) {
			return true
		}
	}
	return false
}

const (
	tooShortRatio        = 0.2
	excessiveEnglishCap  = 0.5
	shortScriptException = 25
)

// Quality evaluates the fidelity of a translation. Empty output, output
// identical to the input, and missing target-script characters are
// terminating failures; the remaining checks are warnings that do not
// flip the verdict.
func Quality(original, translated, targetLang string, ct ContentType, th Thresholds) (bool, []domain.ValidationRecord) {
	var records []domain.ValidationRecord
	add := func(code, message string, sev int, retryable bool) {
		records = append(records, domain.ValidationRecord{
			Category:  "quality",
			Code:      code,
			Message:   message,
			Severity:  sev,
			Retryable: retryable,
			Context:   map[string]string{"target_lang": targetLang, "content_type": string(ct)},
		})
	}

	trimmedOrig := strings.TrimSpace(original)
	trimmedTrans := strings.TrimSpace(translated)

	if trimmedTrans == "" {
		add("EMPTY_TRANSLATION", "translation is empty", 5, true)
		return false, records
	}

	if trimmedOrig != "" && strings.EqualFold(trimmedOrig, trimmedTrans) {
		add("SAME_AS_ORIGINAL", "translation is identical to the source", 4, false)
		return false, records
	}

	if ct == ContentHTML {
		origTags := len(anyTagRe.FindAllString(original, -1))
		transTags := len(anyTagRe.FindAllString(translated, -1))
		if origTags != transTags {
			add("TAG_COUNT_MISMATCH",
				fmt.Sprintf("source has %d tags, translation has %d", origTags, transTags), 2, true)
		}
	}

	for brand, re := range brandRes {
		origCount := len(re.FindAllString(original, -1))
		if origCount == 0 {
			continue
		}
		if transCount := len(re.FindAllString(translated, -1)); transCount != origCount {
			add("BRAND_MISMATCH",
				fmt.Sprintf("brand %q occurs %d times in source, %d in translation", brand, origCount, transCount), 2, true)
		}
	}

	origLen := utf8.RuneCountInString(trimmedOrig)
	transLen := utf8.RuneCountInString(trimmedTrans)
	tables, nonLatin := requiredScript(targetLang)

	if origLen > 0 && float64(transLen) < float64(origLen)*tooShortRatio {
		// Short text already in the target script is legitimately compact.
		if !(nonLatin && origLen <= shortScriptException && containsScript(translated, tables)) {
			add("TRANSLATION_TOO_SHORT",
				fmt.Sprintf("translation is %d runes for a %d rune source", transLen, origLen), 3, true)
		}
	}

	if nonLatin {
		if !containsScript(translated, tables) {
			add("MISSING_TARGET_SCRIPT", "translation lacks target-script characters", 4, true)
			return false, records
		}
		if ratio, words := englishResidue(translated); words > 0 && ratio > excessiveEnglishCap {
			add("EXCESSIVE_ENGLISH",
				fmt.Sprintf("%.0f%% of words remain english", ratio*100), 3, true)
		}
	}

	return true, records
}
