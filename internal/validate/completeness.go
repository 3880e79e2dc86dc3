// Package validate scores (original, translated, targetLang) triples for
// completeness and quality. Both evaluators are pure: they emit structured
// records for external collection and a boolean verdict for the
// orchestrator; neither performs I/O.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/davidbz/markl/internal/domain"
)

// ContentType hints what kind of text is being validated; thresholds vary
// by type.
type ContentType string

const (
	ContentGeneric   ContentType = "generic"
	ContentHTML      ContentType = "html"
	ContentProduct   ContentType = "product"
	ContentTechnical ContentType = "technical"
)

// Thresholds are the tunable heuristics of the pipeline. The tag balance
// allowance in particular is empirically tuned and should not be treated
// as load-bearing structural verification.
type Thresholds struct {
	TagBalanceTolerance  float64
	TagBalanceMinimum    int
	WordOverlapThreshold float64
	MinOverlapWords      int
}

// DefaultThresholds returns the tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TagBalanceTolerance:  0.3,
		TagBalanceMinimum:    10,
		WordOverlapThreshold: 0.8,
		MinOverlapWords:      10,
	}
}

const (
	veryShortLimit = 15
	shortLimit     = 100
)

// Known shapes of incomplete model output.
var incompletePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here is the translation`),
	regexp.MustCompile(`(?i)^sure[,!]? (here|i)`),
	regexp.MustCompile(`(?i)\bi cannot translate\b`),
	regexp.MustCompile(`\bTEXT_TOO_LONG\b`),
	regexp.MustCompile(`\.\.\.\s*$`),
	regexp.MustCompile(`…\s*$`),
}

var openTagRe = regexp.MustCompile(`<[a-zA-Z][^>/]*>`)
var closeTagRe = regexp.MustCompile(`</[a-zA-Z][^>]*>`)
var anyTagRe = regexp.MustCompile(`<[^>]+>`)

// Completeness evaluates whether translated is a complete rendition of
// original. It returns the verdict plus all findings as records.
func Completeness(original, translated, targetLang string, ct ContentType, th Thresholds) (bool, []domain.ValidationRecord) {
	var records []domain.ValidationRecord
	fail := func(code, message string, sev int, retryable bool) {
		records = append(records, domain.ValidationRecord{
			Category:  "completeness",
			Code:      code,
			Message:   message,
			Severity:  sev,
			Retryable: retryable,
			Context:   map[string]string{"target_lang": targetLang, "content_type": string(ct)},
		})
	}

	origLen := utf8.RuneCountInString(strings.TrimSpace(original))
	transLen := utf8.RuneCountInString(strings.TrimSpace(translated))

	// Very short text carries no completeness signal.
	if origLen <= veryShortLimit {
		return true, nil
	}

	tables, nonLatin := requiredScript(targetLang)

	if origLen <= shortLimit {
		trimmedOrig := strings.TrimSpace(original)
		trimmedTrans := strings.TrimSpace(translated)

		if nonLatin && strings.EqualFold(trimmedOrig, trimmedTrans) {
			fail("UNCHANGED_SHORT_TEXT", "short text unchanged for non-Latin target", 3, true)
			return false, records
		}
		if nonLatin && !containsScript(translated, tables) {
			fail("MISSING_TARGET_SCRIPT", "no target-script characters in short translation", 4, true)
			return false, records
		}
		if nonLatin {
			limit := 0.3
			if ct == ContentProduct || ct == ContentTechnical {
				limit = 0.5
			}
			if ratio, _ := englishResidue(translated); ratio > limit {
				fail("EXCESSIVE_ENGLISH", fmt.Sprintf("english residue %.2f over %.2f", ratio, limit), 3, true)
				return false, records
			}
		}
		return true, records
	}

	for _, re := range incompletePatterns {
		if re.MatchString(translated) {
			fail("INCOMPLETE_PATTERN", "translation matches known incomplete pattern: "+re.String(), 4, true)
			return false, records
		}
	}

	// Word mixing: only meaningful outside HTML and product content,
	// where untranslated proper nouns are expected. Applies to Latin
	// targets too, since a mostly-untranslated result is otherwise
	// indistinguishable from a valid one there.
	if ct != ContentHTML && ct != ContentProduct {
		if overlap, candidates := wordOverlap(original, translated); candidates >= th.MinOverlapWords && overlap > th.WordOverlapThreshold {
			fail("MIXED_LANGUAGE", fmt.Sprintf("%.0f%% of source words survive in translation", overlap*100), 3, true)
			return false, records
		}
	}

	if transLen > 0 && origLen > 0 {
		ratio := float64(transLen) / float64(origLen)
		if ratio < minLengthRatio(ct, targetLang) {
			fail("LENGTH_COLLAPSE", fmt.Sprintf("translation is %.0f%% of source length", ratio*100), 4, true)
			return false, records
		}
	}

	if ct == ContentHTML {
		origTags := len(openTagRe.FindAllString(original, -1)) + len(closeTagRe.FindAllString(original, -1))
		transOpen := len(openTagRe.FindAllString(translated, -1))
		transClose := len(closeTagRe.FindAllString(translated, -1))

		diff := transOpen - transClose
		if diff < 0 {
			diff = -diff
		}
		allowance := int(float64(origTags) * th.TagBalanceTolerance)
		if allowance < th.TagBalanceMinimum {
			allowance = th.TagBalanceMinimum
		}
		if diff > allowance {
			fail("TAG_IMBALANCE", fmt.Sprintf("open/close tag difference %d exceeds allowance %d", diff, allowance), 4, true)
			return false, records
		}
	}

	return true, records
}

// wordOverlap returns the share of source words (>3 chars) that reappear
// verbatim in the translation, and how many candidates were considered.
func wordOverlap(original, translated string) (float64, int) {
	translatedWords := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(strings.ToLower(translated), -1) {
		translatedWords[w] = struct{}{}
	}

	candidates := 0
	matched := 0
	for _, w := range wordRe.FindAllString(strings.ToLower(original), -1) {
		if len(w) <= 3 {
			continue
		}
		candidates++
		if _, ok := translatedWords[w]; ok {
			matched++
		}
	}
	if candidates == 0 {
		return 0, 0
	}
	return float64(matched) / float64(candidates), candidates
}

// minLengthRatio is the floor below which a translation counts as
// collapsed. HTML tolerates the most shrinkage (markup may be stripped);
// CJK targets are denser than Latin sources, so their floors are lower.
func minLengthRatio(ct ContentType, targetLang string) float64 {
	var base float64
	switch ct {
	case ContentHTML:
		base = 0.05
	case ContentProduct:
		base = 0.12
	case ContentTechnical:
		base = 0.18
	case ContentGeneric:
		base = 0.25
	default:
		base = 0.25
	}

	switch baseLang(targetLang) {
	case "zh", "ja", "ko":
		return base * 0.6
	default:
		return base
	}
}
