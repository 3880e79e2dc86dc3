package strategy

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/davidbz/markl/internal/domain"
)

// Best-effort heuristics for why a translation came back identical to the
// source. These can misclassify (an all-caps brand looks like a SKU);
// the reason is an annotation, never a correctness guarantee.
var (
	skuRe     = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{2,}$`)
	versionRe = regexp.MustCompile(`^[A-Za-z]*\d+(\.\d+)*[A-Za-z0-9-]*$`)
)

var technicalTerms = map[string]struct{}{
	"api": {}, "sdk": {}, "html": {}, "css": {}, "json": {}, "xml": {},
	"url": {}, "uri": {}, "http": {}, "https": {}, "oauth": {}, "webhook": {},
}

// classifyIdentical decides why output equals input.
func classifyIdentical(text string) domain.SkipReason {
	t := strings.TrimSpace(text)
	fields := strings.Fields(t)

	switch {
	case len(fields) == 1 && skuRe.MatchString(fields[0]):
		return domain.SkipProductCode
	case allTechnical(fields):
		return domain.SkipTechnicalTerm
	case len(fields) > 0 && len(fields) <= 3 && allTitleCase(fields):
		return domain.SkipPossibleBrand
	default:
		return domain.SkipIdenticalResult
	}
}

func allTechnical(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if _, ok := technicalTerms[strings.ToLower(f)]; ok {
			continue
		}
		if versionRe.MatchString(f) {
			continue
		}
		return false
	}
	return true
}

func allTitleCase(fields []string) bool {
	for _, f := range fields {
		r := []rune(f)
		if len(r) == 0 || !unicode.IsUpper(r[0]) {
			return false
		}
	}
	return true
}
