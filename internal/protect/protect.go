// Package protect hides structurally sensitive markup behind opaque
// placeholders before translation, and restores it afterwards. Masking is
// reversible: for any input, Restore(Protect(input)) == input as long as
// nothing rewrites the placeholders in between.
package protect

import (
	"fmt"
	"regexp"
	"strings"
)

// Placeholders look like __PROTECTED_STYLE_0__. The numbering is monotonic
// per Map, so every placeholder in a map is unique.
const placeholderFormat = "__PROTECTED_%s_%d__"

// Masking order matters: block-level content is masked before attribute
// values, so attributes inside an already-masked <style> block are never
// double-processed. Media tags go last and may swallow already-masked
// attribute placeholders; the fixpoint loop in Restore unwinds the nesting.
var (
	styleRe   = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	scriptRe  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	preRe     = regexp.MustCompile(`(?is)<pre\b[^>]*>.*?</pre>`)
	codeRe    = regexp.MustCompile(`(?is)<code\b[^>]*>.*?</code>`)

	attrRe = regexp.MustCompile(`(?i)\b(style|href|src|aria-[a-z][a-z0-9-]*)\s*=\s*("[^"]*"|'[^']*')`)

	mediaRe = regexp.MustCompile(`(?i)<(?:img|source|track)\b[^>]*?/?>`)

	// Trailing coaching text some models append after the translation.
	coachingRe = regexp.MustCompile(`(?is)\s*note:[^.\n]*consisten[^.\n]*\.?\s*$`)
)

// Map is an ordered placeholder -> original-substring mapping scoped to one
// translation call. It is immutable after Protect returns.
type Map struct {
	order  []string
	values map[string]string
}

// Len returns the number of placeholders in the map.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Lookup returns the original substring for a placeholder.
func (m *Map) Lookup(placeholder string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[placeholder]
	return v, ok
}

// builder accumulates masked units while Protect walks the input.
type builder struct {
	m *Map
	n int
}

func (b *builder) mask(kind, original string) string {
	placeholder := fmt.Sprintf(placeholderFormat, kind, b.n)
	b.n++
	b.m.order = append(b.m.order, placeholder)
	b.m.values[placeholder] = original
	return placeholder
}

// Protect masks style/script/comment/pre/code blocks, sensitive attribute
// values, and self-closing media tags. The returned map is consumed by
// Restore and must not outlive the request.
func Protect(text string) (string, *Map) {
	b := &builder{m: &Map{order: nil, values: make(map[string]string)}}

	out := text
	for _, block := range []struct {
		kind string
		re   *regexp.Regexp
	}{
		{"STYLE", styleRe},
		{"SCRIPT", scriptRe},
		{"COMMENT", commentRe},
		{"PRE", preRe},
		{"CODE", codeRe},
	} {
		re := block.re
		kind := block.kind
		out = re.ReplaceAllStringFunc(out, func(match string) string {
			return b.mask(kind, match)
		})
	}

	// Attribute values stay in place so the tag structure remains visible
	// to the translator; only the opaque value is hidden.
	out = attrRe.ReplaceAllStringFunc(out, func(match string) string {
		sub := attrRe.FindStringSubmatch(match)
		name, quoted := sub[1], sub[2]
		quote := quoted[:1]
		value := quoted[1 : len(quoted)-1]
		if value == "" {
			return match
		}
		return name + "=" + quote + b.mask("ATTR", value) + quote
	})

	out = mediaRe.ReplaceAllStringFunc(out, func(match string) string {
		return b.mask("MEDIA", match)
	})

	return out, b.m
}

// maxRestorePasses bounds the fixpoint loop; nesting depth in practice is 2
// (attribute placeholders inside masked media tags).
const maxRestorePasses = 10

// Restore substitutes placeholders back until the string stops changing,
// then strips trailing model coaching text. Restoring an already-restored
// string is a no-op.
func Restore(text string, m *Map) string {
	for pass := 0; pass < maxRestorePasses && m.Len() > 0; pass++ {
		changed := false
		for _, placeholder := range m.order {
			if strings.Contains(text, placeholder) {
				text = strings.ReplaceAll(text, placeholder, m.values[placeholder])
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return coachingRe.ReplaceAllString(text, "")
}

// LeakedPlaceholder reports whether a restored string still contains a
// protection placeholder, which means the model corrupted one.
func LeakedPlaceholder(text string) bool {
	return strings.Contains(text, "__PROTECTED_")
}
