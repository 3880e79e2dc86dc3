// Package chunk splits text into size-bounded pieces for per-chunk
// translation calls. Plain text splits hierarchically (paragraph >
// sentence > word group); HTML-likely text splits on tag/text token
// boundaries so no chunk ever cuts through a tag.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxSize bounds a chunk when the caller does not specify a limit.
const DefaultMaxSize = 1000

// ListMaxSize is the tightened limit for HTML containing lists; list
// markup inflates chunk size disproportionately.
const ListMaxSize = 500

var (
	htmlTagRe     = regexp.MustCompile(`<[a-zA-Z!/][^>]*>`)
	listRe        = regexp.MustCompile(`(?i)<[uo]l\b`)
	sentenceEndRe = regexp.MustCompile(`[.!?。！？…]+\s+`)
)

// Chunk is one ordered, 1-indexed slice of the input.
type Chunk struct {
	Index int
	Text  string
}

// LooksLikeHTML reports whether the text is HTML-likely: it contains at
// least one plausible tag.
func LooksLikeHTML(text string) bool {
	return htmlTagRe.MatchString(text)
}

// Split divides text into chunks no larger than maxSize runes. It never
// fails: a single token longer than maxSize is emitted as its own
// oversized chunk rather than corrupted.
func Split(text string, maxSize int, html bool) []Chunk {
	return SplitWithListLimit(text, maxSize, ListMaxSize, html)
}

// SplitWithListLimit is Split with a caller-chosen limit for list-bearing
// HTML instead of ListMaxSize.
func SplitWithListLimit(text string, maxSize, listLimit int, html bool) []Chunk {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if listLimit <= 0 {
		listLimit = ListMaxSize
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) <= maxSize {
		return []Chunk{{Index: 1, Text: trimmed}}
	}

	var parts []string
	if html {
		parts = splitHTML(trimmed, maxSize, listLimit)
	} else {
		parts = splitPlain(trimmed, maxSize)
	}

	chunks := make([]Chunk, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chunks = append(chunks, Chunk{Index: len(chunks) + 1, Text: p})
	}
	return chunks
}

// Join reassembles chunk texts in order: an empty joiner for HTML, a
// blank-line joiner for plain text.
func Join(texts []string, html bool) string {
	if html {
		return strings.Join(texts, "")
	}
	return strings.Join(texts, "\n\n")
}

// splitPlain packs paragraphs greedily; paragraphs over the limit fall
// back to sentences, and sentences over the limit to word groups.
func splitPlain(text string, maxSize int) []string {
	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= maxSize {
			pieces = append(pieces, para)
			continue
		}
		for _, sentence := range splitSentences(para) {
			if utf8.RuneCountInString(sentence) <= maxSize {
				pieces = append(pieces, sentence)
				continue
			}
			pieces = append(pieces, splitWords(sentence, maxSize)...)
		}
	}
	return pack(pieces, maxSize, "\n\n")
}

// splitSentences cuts after sentence terminators, keeping the terminator
// with its sentence.
func splitSentences(text string) []string {
	bounds := sentenceEndRe.FindAllStringIndex(text, -1)
	if len(bounds) == 0 {
		return []string{text}
	}

	var sentences []string
	start := 0
	for _, b := range bounds {
		sentences = append(sentences, strings.TrimSpace(text[start:b[1]]))
		start = b[1]
	}
	if start < len(text) {
		if rest := strings.TrimSpace(text[start:]); rest != "" {
			sentences = append(sentences, rest)
		}
	}
	return sentences
}

// splitWords hard-splits on whitespace into groups no larger than maxSize.
// A pathological single word over the limit passes through whole.
func splitWords(text string, maxSize int) []string {
	var groups []string
	var cur strings.Builder
	curLen := 0

	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+wordLen > maxSize {
			groups = append(groups, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += wordLen
	}
	if curLen > 0 {
		groups = append(groups, cur.String())
	}
	return groups
}

// splitHTML accumulates tag/text tokens greedily. A tag or a run of
// non-tag text is atomic and is never split mid-tag.
func splitHTML(text string, maxSize, listLimit int) []string {
	limit := maxSize
	if listRe.MatchString(text) && limit > listLimit {
		limit = listLimit
	}
	return pack(tokenizeHTML(text), limit, "")
}

// tokenizeHTML splits text into alternating tag and text tokens.
func tokenizeHTML(text string) []string {
	var tokens []string
	rest := text
	for {
		loc := htmlTagRe.FindStringIndex(rest)
		if loc == nil {
			if rest != "" {
				tokens = append(tokens, rest)
			}
			return tokens
		}
		if loc[0] > 0 {
			tokens = append(tokens, rest[:loc[0]])
		}
		tokens = append(tokens, rest[loc[0]:loc[1]])
		rest = rest[loc[1]:]
	}
}

// pack greedily accumulates pieces into chunks under limit, flushing when
// the next piece would overflow. Oversized single pieces flush alone.
func pack(pieces []string, limit int, joiner string) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	joinLen := utf8.RuneCountInString(joiner)

	flush := func() {
		if curLen > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if curLen > 0 && curLen+joinLen+pieceLen > limit {
			flush()
		}
		if pieceLen > limit {
			flush()
			out = append(out, piece)
			continue
		}
		if curLen > 0 {
			cur.WriteString(joiner)
			curLen += joinLen
		}
		cur.WriteString(piece)
		curLen += pieceLen
	}
	flush()
	return out
}
