// Package cache provides the deterministic response cache for translation
// results: a key builder plus an in-memory store. A Redis-backed store for
// multi-process deployments lives in the redis subpackage.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Key derives a deterministic cache key from the target language, system
// prompt, source text, and sorted extras. Extras participate so that
// semantically different requests with identical text never collide.
func Key(targetLang, systemPrompt, text string, extras map[string]string) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0x1f}) // unit separator between fields
	}

	write(targetLang)
	write(systemPrompt)
	write(text)

	keys := make([]string, 0, len(extras))
	for k := range extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k)
		write(extras[k])
	}

	return "translation:" + hex.EncodeToString(h.Sum(nil))
}
