package strategy

import (
	"regexp"
	"strings"
)

var relativeHrefRe = regexp.MustCompile(`href="(/[^"]*)"`)

// localizeLinks prefixes root-relative hrefs with the target language so
// translated content points at localized routes. External and
// already-localized links are left alone.
func localizeLinks(html, targetLang string) string {
	lang := strings.ToLower(strings.TrimSpace(targetLang))
	if lang == "" {
		return html
	}
	prefix := "/" + lang + "/"

	return relativeHrefRe.ReplaceAllStringFunc(html, func(match string) string {
		sub := relativeHrefRe.FindStringSubmatch(match)
		path := sub[1]
		if path == "/"+lang || strings.HasPrefix(path, prefix) {
			return match
		}
		return `href="/` + lang + path + `"`
	})
}
