package strategy

import "fmt"

// enhancedPrompt is the full instruction prompt: tone, markup discipline,
// and placeholder preservation.
func enhancedPrompt(targetLang, resourceType string) string {
	base := fmt.Sprintf(
		"You are a professional e-commerce translator. Translate the user's text into %s. "+
			"Preserve all HTML tags, attributes, and any tokens of the form __PROTECTED_..._N__ exactly as they appear. "+
			"Do not add explanations, notes, or quotation marks around the translation. "+
			"Keep brand names, product codes, and SKUs untranslated. "+
			"Match the register of the source text.",
		targetLang,
	)
	if resourceType != "" {
		base += fmt.Sprintf(" The text is a %s field.", resourceType)
	}
	return base
}

// simplePrompt is the minimal prompt used as a reduced-context fallback
// and by the simple strategy.
func simplePrompt(targetLang string) string {
	return fmt.Sprintf("Translate the following text to %s. Return only the translation.", targetLang)
}

// chunkPrompt frames one fragment of a larger document so the model does
// not try to summarize or complete it.
func chunkPrompt(targetLang string, index, total int) string {
	return fmt.Sprintf(
		"Translate this fragment (%d of %d) of a larger document into %s. "+
			"Translate only the given fragment, preserve all HTML tags and __PROTECTED_..._N__ tokens exactly, "+
			"and return nothing but the translated fragment.",
		index, total, targetLang,
	)
}
