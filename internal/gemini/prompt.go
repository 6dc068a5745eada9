package gemini

import (
	"fmt"

	"github.com/oukeidos/mdtrans/internal/language"
)

// SystemPrompt builds the instruction for one language pair.
func SystemPrompt(sourceLang, targetLang string) string {
	source := language.DisplayName(sourceLang)
	target := language.DisplayName(targetLang)
	return fmt.Sprintf(`You are a professional translator. Translate the Markdown fragment you receive from %s into %s.

Rules:
- Respond ONLY with the translated fragment, without commentary or surrounding code fences.
- Keep Markdown syntax intact: headings, lists, tables, links, emphasis and inline code.
- Do not translate URLs, inline code spans or HTML tags.
- Preserve paragraph breaks exactly.
`, source, target)
}
