package ollama

import (
	"fmt"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

func buildTranslationPrompt(text string, source, target domain.ProviderCode) string {
	from := "the language it is written in"
	if source != "" {
		from = string(source)
	}
	return fmt.Sprintf(`Translate the text below from %s to %s.
Language tags follow FLORES-200 (for example eng_Latn, hin_Deva).
Return only the translation, without notes, quotes or explanations.

Text:
%s`, from, target, text)
}
