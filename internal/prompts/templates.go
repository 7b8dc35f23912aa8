package prompts

import (
	"fmt"
	"strings"

	"github.com/avvvet/toywonder-assistant/internal/i18n"
)

const SystemPrompt = `You are GiftBot, a helpful assistant for a toy shop named ToyWonder.
The user is looking for: %s
Shopping domain: %s
Audience: %s

Recommend 2-3 specific toys from typical toy categories.
Reply strictly in %s.
Keep the tone cheerful, helpful, and concise (under 100 words). Use emojis.
Mention at least one product name from this list if relevant: %s.`

// MaxProductMentions caps the product names placed in the prompt
const MaxProductMentions = 20

var languageNames = map[string]string{
	"en": "English",
	"bn": "Bengali (Bangla)",
}

// LanguageName returns the human name of locale used in the prompt
func LanguageName(locale string) string {
	if name, ok := languageNames[i18n.Normalize(locale)]; ok {
		return name
	}
	return languageNames[i18n.DefaultLocale]
}

// BuildSuggestionPrompt renders the gift suggestion prompt
func BuildSuggestionPrompt(message, domain, audience, locale string, productNames []string) string {
	if len(productNames) > MaxProductMentions {
		productNames = productNames[:MaxProductMentions]
	}
	return fmt.Sprintf(SystemPrompt,
		strings.TrimSpace(message),
		domain,
		audience,
		LanguageName(locale),
		strings.Join(productNames, ", "))
}

// CleanReply strips whitespace and a surrounding code fence or quotes that
// models sometimes wrap plain answers in.
func CleanReply(content string) string {
	s := strings.TrimSpace(content)

	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) >= 6 {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
		// drop an optional language tag on the opening fence
		if i := strings.Index(s, "\n"); i >= 0 && !strings.ContainsAny(s[:i], " \t") {
			s = s[i+1:]
		}
		s = strings.TrimSpace(s)
	}

	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
