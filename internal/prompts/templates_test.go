package prompts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSuggestionPrompt(t *testing.T) {
	p := BuildSuggestionPrompt("  a robot for my nephew ", "toys", "any", "bn", []string{"Speed Racer RC", "Super Galactic Robot"})

	assert.Contains(t, p, "The user is looking for: a robot for my nephew\n")
	assert.Contains(t, p, "Reply strictly in Bengali (Bangla).")
	assert.Contains(t, p, "Speed Racer RC, Super Galactic Robot.")
	assert.Contains(t, p, "Audience: any")
}

func TestBuildSuggestionPrompt_CapsProducts(t *testing.T) {
	names := make([]string, MaxProductMentions+5)
	for i := range names {
		names[i] = fmt.Sprintf("Toy%02d", i)
	}
	p := BuildSuggestionPrompt("hi", "toys", "any", "en", names)

	assert.Contains(t, p, fmt.Sprintf("Toy%02d", MaxProductMentions-1))
	assert.NotContains(t, p, fmt.Sprintf("Toy%02d", MaxProductMentions))
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "English", LanguageName("en-GB"))
	assert.Equal(t, "English", LanguageName("xx"))
}

func TestCleanReply(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain reply \n", "plain reply"},
		{"```\nfenced\n```", "fenced"},
		{"```text\nfenced with tag\n```", "fenced with tag"},
		{`"quoted"`, "quoted"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, CleanReply(tt.in))
		})
	}
}
