package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	assert.Equal(t, "Here are the best matches for that:", Translate(KeyMatches, "en"))
	assert.Equal(t, "এখানে কিছু সেরা বিকল্প রয়েছে:", Translate(KeyMatches, "bn-BD"))
	// unknown locale falls back to English
	assert.Equal(t, Translate(KeyError, "en"), Translate(KeyError, "fr"))
	// unknown key resolves to itself
	assert.Equal(t, "ai.nope", Translate("ai.nope", "bn"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "bn", Normalize(" BN_bd "))
	assert.Equal(t, "en", Normalize("en-US"))
	assert.True(t, Supported("EN"))
	assert.False(t, Supported("de"))
}
