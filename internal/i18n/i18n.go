// Package i18n holds the assistant's user-facing strings.
package i18n

import "strings"

// Translator resolves key for locale. Unknown keys resolve to the key itself.
type Translator func(key, locale string) string

// Keys used by the assistant
const (
	KeyIntro   = "ai.intro"
	KeyMatches = "ai.matches"
	KeyError   = "ai.error"
	KeyNoIdeas = "ai.no_ideas"
)

const DefaultLocale = "en"

var translations = map[string]map[string]string{
	"en": {
		KeyIntro:   "Hi there! 👋 I'm GiftBot. I can help you find the perfect toy or gift. Who are we shopping for today?",
		KeyMatches: "Here are the best matches for that:",
		KeyError:   "I'm having a little trouble connecting to my brain right now.",
		KeyNoIdeas: "I'm having a little trouble thinking of ideas right now. 🎁",
	},
	"bn": {
		KeyIntro:   "নমস্কার! 👋 আমি গিফটবট। আমি আপনাকে সেরা খেলনা বা উপহার খুঁজে পেতে সাহায্য করতে পারি। আজ আমরা কার জন্য কেনাকাটা করছি?",
		KeyMatches: "এখানে কিছু সেরা বিকল্প রয়েছে:",
		KeyError:   "আমার সংযোগে একটু সমস্যা হচ্ছে। অনুগ্রহ করে আবার চেষ্টা করুন।",
		KeyNoIdeas: "দুঃখিত, আমি এই মুহূর্তে কোন আইডিয়া পাচ্ছি না।",
	},
}

// Translate looks key up in the built-in tables, falling back to English
// and then to the key.
func Translate(key, locale string) string {
	if table, ok := translations[Normalize(locale)]; ok {
		if s, ok := table[key]; ok {
			return s
		}
	}
	if s, ok := translations[DefaultLocale][key]; ok {
		return s
	}
	return key
}

// Supported reports whether locale has its own table
func Supported(locale string) bool {
	_, ok := translations[Normalize(locale)]
	return ok
}

// Normalize maps "bn-BD" or "EN" style tags to the base language
func Normalize(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	return l
}
