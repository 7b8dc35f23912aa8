package relevance

import (
	"math"
	"sort"
	"strings"

	"github.com/avvvet/toywonder-assistant/internal/models"
)

// Signal weights
const (
	WeightNameMention     = 50.0
	WeightCategoryMention = 20.0
	WeightKeywordName     = 10.0
	WeightKeywordCategory = 5.0
	WeightKeywordDesc     = 2.0
	WeightRating          = 2.0
	WeightReview          = 0.05

	LikeMultiplier    = 1.5
	DislikeMultiplier = 0.5

	// RelevanceThreshold: products at or below it are never shown as matches.
	RelevanceThreshold = 5.0
)

// VerdictLookup resolves the personalization verdict for a product.
type VerdictLookup interface {
	Lookup(productID string) (models.Verdict, bool)
}

// Scored is a product with its relevance breakdown.
type Scored struct {
	Product models.Product
	Score   float64
	// Textual is the part of the score that came from the text itself
	// (mentions and keyword overlap), before popularity and personalization.
	Textual float64
}

// Relevant reports whether the product should be treated as a match.
func (s Scored) Relevant() bool {
	return s.Textual > 0 && s.Score > RelevanceThreshold
}

// Score computes the relevance of p for text. lookup may be nil.
func Score(p models.Product, text string, lookup VerdictLookup) float64 {
	return score(p, strings.ToLower(text), ExtractKeywords(text), lookup).Score
}

// Rank scores every product and orders them by score, highest first.
// Equal scores keep catalog order.
func Rank(products []models.Product, text string, lookup VerdictLookup) []Scored {
	normalized := strings.ToLower(text)
	keywords := ExtractKeywords(text)

	ranked := make([]Scored, len(products))
	for i, p := range products {
		ranked[i] = score(p, normalized, keywords, lookup)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func score(p models.Product, normalized string, keywords map[string]struct{}, lookup VerdictLookup) Scored {
	name := strings.ToLower(p.Name)
	category := strings.ToLower(p.Category)
	desc := strings.ToLower(p.Description)

	textual := 0.0
	if name != "" && strings.Contains(normalized, name) {
		textual += WeightNameMention
	}
	if category != "" && strings.Contains(normalized, category) {
		textual += WeightCategoryMention
	}
	for k := range keywords {
		if strings.Contains(name, k) {
			textual += WeightKeywordName
		}
		if strings.Contains(category, k) {
			textual += WeightKeywordCategory
		}
		if strings.Contains(desc, k) {
			textual += WeightKeywordDesc
		}
	}

	total := textual +
		math.Max(p.Rating, 0)*WeightRating +
		math.Max(float64(p.Reviews), 0)*WeightReview

	if lookup != nil {
		if v, ok := lookup.Lookup(p.ID); ok {
			switch v {
			case models.VerdictLike:
				total *= LikeMultiplier
			case models.VerdictDislike:
				total *= DislikeMultiplier
			}
		}
	}

	return Scored{Product: p, Score: total, Textual: textual}
}
