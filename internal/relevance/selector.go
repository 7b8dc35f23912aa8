package relevance

import (
	"github.com/avvvet/toywonder-assistant/internal/catalog"
	"github.com/avvvet/toywonder-assistant/internal/models"
)

const (
	MaxTopMatches = 4
	MaxRelated    = 5
	// FallbackSize is how many raw catalog items fill the carousel when
	// nothing better is available.
	FallbackSize = 5
)

// Selection is the outcome of one turn: what goes inline with the reply and
// what replaces the carousel.
type Selection struct {
	TopMatches []models.Product
	Related    []models.Product
}

// Select partitions ranked results. products is the raw catalog, used for
// the fallbacks.
func Select(products []models.Product, ranked []Scored) Selection {
	relevant := make([]models.Product, 0, len(ranked))
	for _, s := range ranked {
		if s.Relevant() {
			relevant = append(relevant, s.Product)
		}
	}

	if len(relevant) == 0 {
		return Selection{
			TopMatches: []models.Product{},
			Related:    catalog.Head(products, FallbackSize),
		}
	}

	top := window(relevant, 0, MaxTopMatches)
	related := window(relevant, MaxTopMatches, MaxTopMatches+MaxRelated)
	if len(related) == 0 {
		related = sameCategory(products, top)
	}

	return Selection{TopMatches: top, Related: related}
}

// sameCategory returns catalog items in the first top match's category that
// are not already shown inline.
func sameCategory(products []models.Product, top []models.Product) []models.Product {
	shown := make(map[string]struct{}, len(top))
	for _, p := range top {
		shown[p.ID] = struct{}{}
	}

	category := top[0].Category
	out := pick(products, MaxRelated, func(p models.Product) bool {
		_, ok := shown[p.ID]
		return !ok && p.Category == category
	})
	if len(out) > 0 {
		return out
	}

	// Raw catalog slice, still skipping what is already inline.
	return pick(products, FallbackSize, func(p models.Product) bool {
		_, ok := shown[p.ID]
		return !ok
	})
}

func pick(products []models.Product, limit int, keep func(models.Product) bool) []models.Product {
	out := make([]models.Product, 0, limit)
	for _, p := range products {
		if len(out) == limit {
			break
		}
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func window(ps []models.Product, from, to int) []models.Product {
	if from >= len(ps) {
		return []models.Product{}
	}
	if to > len(ps) {
		to = len(ps)
	}
	out := make([]models.Product, to-from)
	copy(out, ps[from:to])
	return out
}
