// Package history tracks which products a shopper has looked at and turns
// that into simple catalog recommendations.
package history

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/avvvet/toywonder-assistant/internal/catalog"
	"github.com/avvvet/toywonder-assistant/internal/models"
)

const (
	MaxViewed          = 10
	MaxRecommendations = 4
	ColdStartSize      = 3
)

// Store loads and saves the viewed list for a session
type Store interface {
	LoadViewed(ctx context.Context, sessionID string) ([]string, error)
	SaveViewed(ctx context.Context, sessionID string, names []string) error
}

// Tracker holds the viewed product names for one session, most recent first
type Tracker struct {
	mu        sync.RWMutex
	sessionID string
	names     []string
	store     Store
}

// NewTracker loads the stored list for sessionID. A nil store keeps the
// list in memory only.
func NewTracker(ctx context.Context, sessionID string, store Store) (*Tracker, error) {
	t := &Tracker{sessionID: sessionID, store: store}
	if store != nil {
		names, err := store.LoadViewed(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load viewed items: %w", err)
		}
		t.names = names
	}
	if len(t.names) > MaxViewed {
		t.names = t.names[:MaxViewed]
	}
	return t, nil
}

// Record puts name at the front of the list. Names already present are
// left where they are.
func (t *Tracker) Record(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("product name is required")
	}

	t.mu.Lock()
	for _, n := range t.names {
		if n == name {
			t.mu.Unlock()
			return nil
		}
	}
	names := append([]string{name}, t.names...)
	if len(names) > MaxViewed {
		names = names[:MaxViewed]
	}
	t.names = names
	snapshot := append([]string(nil), names...)
	t.mu.Unlock()

	if t.store == nil {
		return nil
	}
	if err := t.store.SaveViewed(ctx, t.sessionID, snapshot); err != nil {
		return fmt.Errorf("failed to persist viewed items: %w", err)
	}
	return nil
}

// Viewed returns a copy of the viewed names
func (t *Tracker) Viewed() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string{}, t.names...)
}

// Recommend picks products whose category or leading name word shows up in
// the viewed names.
func Recommend(products []models.Product, viewed []string) []models.Product {
	if len(viewed) == 0 {
		return catalog.Head(products, ColdStartSize)
	}

	haystack := strings.ToLower(strings.Join(viewed, " "))
	var recs []models.Product
	for _, p := range products {
		if len(recs) == MaxRecommendations {
			break
		}
		if strings.Contains(haystack, strings.ToLower(p.Category)) ||
			strings.Contains(haystack, strings.ToLower(firstWord(p.Name))) {
			recs = append(recs, p)
		}
	}
	if len(recs) == 0 {
		return catalog.Head(products, MaxRecommendations)
	}
	return recs
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return s
}
