// Package feedback keeps the per-product like/dislike verdicts that
// personalize relevance scoring.
package feedback

import (
	"context"
	"fmt"
	"sync"

	"github.com/avvvet/toywonder-assistant/internal/models"
)

// Persister saves the full verdict map after a mutation
type Persister interface {
	SaveFeedback(ctx context.Context, sessionID string, feedback map[string]models.Verdict) error
}

// Store is a tri-state verdict map for one session: like, dislike, or no
// entry (neutral).
type Store struct {
	mu        sync.RWMutex
	sessionID string
	verdicts  map[string]models.Verdict
	persister Persister
}

// NewStore seeds the store with previously loaded verdicts
func NewStore(sessionID string, initial map[string]models.Verdict, p Persister) *Store {
	verdicts := make(map[string]models.Verdict, len(initial))
	for id, v := range initial {
		if v.Valid() {
			verdicts[id] = v
		}
	}
	return &Store{
		sessionID: sessionID,
		verdicts:  verdicts,
		persister: p,
	}
}

// Toggle sets verdict for productID, or clears it if it is already set to
// the same verdict. It returns the resulting verdict and whether one is set.
// The in-memory change always applies; a persistence failure is returned
// alongside it.
func (s *Store) Toggle(ctx context.Context, productID string, verdict models.Verdict) (models.Verdict, bool, error) {
	if !verdict.Valid() {
		return "", false, fmt.Errorf("invalid verdict %q", verdict)
	}

	s.mu.Lock()
	current, had := s.verdicts[productID]
	if had && current == verdict {
		delete(s.verdicts, productID)
	} else {
		s.verdicts[productID] = verdict
	}
	result, set := s.verdicts[productID]
	snapshot := s.copyLocked()
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.SaveFeedback(ctx, s.sessionID, snapshot); err != nil {
			return result, set, fmt.Errorf("failed to persist feedback: %w", err)
		}
	}
	return result, set, nil
}

// Lookup returns the verdict for productID, if any
func (s *Store) Lookup(productID string) (models.Verdict, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.verdicts[productID]
	return v, ok
}

// Snapshot returns a copy of all verdicts
func (s *Store) Snapshot() map[string]models.Verdict {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() map[string]models.Verdict {
	out := make(map[string]models.Verdict, len(s.verdicts))
	for k, v := range s.verdicts {
		out[k] = v
	}
	return out
}
