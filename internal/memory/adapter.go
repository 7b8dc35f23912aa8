package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avvvet/toywonder-assistant/internal/logger"
	"github.com/avvvet/toywonder-assistant/internal/metrics"
	"github.com/avvvet/toywonder-assistant/internal/models"
)

// Adapter persists conversation history, product feedback and viewed items
// as JSON values in a KV. Corrupt values fall back to defaults; backend
// failures are returned so callers never overwrite state they could not read.
type Adapter struct {
	kv     KV
	logger logger.Logger
}

// NewAdapter creates a new persistence adapter
func NewAdapter(kv KV, log logger.Logger) *Adapter {
	return &Adapter{
		kv:     kv,
		logger: log.WithFields(map[string]interface{}{"component": "persistence"}),
	}
}

// LoadHistory returns the stored conversation, or just greeting when
// nothing usable is stored.
func (a *Adapter) LoadHistory(ctx context.Context, sessionID string, greeting models.Message) ([]models.Message, error) {
	var msgs []models.Message
	found, err := a.load(ctx, sessionID, KeyChatHistory, &msgs)
	if err != nil {
		return nil, err
	}
	if !found || len(msgs) == 0 {
		return []models.Message{greeting}, nil
	}
	if err := validateHistory(msgs); err != nil {
		a.discard(ctx, KeyChatHistory, &CorruptStateError{Key: Key(sessionID, KeyChatHistory), Cause: err})
		return []models.Message{greeting}, nil
	}
	return msgs, nil
}

// SaveHistory overwrites the stored conversation
func (a *Adapter) SaveHistory(ctx context.Context, sessionID string, msgs []models.Message) error {
	return a.save(ctx, sessionID, KeyChatHistory, msgs)
}

// ClearHistory removes the stored conversation
func (a *Adapter) ClearHistory(ctx context.Context, sessionID string) error {
	key := Key(sessionID, KeyChatHistory)
	if err := a.kv.Remove(ctx, key); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// LoadFeedback returns the stored verdicts. Entries with an unknown verdict
// are dropped.
func (a *Adapter) LoadFeedback(ctx context.Context, sessionID string) (map[string]models.Verdict, error) {
	raw := map[string]models.Verdict{}
	found, err := a.load(ctx, sessionID, KeyProductFeedback, &raw)
	if err != nil {
		return nil, err
	}
	if !found {
		return map[string]models.Verdict{}, nil
	}

	out := make(map[string]models.Verdict, len(raw))
	for id, v := range raw {
		if !v.Valid() {
			a.logger.Warn("dropping unknown feedback verdict", map[string]interface{}{
				"session_id": sessionID,
				"product_id": id,
				"verdict":    string(v),
			})
			continue
		}
		out[id] = v
	}
	return out, nil
}

// SaveFeedback overwrites the stored verdicts
func (a *Adapter) SaveFeedback(ctx context.Context, sessionID string, feedback map[string]models.Verdict) error {
	return a.save(ctx, sessionID, KeyProductFeedback, feedback)
}

// LoadViewed returns the stored viewed product names, most recent first
func (a *Adapter) LoadViewed(ctx context.Context, sessionID string) ([]string, error) {
	var names []string
	found, err := a.load(ctx, sessionID, KeyViewedItems, &names)
	if err != nil {
		return nil, err
	}
	if !found {
		return []string{}, nil
	}
	return names, nil
}

// SaveViewed overwrites the stored viewed product names
func (a *Adapter) SaveViewed(ctx context.Context, sessionID string, names []string) error {
	return a.save(ctx, sessionID, KeyViewedItems, names)
}

// load decodes the value under name into dst and reports whether a valid
// value was found. Undecodable values are discarded, not returned as errors.
func (a *Adapter) load(ctx context.Context, sessionID, name string, dst interface{}) (bool, error) {
	key := Key(sessionID, name)

	data, ok, err := a.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal([]byte(data), dst); err != nil {
		a.discard(ctx, name, &CorruptStateError{Key: key, Cause: err})
		return false, nil
	}
	return true, nil
}

// validateHistory rejects decoded messages no client could render
func validateHistory(msgs []models.Message) error {
	for i, m := range msgs {
		switch {
		case m.Role != models.RoleUser && m.Role != models.RoleAssistant:
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		case m.Kind != models.KindPlain && m.Kind != models.KindProducts:
			return fmt.Errorf("message %d: unknown kind %q", i, m.Kind)
		case m.Kind == models.KindPlain && strings.TrimSpace(m.Text) == "":
			return fmt.Errorf("message %d: empty text", i)
		case m.Kind == models.KindProducts && m.Role != models.RoleAssistant:
			return fmt.Errorf("message %d: product list from %q", i, m.Role)
		}
		switch m.Feedback {
		case models.RatingNone, models.RatingUp, models.RatingDown:
		default:
			return fmt.Errorf("message %d: unknown rating %q", i, m.Feedback)
		}
	}
	return nil
}

func (a *Adapter) discard(ctx context.Context, name string, cerr *CorruptStateError) {
	metrics.CorruptState.WithLabelValues(name).Inc()
	a.logger.Warn("discarding corrupt stored value", map[string]interface{}{
		"key":   cerr.Key,
		"error": cerr,
	})
	if err := a.kv.Remove(ctx, cerr.Key); err != nil {
		a.logger.Error("failed to remove corrupt value", map[string]interface{}{
			"key":   cerr.Key,
			"error": err,
		})
	}
}

func (a *Adapter) save(ctx context.Context, sessionID, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := a.kv.Set(ctx, Key(sessionID, name), string(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}
