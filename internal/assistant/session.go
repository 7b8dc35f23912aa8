// Package assistant runs the per-session conversation: it forwards user
// text to the suggestion generator, ranks the catalog against the reply and
// keeps the message list and recommendation pool that clients render.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/toywonder-assistant/internal/catalog"
	"github.com/avvvet/toywonder-assistant/internal/feedback"
	"github.com/avvvet/toywonder-assistant/internal/history"
	"github.com/avvvet/toywonder-assistant/internal/i18n"
	"github.com/avvvet/toywonder-assistant/internal/llm"
	"github.com/avvvet/toywonder-assistant/internal/logger"
	"github.com/avvvet/toywonder-assistant/internal/metrics"
	"github.com/avvvet/toywonder-assistant/internal/models"
	"github.com/avvvet/toywonder-assistant/internal/relevance"
)

const (
	// PoolSize caps the recommendation pool
	PoolSize = 5

	generatorDomain   = "toys"
	generatorAudience = "any"
)

// Persistence is the session state the assistant loads and saves
type Persistence interface {
	LoadHistory(ctx context.Context, sessionID string, greeting models.Message) ([]models.Message, error)
	SaveHistory(ctx context.Context, sessionID string, msgs []models.Message) error
	ClearHistory(ctx context.Context, sessionID string) error
	LoadFeedback(ctx context.Context, sessionID string) (map[string]models.Verdict, error)
	SaveFeedback(ctx context.Context, sessionID string, feedback map[string]models.Verdict) error
	LoadViewed(ctx context.Context, sessionID string) ([]string, error)
	SaveViewed(ctx context.Context, sessionID string, names []string) error
}

// Options are the collaborators shared by every session
type Options struct {
	Catalog   catalog.Repository
	Generator llm.Generator
	Store     Persistence
	Translate i18n.Translator
	Locale    string
	Timeout   time.Duration
	Logger    logger.Logger
}

// Session is one shopper's conversation. Safe for concurrent use; a second
// Submit while a reply is pending fails with ErrBusy.
type Session struct {
	id       string
	opts     Options
	logger   logger.Logger
	feedback *feedback.Store
	viewed   *history.Tracker

	mu        sync.Mutex
	state     State
	epoch     int // bumped by Reset so an in-flight reply is dropped
	locale    string
	messages  []models.Message
	pool      []models.Product
	lastError *string
}

// newSession restores stored state for id. A store that cannot be read
// fails the load, so nothing is later saved over data that was never seen.
func newSession(ctx context.Context, id string, opts Options) (*Session, error) {
	locale := i18n.Normalize(opts.Locale)
	if !i18n.Supported(locale) {
		locale = i18n.DefaultLocale
	}

	s := &Session{
		id:     id,
		opts:   opts,
		logger: opts.Logger.WithFields(map[string]interface{}{"session_id": id}),
		locale: locale,
	}

	msgs, err := opts.Store.LoadHistory(ctx, id, s.greeting(locale))
	if err != nil {
		return nil, err
	}
	verdicts, err := opts.Store.LoadFeedback(ctx, id)
	if err != nil {
		return nil, err
	}
	viewed, err := history.NewTracker(ctx, id, opts.Store)
	if err != nil {
		return nil, err
	}

	s.messages = msgs
	s.feedback = feedback.NewStore(id, verdicts, opts.Store)
	s.viewed = viewed
	s.pool = catalog.Popular(opts.Catalog.List(), PoolSize)
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit sends text to the generator and records the outcome. Generator
// failures are recovered into a fallback message and do not produce an
// error here.
func (s *Session) Submit(ctx context.Context, text string) (models.Snapshot, error) {
	if strings.TrimSpace(text) == "" {
		metrics.SubmissionsRejected.WithLabelValues("empty").Inc()
		return s.Snapshot(), ErrEmptyInput
	}

	s.mu.Lock()
	next, ok := reduce(s.state, eventSubmit)
	if !ok {
		s.mu.Unlock()
		metrics.SubmissionsRejected.WithLabelValues("busy").Inc()
		return s.Snapshot(), ErrBusy
	}
	s.state = next
	s.lastError = nil
	s.messages = append(s.messages, models.Message{Role: models.RoleUser, Text: text, Kind: models.KindPlain})
	epoch, locale := s.epoch, s.locale
	msgs := s.copyMessagesLocked()
	s.mu.Unlock()

	s.saveHistory(ctx, msgs)

	s.logger.Debug("Calling suggestion generator", map[string]interface{}{
		"locale":   locale,
		"provider": s.opts.Generator.Name(),
	})

	// settle even if the caller went away
	settleCtx := context.WithoutCancel(ctx)
	reply, err := s.generate(ctx, text, locale)
	if err != nil {
		s.reject(settleCtx, epoch, err)
	} else {
		s.resolve(settleCtx, epoch, reply)
	}
	return s.Snapshot(), nil
}

func (s *Session) generate(ctx context.Context, text, locale string) (string, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	reply, err := s.opts.Generator.Generate(ctx, llm.Request{
		Message:  text,
		Domain:   generatorDomain,
		Audience: generatorAudience,
		Locale:   locale,
	})
	if err != nil {
		return "", &GeneratorError{Cause: err}
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		s.logger.Warn("Generator returned an empty reply", nil)
		return s.opts.Translate(i18n.KeyNoIdeas, locale), nil
	}
	return reply, nil
}

func (s *Session) resolve(ctx context.Context, epoch int, reply string) {
	products := s.opts.Catalog.List()
	sel := relevance.Select(products, relevance.Rank(products, reply, s.feedback))

	s.mu.Lock()
	s.state, _ = reduce(s.state, eventResolve)
	if epoch != s.epoch {
		s.mu.Unlock()
		s.logger.Info("Dropping reply for a reset conversation", nil)
		return
	}

	s.messages = append(s.messages, models.Message{Role: models.RoleAssistant, Text: reply, Kind: models.KindPlain})
	if len(sel.TopMatches) > 0 {
		s.messages = append(s.messages, models.Message{
			Role:     models.RoleAssistant,
			Text:     s.opts.Translate(i18n.KeyMatches, s.locale),
			Kind:     models.KindProducts,
			Products: sel.TopMatches,
		})
	}
	s.pool = sel.Related
	s.lastError = nil
	msgs := s.copyMessagesLocked()
	s.mu.Unlock()

	metrics.TurnsTotal.WithLabelValues("resolved").Inc()
	metrics.TopMatches.Observe(float64(len(sel.TopMatches)))
	s.logger.Info("Turn resolved", map[string]interface{}{
		"top_matches": len(sel.TopMatches),
		"related":     len(sel.Related),
	})

	s.saveHistory(ctx, msgs)
}

func (s *Session) reject(ctx context.Context, epoch int, cause error) {
	s.mu.Lock()
	s.state, _ = reduce(s.state, eventReject)
	stale := epoch != s.epoch
	if !stale {
		text := s.opts.Translate(i18n.KeyError, s.locale)
		s.messages = append(s.messages, models.Message{Role: models.RoleAssistant, Text: text, Kind: models.KindPlain})
		s.lastError = &text
	}
	s.state, _ = reduce(s.state, eventSettle)
	msgs := s.copyMessagesLocked()
	s.mu.Unlock()

	metrics.TurnsTotal.WithLabelValues("rejected").Inc()
	s.logger.Warn("Turn rejected", map[string]interface{}{
		"error": cause,
		"stale": stale,
	})

	if !stale {
		s.saveHistory(ctx, msgs)
	}
}

// ToggleFeedback flips the like/dislike verdict for a catalog product.
// Only later turns are affected.
func (s *Session) ToggleFeedback(ctx context.Context, productID string, verdict models.Verdict) (models.Snapshot, error) {
	if !verdict.Valid() {
		return s.Snapshot(), fmt.Errorf("%w: %q", ErrInvalidVerdict, verdict)
	}
	if _, err := s.opts.Catalog.GetByID(productID); err != nil {
		return s.Snapshot(), fmt.Errorf("product %s: %w", productID, err)
	}

	v, set, err := s.feedback.Toggle(ctx, productID, verdict)
	if err != nil {
		s.logger.Error("Feedback not persisted", map[string]interface{}{
			"product_id": productID,
			"error":      err,
		})
	}

	state := "neutral"
	if set {
		state = string(v)
	}
	metrics.FeedbackToggles.WithLabelValues(state).Inc()
	return s.Snapshot(), nil
}

// Reset returns the conversation to the greeting and refills the pool.
// Feedback is kept. A reply still pending is discarded when it arrives.
func (s *Session) Reset(ctx context.Context) models.Snapshot {
	s.mu.Lock()
	s.epoch++
	s.messages = []models.Message{s.greeting(s.locale)}
	s.pool = catalog.Head(s.opts.Catalog.List(), PoolSize)
	s.lastError = nil
	s.mu.Unlock()

	if err := s.opts.Store.ClearHistory(ctx, s.id); err != nil {
		s.logger.Error("Failed to clear stored history", map[string]interface{}{"error": err})
	}
	s.logger.Info("Conversation reset", nil)
	return s.Snapshot()
}

// RateMessage sets the thumbs rating on an assistant reply. RatingNone
// clears it.
func (s *Session) RateMessage(ctx context.Context, index int, rating models.Rating) (models.Snapshot, error) {
	switch rating {
	case models.RatingUp, models.RatingDown, models.RatingNone:
	default:
		return s.Snapshot(), fmt.Errorf("%w: %q", ErrInvalidRating, rating)
	}

	s.mu.Lock()
	if index < 0 || index >= len(s.messages) {
		s.mu.Unlock()
		return s.Snapshot(), fmt.Errorf("%w: index %d out of range", ErrInvalidMessage, index)
	}
	m := &s.messages[index]
	if m.Role != models.RoleAssistant || m.Kind != models.KindPlain {
		s.mu.Unlock()
		return s.Snapshot(), fmt.Errorf("%w: index %d is not an assistant reply", ErrInvalidMessage, index)
	}
	m.Feedback = rating
	msgs := s.copyMessagesLocked()
	s.mu.Unlock()

	s.saveHistory(ctx, msgs)
	return s.Snapshot(), nil
}

// SetLocale switches the reply language. A conversation that holds only the
// greeting gets the greeting re-rendered.
func (s *Session) SetLocale(ctx context.Context, locale string) (models.Snapshot, error) {
	locale = i18n.Normalize(locale)
	if !i18n.Supported(locale) {
		return s.Snapshot(), fmt.Errorf("%w: %q", ErrInvalidLocale, locale)
	}

	s.mu.Lock()
	if s.locale == locale {
		s.mu.Unlock()
		return s.Snapshot(), nil
	}
	s.locale = locale
	var msgs []models.Message
	if len(s.messages) == 1 && s.messages[0].Role == models.RoleAssistant {
		s.messages[0] = s.greeting(locale)
		msgs = s.copyMessagesLocked()
	}
	s.mu.Unlock()

	if msgs != nil {
		s.saveHistory(ctx, msgs)
	}
	return s.Snapshot(), nil
}

// RecordView remembers that the shopper opened a product
func (s *Session) RecordView(ctx context.Context, productName string) error {
	return s.viewed.Record(ctx, productName)
}

// Recommendations suggests catalog products based on viewed items
func (s *Session) Recommendations() []models.Product {
	return history.Recommend(s.opts.Catalog.List(), s.viewed.Viewed())
}

// Snapshot returns a copy of everything a client renders
func (s *Session) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.Snapshot{
		SessionID:          s.id,
		Locale:             s.locale,
		Messages:           s.copyMessagesLocked(),
		RecommendationPool: append([]models.Product{}, s.pool...),
		IsAwaiting:         s.state == StateAwaiting,
		Feedback:           s.feedback.Snapshot(),
	}
	if s.lastError != nil {
		e := *s.lastError
		snap.LastError = &e
	}
	return snap
}

func (s *Session) greeting(locale string) models.Message {
	return models.Message{
		Role: models.RoleAssistant,
		Text: s.opts.Translate(i18n.KeyIntro, locale),
		Kind: models.KindPlain,
	}
}

func (s *Session) copyMessagesLocked() []models.Message {
	return append([]models.Message{}, s.messages...)
}

func (s *Session) saveHistory(ctx context.Context, msgs []models.Message) {
	if err := s.opts.Store.SaveHistory(ctx, s.id, msgs); err != nil {
		s.logger.Error("Failed to persist history", map[string]interface{}{"error": err})
	}
}
