package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/toywonder-assistant/internal/catalog"
	"github.com/avvvet/toywonder-assistant/internal/i18n"
	"github.com/avvvet/toywonder-assistant/internal/llm"
	"github.com/avvvet/toywonder-assistant/internal/logger"
	"github.com/avvvet/toywonder-assistant/internal/memory"
	"github.com/avvvet/toywonder-assistant/internal/models"
)

type fakeGenerator struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []llm.Request

	started chan struct{}
	release chan struct{}
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

type fixture struct {
	kv       *memory.InMemoryStore
	gen      *fakeGenerator
	registry *Registry
}

func newFixture(t *testing.T, gen *fakeGenerator) *fixture {
	t.Helper()
	log := logger.NewTestLogger(t)
	kv := memory.NewInMemoryStore()

	reg, err := NewRegistry(Options{
		Catalog:   catalog.NewStaticRepository(catalog.DefaultProducts()),
		Generator: gen,
		Store:     memory.NewAdapter(kv, log),
		Timeout:   time.Second,
		Logger:    log,
	})
	require.NoError(t, err)
	return &fixture{kv: kv, gen: gen, registry: reg}
}

func (f *fixture) session(t *testing.T, id string) *Session {
	t.Helper()
	s, err := f.registry.Session(context.Background(), id)
	require.NoError(t, err)
	return s
}

func productIDs(ps []models.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestReduce(t *testing.T) {
	tests := []struct {
		from State
		ev   event
		to   State
		ok   bool
	}{
		{StateIdle, eventSubmit, StateAwaiting, true},
		{StateAwaiting, eventResolve, StateIdle, true},
		{StateAwaiting, eventReject, StateErrorRecovering, true},
		{StateErrorRecovering, eventSettle, StateIdle, true},
		{StateAwaiting, eventSubmit, StateAwaiting, false},
		{StateIdle, eventResolve, StateIdle, false},
		{StateErrorRecovering, eventSubmit, StateErrorRecovering, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			got, ok := reduce(tt.from, tt.ev)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.to, got)
		})
	}
}

func TestNewSession_InitialState(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	snap := f.session(t, "s1").Snapshot()

	require.Len(t, snap.Messages, 1)
	assert.Equal(t, i18n.Translate(i18n.KeyIntro, "en"), snap.Messages[0].Text)
	assert.Equal(t, models.RoleAssistant, snap.Messages[0].Role)
	// first five catalog items, most reviewed first
	assert.Equal(t, []string{"3", "1", "5", "2", "4"}, productIDs(snap.RecommendationPool))
	assert.False(t, snap.IsAwaiting)
	assert.Nil(t, snap.LastError)
	assert.Empty(t, snap.Feedback)
}

func TestSubmit_ResolvesWithMatches(t *testing.T) {
	gen := &fakeGenerator{reply: "The Cuddly Elephant is adorable"}
	f := newFixture(t, gen)
	s := f.session(t, "s1")

	snap, err := s.Submit(context.Background(), "something soft for a toddler")
	require.NoError(t, err)

	require.Len(t, snap.Messages, 4)
	assert.Equal(t, models.RoleUser, snap.Messages[1].Role)
	assert.Equal(t, "The Cuddly Elephant is adorable", snap.Messages[2].Text)

	products := snap.Messages[3]
	assert.Equal(t, models.KindProducts, products.Kind)
	assert.Equal(t, "Here are the best matches for that:", products.Text)
	assert.Equal(t, []string{"3", "7"}, productIDs(products.Products))

	// nothing else in Plushies, so the pool is the catalog minus inline matches
	assert.Equal(t, []string{"1", "2", "4", "5", "6"}, productIDs(snap.RecommendationPool))
	assert.False(t, snap.IsAwaiting)
	assert.Equal(t, StateIdle, s.State())

	require.Len(t, gen.requests, 1)
	assert.Equal(t, llm.Request{Message: "something soft for a toddler", Domain: "toys", Audience: "any", Locale: "en"}, gen.requests[0])
}

func TestSubmit_HistoryPersisted(t *testing.T) {
	gen := &fakeGenerator{reply: "The Cuddly Elephant is adorable"}
	f := newFixture(t, gen)
	_, err := f.session(t, "s1").Submit(context.Background(), "plush")
	require.NoError(t, err)

	// a fresh registry over the same store sees the conversation
	reg, err := NewRegistry(Options{Generator: gen, Store: memory.NewAdapter(f.kv, logger.NewNoOpLogger())})
	require.NoError(t, err)
	s, err := reg.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Messages, 4)
}

func TestSubmit_NoOverlapUsesCatalogHead(t *testing.T) {
	f := newFixture(t, &fakeGenerator{reply: "asdf qwer"})
	s := f.session(t, "s1")

	snap, err := s.Submit(context.Background(), "hmm")
	require.NoError(t, err)

	require.Len(t, snap.Messages, 3, "no product message without matches")
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, productIDs(snap.RecommendationPool))
}

func TestSubmit_EmptyInput(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	f := newFixture(t, gen)
	s := f.session(t, "s1")

	snap, err := s.Submit(context.Background(), " \n\t ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Len(t, snap.Messages, 1)
	assert.Empty(t, gen.requests)
}

func TestSubmit_BusyWhileAwaiting(t *testing.T) {
	gen := &fakeGenerator{
		reply:   "asdf",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFixture(t, gen)
	s := f.session(t, "s1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Submit(context.Background(), "hello")
	}()
	<-gen.started

	before := s.Snapshot()
	assert.True(t, before.IsAwaiting)
	require.Len(t, before.Messages, 2)

	snap, err := s.Submit(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Len(t, snap.Messages, 2, "message list unchanged while awaiting")

	close(gen.release)
	<-done

	after := s.Snapshot()
	assert.False(t, after.IsAwaiting)
	assert.Len(t, after.Messages, 3)
	assert.Len(t, gen.requests, 1)
}

func TestSubmit_RejectionAppendsOneFallback(t *testing.T) {
	tests := []struct {
		name   string
		gen    *fakeGenerator
		locale string
	}{
		{"generator error", &fakeGenerator{err: errors.New("503 from upstream")}, "en"},
		{"bengali", &fakeGenerator{err: errors.New("boom")}, "bn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.gen)
			s := f.session(t, "s1")
			_, err := s.SetLocale(context.Background(), tt.locale)
			require.NoError(t, err)
			poolBefore := s.Snapshot().RecommendationPool

			snap, err := s.Submit(context.Background(), "hello")
			require.NoError(t, err)

			want := i18n.Translate(i18n.KeyError, tt.locale)
			require.Len(t, snap.Messages, 3)
			assert.Equal(t, want, snap.Messages[2].Text)
			assert.Equal(t, models.KindPlain, snap.Messages[2].Kind)
			assert.False(t, snap.IsAwaiting)
			require.NotNil(t, snap.LastError)
			assert.Equal(t, want, *snap.LastError)
			assert.Equal(t, poolBefore, snap.RecommendationPool)
			assert.Equal(t, StateIdle, s.State())
		})
	}
}

func TestSubmit_EmptyReplyUsesNoIdeasText(t *testing.T) {
	for _, locale := range []string{"en", "bn"} {
		t.Run(locale, func(t *testing.T) {
			f := newFixture(t, &fakeGenerator{reply: " \n "})
			s := f.session(t, "s1")
			_, err := s.SetLocale(context.Background(), locale)
			require.NoError(t, err)

			snap, err := s.Submit(context.Background(), "hello")
			require.NoError(t, err)

			require.GreaterOrEqual(t, len(snap.Messages), 3)
			assert.Equal(t, i18n.Translate(i18n.KeyNoIdeas, locale), snap.Messages[2].Text)
			assert.Equal(t, models.KindPlain, snap.Messages[2].Kind)
			assert.Nil(t, snap.LastError)
			assert.False(t, snap.IsAwaiting)
		})
	}
}

func TestSubmit_NextTurnClearsLastError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("down")}
	f := newFixture(t, gen)
	s := f.session(t, "s1")

	snap, _ := s.Submit(context.Background(), "hello")
	require.NotNil(t, snap.LastError)

	gen.err = nil
	gen.reply = "asdf"
	snap, err := s.Submit(context.Background(), "again")
	require.NoError(t, err)
	assert.Nil(t, snap.LastError)
}

func TestSubmit_Timeout(t *testing.T) {
	gen := &fakeGenerator{reply: "late", release: make(chan struct{})}
	log := logger.NewTestLogger(t)
	reg, err := NewRegistry(Options{Generator: gen, Timeout: 20 * time.Millisecond, Logger: log})
	require.NoError(t, err)
	s, err := reg.Session(context.Background(), "s1")
	require.NoError(t, err)

	snap, err := s.Submit(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, i18n.Translate(i18n.KeyError, "en"), snap.Messages[2].Text)
	assert.False(t, snap.IsAwaiting)
}

func TestToggleFeedback(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	s := f.session(t, "s1")
	ctx := context.Background()

	snap, err := s.ToggleFeedback(ctx, "1", models.VerdictLike)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.Verdict{"1": models.VerdictLike}, snap.Feedback)

	snap, err = s.ToggleFeedback(ctx, "1", models.VerdictLike)
	require.NoError(t, err)
	assert.Empty(t, snap.Feedback)

	_, err = s.ToggleFeedback(ctx, "404", models.VerdictLike)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = s.ToggleFeedback(ctx, "1", models.Verdict("meh"))
	assert.ErrorIs(t, err, ErrInvalidVerdict)
}

func TestToggleFeedback_AffectsLaterTurns(t *testing.T) {
	gen := &fakeGenerator{reply: "Something cuddly"}
	f := newFixture(t, gen)
	s := f.session(t, "s1")
	ctx := context.Background()

	snap, err := s.Submit(ctx, "plush")
	require.NoError(t, err)
	first := snap.Messages[len(snap.Messages)-1]
	assert.Equal(t, []string{"3", "7"}, productIDs(first.Products))

	_, err = s.ToggleFeedback(ctx, "3", models.VerdictDislike)
	require.NoError(t, err)

	snap, err = s.Submit(ctx, "plush again")
	require.NoError(t, err)
	second := snap.Messages[len(snap.Messages)-1]
	assert.Equal(t, []string{"7", "3"}, productIDs(second.Products))

	// earlier turns are not rescored
	assert.Equal(t, []string{"3", "7"}, productIDs(snap.Messages[3].Products))
}

func TestReset_KeepsFeedback(t *testing.T) {
	f := newFixture(t, &fakeGenerator{reply: "The Cuddly Elephant is adorable"})
	s := f.session(t, "s1")
	ctx := context.Background()

	_, err := s.ToggleFeedback(ctx, "5", models.VerdictLike)
	require.NoError(t, err)
	_, err = s.Submit(ctx, "plush")
	require.NoError(t, err)

	snap := s.Reset(ctx)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, i18n.Translate(i18n.KeyIntro, "en"), snap.Messages[0].Text)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, productIDs(snap.RecommendationPool))
	assert.Equal(t, map[string]models.Verdict{"5": models.VerdictLike}, snap.Feedback)

	_, ok, err := f.kv.Get(ctx, memory.Key("s1", memory.KeyChatHistory))
	require.NoError(t, err)
	assert.False(t, ok, "stored history removed")

	_, ok, err = f.kv.Get(ctx, memory.Key("s1", memory.KeyProductFeedback))
	require.NoError(t, err)
	assert.True(t, ok, "stored feedback kept")
}

func TestReset_DropsPendingReply(t *testing.T) {
	gen := &fakeGenerator{
		reply:   "The Cuddly Elephant is adorable",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFixture(t, gen)
	s := f.session(t, "s1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Submit(context.Background(), "plush")
	}()
	<-gen.started

	s.Reset(context.Background())
	close(gen.release)
	<-done

	snap := s.Snapshot()
	assert.Len(t, snap.Messages, 1)
	assert.False(t, snap.IsAwaiting)
	assert.Equal(t, StateIdle, s.State())
}

func TestRateMessage(t *testing.T) {
	f := newFixture(t, &fakeGenerator{reply: "asdf"})
	s := f.session(t, "s1")
	ctx := context.Background()
	_, err := s.Submit(ctx, "hello")
	require.NoError(t, err)

	snap, err := s.RateMessage(ctx, 2, models.RatingUp)
	require.NoError(t, err)
	assert.Equal(t, models.RatingUp, snap.Messages[2].Feedback)

	snap, err = s.RateMessage(ctx, 2, models.RatingNone)
	require.NoError(t, err)
	assert.Equal(t, models.RatingNone, snap.Messages[2].Feedback)

	_, err = s.RateMessage(ctx, 1, models.RatingDown)
	assert.ErrorIs(t, err, ErrInvalidMessage, "user messages cannot be rated")

	_, err = s.RateMessage(ctx, 9, models.RatingDown)
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = s.RateMessage(ctx, 2, models.Rating("sideways"))
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestSetLocale(t *testing.T) {
	f := newFixture(t, &fakeGenerator{reply: "asdf"})
	s := f.session(t, "s1")
	ctx := context.Background()

	snap, err := s.SetLocale(ctx, "bn-BD")
	require.NoError(t, err)
	assert.Equal(t, "bn", snap.Locale)
	assert.Equal(t, i18n.Translate(i18n.KeyIntro, "bn"), snap.Messages[0].Text)

	snap, err = s.SetLocale(ctx, "de")
	assert.ErrorIs(t, err, ErrInvalidLocale)
	assert.Equal(t, "bn", snap.Locale)

	_, err = s.Submit(ctx, "hello")
	require.NoError(t, err)

	snap, err = s.SetLocale(ctx, "en")
	require.NoError(t, err)
	assert.Equal(t, i18n.Translate(i18n.KeyIntro, "bn"), snap.Messages[0].Text, "greeting kept once the chat has started")
}

func TestNewSession_UnsupportedDefaultLocale(t *testing.T) {
	reg, err := NewRegistry(Options{Generator: &fakeGenerator{}, Locale: "de", Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	s, err := reg.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "en", s.Snapshot().Locale)
}

func TestSession_CorruptStoredState(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	ctx := context.Background()
	require.NoError(t, f.kv.Set(ctx, memory.Key("s1", memory.KeyProductFeedback), "{not json"))
	require.NoError(t, f.kv.Set(ctx, memory.Key("s1", memory.KeyChatHistory), "[{"))

	snap := f.session(t, "s1").Snapshot()
	assert.Empty(t, snap.Feedback)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, i18n.Translate(i18n.KeyIntro, "en"), snap.Messages[0].Text)
}

func TestRecordViewAndRecommendations(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	s := f.session(t, "s1")
	ctx := context.Background()

	assert.Equal(t, []string{"1", "2", "3"}, productIDs(s.Recommendations()))

	require.NoError(t, s.RecordView(ctx, "Cuddly Elephant"))
	assert.Equal(t, []string{"3", "7"}, productIDs(s.Recommendations()))
}

func TestRegistry(t *testing.T) {
	f := newFixture(t, &fakeGenerator{})
	ctx := context.Background()

	a, err := f.registry.Session(ctx, "s1")
	require.NoError(t, err)
	b, err := f.registry.Session(ctx, " s1 ")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, f.registry.Len())

	_, err = f.registry.Session(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = NewRegistry(Options{})
	assert.Error(t, err)
}

// flakyKV fails the next failGets reads, then defers to the wrapped store
type flakyKV struct {
	*memory.InMemoryStore
	mu       sync.Mutex
	failGets int
}

func (f *flakyKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failGets > 0
	if fail {
		f.failGets--
	}
	f.mu.Unlock()
	if fail {
		return "", false, errors.New("i/o timeout")
	}
	return f.InMemoryStore.Get(ctx, key)
}

func TestRegistry_ReadFailureDoesNotOverwriteStoredState(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger(t)
	kv := &flakyKV{InMemoryStore: memory.NewInMemoryStore()}
	store := memory.NewAdapter(kv, log)

	stored := []models.Message{
		{Role: models.RoleAssistant, Text: i18n.Translate(i18n.KeyIntro, "en"), Kind: models.KindPlain},
		{Role: models.RoleUser, Text: "robots", Kind: models.KindPlain},
		{Role: models.RoleAssistant, Text: "Try the Super Galactic Robot", Kind: models.KindPlain},
	}
	require.NoError(t, store.SaveHistory(ctx, "s1", stored))
	require.NoError(t, store.SaveFeedback(ctx, "s1", map[string]models.Verdict{
		"1": models.VerdictLike,
		"3": models.VerdictDislike,
	}))

	reg, err := NewRegistry(Options{Generator: &fakeGenerator{reply: "asdf"}, Store: store, Logger: log})
	require.NoError(t, err)

	kv.failGets = 1
	_, err = reg.Session(ctx, "s1")
	require.Error(t, err)
	assert.Zero(t, reg.Len(), "failed load is not cached")

	s, err := reg.Session(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, stored, s.Snapshot().Messages)

	_, err = s.ToggleFeedback(ctx, "2", models.VerdictLike)
	require.NoError(t, err)
	fb, err := store.LoadFeedback(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]models.Verdict{
		"1": models.VerdictLike,
		"2": models.VerdictLike,
		"3": models.VerdictDislike,
	}, fb)

	_, err = s.Submit(ctx, "hello")
	require.NoError(t, err)
	history, err := store.LoadHistory(ctx, "s1", models.Message{})
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, stored, history[:3])
}

func TestRegistry_EvictIdle(t *testing.T) {
	gen := &fakeGenerator{
		reply:   "asdf",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFixture(t, gen)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f.registry.now = func() time.Time { return now }

	idle := f.session(t, "idle")
	_, err := idle.ToggleFeedback(ctx, "4", models.VerdictLike)
	require.NoError(t, err)
	busy := f.session(t, "busy")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = busy.Submit(ctx, "hello")
	}()
	<-gen.started

	now = now.Add(10 * time.Minute)
	f.session(t, "fresh")

	assert.Zero(t, f.registry.EvictIdle(time.Hour))
	assert.Equal(t, 1, f.registry.EvictIdle(5*time.Minute), "awaiting sessions are kept")
	assert.Equal(t, 2, f.registry.Len())

	close(gen.release)
	<-done

	// an evicted session reloads its stored state
	reloaded := f.session(t, "idle")
	assert.NotSame(t, idle, reloaded)
	assert.Equal(t, map[string]models.Verdict{"4": models.VerdictLike}, reloaded.Snapshot().Feedback)
}
