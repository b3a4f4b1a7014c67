package fetcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/crossasset/internal/provider"
	"github.com/seenimoa/crossasset/pkg/models"
)

type fakeSource struct {
	info  provider.Info
	fail  map[string]bool
	calls atomic.Int32
}

func (s *fakeSource) Info() provider.Info { return s.info }

func (s *fakeSource) Fetch(_ context.Context, ref models.Ref, _ provider.Range) (models.NamedSeries, error) {
	s.calls.Add(1)
	if s.fail[ref.Code] {
		return models.NamedSeries{}, errors.New("upstream unavailable")
	}
	return models.NewSeries(ref, []models.Point{
		{Date: models.MustParseDate("2024-01-01"), Value: models.Num(1)},
		{Date: models.MustParseDate("2024-01-02"), Value: models.Num(2)},
	}), nil
}

type fakeResolver struct {
	macro, asset *fakeSource
}

func (r fakeResolver) For(kind models.Kind) (provider.Source, error) {
	switch kind {
	case models.Macro:
		return r.macro, nil
	case models.Asset:
		return r.asset, nil
	}
	return nil, &provider.ErrSourceNotFound{Kind: kind}
}

func newResolver(failing ...string) fakeResolver {
	fail := make(map[string]bool)
	for _, code := range failing {
		fail[code] = true
	}
	return fakeResolver{
		macro: &fakeSource{info: provider.Info{Name: "fred", Kind: models.Macro}, fail: fail},
		asset: &fakeSource{info: provider.Info{Name: "yfinance", Kind: models.Asset}, fail: fail},
	}
}

func (r fakeResolver) calls() int32 { return r.macro.calls.Load() + r.asset.calls.Load() }

var (
	m2   = models.MacroRef("M2 Money Supply", "M2SL")
	gold = models.AssetRef("Gold", "GC=F")
	spx  = models.AssetRef("S&P 500", "^GSPC")
)

func TestFetchAllFailureIsNonFatal(t *testing.T) {
	res := newResolver("^GSPC")
	f := New(res, WithLogger(zerolog.Nop()))

	out, err := f.FetchAll(context.Background(), []models.Ref{m2, spx, gold}, provider.Full)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(out.Series) != 3 {
		t.Fatalf("expected 3 series, got %d", len(out.Series))
	}
	if out.Series[1].Name != "S&P 500" || !out.Series[1].Empty() {
		t.Errorf("failed series should be present and empty: %+v", out.Series[1])
	}
	if out.Series[0].Len() != 2 || out.Series[2].Len() != 2 {
		t.Error("successful series should keep their points")
	}
	if len(out.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(out.Warnings))
	}
	w := out.Warnings[0]
	if w.Series != "S&P 500" || w.Provider != "yfinance" {
		t.Errorf("unexpected warning %+v", w)
	}
	if len(out.NonEmpty()) != 2 {
		t.Errorf("NonEmpty: got %d, want 2", len(out.NonEmpty()))
	}
	if out.Err() == nil {
		t.Error("Err should report the warning")
	}
}

func TestFetchAllEmptyRefs(t *testing.T) {
	res := newResolver()
	out, err := New(res).FetchAll(context.Background(), nil, provider.Full)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Series) != 0 || res.calls() != 0 {
		t.Errorf("expected no series and no calls, got %d series, %d calls", len(out.Series), res.calls())
	}
}

func TestFetchAllDedupes(t *testing.T) {
	res := newResolver()
	out, err := New(res).FetchAll(context.Background(), []models.Ref{gold, gold, m2}, provider.Full)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Series) != 2 || res.calls() != 2 {
		t.Errorf("got %d series, %d calls; want 2, 2", len(out.Series), res.calls())
	}
}

func TestFetchAllUsesCache(t *testing.T) {
	clk := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clk }
	res := newResolver()
	f := New(res, WithCache(NewMemoryCache(time.Hour).WithClock(now)))
	refs := []models.Ref{m2, gold}

	first, err := f.FetchAll(context.Background(), refs, provider.Full)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Error("first fetch should not be cached")
	}
	second, err := f.FetchAll(context.Background(), refs, provider.Full)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || res.calls() != 2 {
		t.Errorf("expected cache hit, cached=%v calls=%d", second.Cached, res.calls())
	}

	// a different range is a different key
	rng := provider.Range{From: models.MustParseDate("2020-01-01")}
	if _, err := f.FetchAll(context.Background(), refs, rng); err != nil {
		t.Fatal(err)
	}
	if res.calls() != 4 {
		t.Errorf("expected refetch for new range, calls=%d", res.calls())
	}

	clk = clk.Add(61 * time.Minute)
	third, err := f.FetchAll(context.Background(), refs, provider.Full)
	if err != nil {
		t.Fatal(err)
	}
	if third.Cached || res.calls() != 6 {
		t.Errorf("expected refetch after TTL, cached=%v calls=%d", third.Cached, res.calls())
	}
}

func TestFetchAllCacheSeparatesNames(t *testing.T) {
	res := newResolver()
	f := New(res, WithCache(NewMemoryCache(time.Hour)))
	alias := models.AssetRef("Gold Futures", "GC=F")

	if _, err := f.FetchAll(context.Background(), []models.Ref{gold}, provider.Full); err != nil {
		t.Fatal(err)
	}
	out, err := f.FetchAll(context.Background(), []models.Ref{alias}, provider.Full)
	if err != nil {
		t.Fatal(err)
	}
	if out.Cached || out.Series[0].Name != "Gold Futures" {
		t.Errorf("alias served from another name's entry: cached=%v name=%q", out.Cached, out.Series[0].Name)
	}
	if got := res.calls(); got != 2 {
		t.Errorf("source calls: got %d, want 2", got)
	}
}

func TestFetchAllSkipsCacheOnWarnings(t *testing.T) {
	res := newResolver("GC=F")
	f := New(res, WithCache(NewMemoryCache(time.Hour)))
	refs := []models.Ref{m2, gold}
	for i := 0; i < 2; i++ {
		out, err := f.FetchAll(context.Background(), refs, provider.Full)
		if err != nil {
			t.Fatal(err)
		}
		if out.Cached {
			t.Error("partial result must not be served from cache")
		}
	}
	if res.calls() != 4 {
		t.Errorf("calls: got %d, want 4", res.calls())
	}
}

func TestCachedSnapshotIsIsolated(t *testing.T) {
	res := newResolver()
	f := New(res, WithCache(NewMemoryCache(time.Hour)))
	first, _ := f.FetchAll(context.Background(), []models.Ref{m2}, provider.Full)
	first.Series[0].Points[0].Value = models.Num(999)

	second, _ := f.FetchAll(context.Background(), []models.Ref{m2}, provider.Full)
	if v, _ := second.Series[0].Points[0].Value.Float(); v != 1 {
		t.Errorf("cached snapshot was mutated: got %v", v)
	}
}

func TestFetchUnknownKind(t *testing.T) {
	_, err := New(newResolver()).Fetch(context.Background(), models.Ref{Name: "x"}, provider.Full)
	var nf *provider.ErrSourceNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestObserverEvents(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	f := New(newResolver("GC=F"), WithObserver(func(e Event) {
		mu.Lock()
		seen[e.Type]++
		mu.Unlock()
	}))
	if _, err := f.FetchAll(context.Background(), []models.Ref{m2, gold}, provider.Full); err != nil {
		t.Fatal(err)
	}
	if seen[EventFetchStart] != 2 || seen[EventFetchDone] != 1 || seen[EventFetchFailed] != 1 {
		t.Errorf("unexpected events %v", seen)
	}
}

func TestFetchAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(newResolver()).FetchAll(ctx, []models.Ref{m2}, provider.Full); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func (m *memStore) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memStore) SetBytes(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = value
	return nil
}

func TestRedisCacheRoundTrip(t *testing.T) {
	store := &memStore{}
	c := newRedisCache(store, time.Hour, zerolog.Nop(), nil)
	key := Key{Refs: []models.Ref{m2}, Range: provider.Full}
	series := models.NewSeries(m2, []models.Point{
		{Date: models.MustParseDate("2024-01-01"), Value: models.Num(1.5)},
		{Date: models.MustParseDate("2024-02-01"), Value: models.Missing()},
	})

	c.Put(context.Background(), key, Entry{Series: []models.NamedSeries{series}})
	if _, ok := store.data[redisPrefix+"macro:M2SL(M2 Money Supply)|max"]; !ok {
		t.Fatalf("unexpected keys %v", store.data)
	}
	e, ok := c.Get(context.Background(), key)
	if !ok {
		t.Fatal("expected hit")
	}
	got := e.Series[0]
	if got.Name != m2.Name || got.Kind != models.Macro || got.Len() != 2 {
		t.Errorf("unexpected series %+v", got)
	}
	if !got.Points[1].Value.IsMissing() {
		t.Errorf("missing value not preserved: %v", got.Points[1].Value)
	}
	if err := c.Close(); err != nil {
		t.Error(err)
	}
}

func TestRedisCacheErrorsAreMisses(t *testing.T) {
	store := &memStore{err: errors.New("connection refused")}
	c := newRedisCache(store, time.Hour, zerolog.Nop(), nil)
	key := Key{Refs: []models.Ref{gold}}
	c.Put(context.Background(), key, Entry{})
	if _, ok := c.Get(context.Background(), key); ok {
		t.Error("expected miss on store error")
	}

	store = &memStore{data: map[string][]byte{redisPrefix + key.String(): []byte("{not json")}}
	c = newRedisCache(store, time.Hour, zerolog.Nop(), nil)
	if _, ok := c.Get(context.Background(), key); ok {
		t.Error("expected miss on corrupt entry")
	}
}

func TestLayeredCachePromotes(t *testing.T) {
	l1 := NewMemoryCache(time.Hour)
	l2 := newRedisCache(&memStore{}, time.Hour, zerolog.Nop(), nil)
	key := Key{Refs: []models.Ref{gold}}
	l2.Put(context.Background(), key, Entry{Series: []models.NamedSeries{{Ref: gold}}})

	c := NewLayeredCache(l1, l2)
	if _, ok := c.Get(context.Background(), key); !ok {
		t.Fatal("expected l2 hit")
	}
	if _, ok := l1.Get(context.Background(), key); !ok {
		t.Error("expected l2 hit to be promoted into l1")
	}
	if NewLayeredCache(l1, nil) != Cache(l1) {
		t.Error("nil l2 should return l1")
	}
}

func TestKeyString(t *testing.T) {
	k := Key{
		Refs:  []models.Ref{m2, gold},
		Range: provider.Range{From: models.MustParseDate("2020-01-01"), To: models.MustParseDate("2021-01-01")},
	}
	if got, want := k.String(), "macro:M2SL(M2 Money Supply),asset:GC=F(Gold)|2020-01-01..2021-01-01"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
