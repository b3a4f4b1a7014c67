package fetcher

import (
	"context"
	"strings"
	"time"

	"github.com/seenimoa/crossasset/internal/infra"
	"github.com/seenimoa/crossasset/internal/provider"
	"github.com/seenimoa/crossasset/pkg/models"
)

// Key identifies one cached fetch: an ordered set of series and a range.
type Key struct {
	Refs  []models.Ref
	Range provider.Range
}

// String renders the key, e.g. "macro:M2SL(M2),asset:GC=F(Gold)|max".
func (k Key) String() string {
	var b strings.Builder
	for i, r := range k.Refs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(r.Kind.String())
		b.WriteByte(':')
		b.WriteString(r.Code)
		b.WriteByte('(')
		b.WriteString(r.Name)
		b.WriteByte(')')
	}
	b.WriteByte('|')
	b.WriteString(k.Range.String())
	return b.String()
}

// Entry is an immutable snapshot of a completed fetch.
type Entry struct {
	Series    []models.NamedSeries `json:"series"`
	FetchedAt time.Time            `json:"fetched_at"`
}

func (e Entry) clone() Entry {
	out := Entry{Series: make([]models.NamedSeries, len(e.Series)), FetchedAt: e.FetchedAt}
	for i, s := range e.Series {
		out.Series[i] = s.Clone()
	}
	return out
}

// Cache stores fetch snapshots. Implementations must be safe for
// concurrent use; overwriting a key with an equivalent entry is allowed.
type Cache interface {
	Get(ctx context.Context, key Key) (Entry, bool)
	Put(ctx context.Context, key Key, e Entry)
}

// MemoryCache is a process-local Cache with a fixed TTL.
type MemoryCache struct {
	c *infra.Cache[Entry]
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: infra.NewCache[Entry](ttl)}
}

// WithClock replaces the time source; used by tests.
func (m *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	m.c.WithClock(now)
	return m
}

func (m *MemoryCache) Get(_ context.Context, key Key) (Entry, bool) {
	e, ok := m.c.Get(key.String())
	if !ok {
		return Entry{}, false
	}
	return e.Value.clone(), true
}

func (m *MemoryCache) Put(_ context.Context, key Key, e Entry) {
	m.c.Set(key.String(), e.clone())
}

// Flush drops every entry.
func (m *MemoryCache) Flush() { m.c.Flush() }

// LayeredCache checks a fast local cache before a shared one and writes to both.
type LayeredCache struct {
	l1, l2 Cache
}

// NewLayeredCache combines two caches. l2 may be nil.
func NewLayeredCache(l1, l2 Cache) Cache {
	if l2 == nil {
		return l1
	}
	return &LayeredCache{l1: l1, l2: l2}
}

func (c *LayeredCache) Get(ctx context.Context, key Key) (Entry, bool) {
	if e, ok := c.l1.Get(ctx, key); ok {
		return e, true
	}
	e, ok := c.l2.Get(ctx, key)
	if ok {
		c.l1.Put(ctx, key, e)
	}
	return e, ok
}

func (c *LayeredCache) Put(ctx context.Context, key Key, e Entry) {
	c.l1.Put(ctx, key, e)
	c.l2.Put(ctx, key, e)
}

// noCache never hits.
type noCache struct{}

func (noCache) Get(context.Context, Key) (Entry, bool) { return Entry{}, false }
func (noCache) Put(context.Context, Key, Entry) {}
