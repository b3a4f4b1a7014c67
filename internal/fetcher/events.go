package fetcher

import "time"

// Event types emitted while fetching.
const (
	EventFetchStart  = "fetch_start"
	EventFetchDone   = "fetch_done"
	EventFetchFailed = "fetch_failed"
	EventCacheHit    = "cache_hit"
)

// Event describes fetch progress for live subscribers.
type Event struct {
	Type     string        `json:"type"`
	Series   string        `json:"series,omitempty"`
	Provider string        `json:"provider,omitempty"`
	Points   int           `json:"points,omitempty"`
	Error    string        `json:"error,omitempty"`
	Key      string        `json:"key,omitempty"`
	Took     time.Duration `json:"took,omitempty"`
}

// Observer receives fetch events. It is called synchronously from fetch
// goroutines and must not block.
type Observer func(Event)

func (f *Fetcher) notify(e Event) {
	for _, o := range f.observers {
		o(e)
	}
}
