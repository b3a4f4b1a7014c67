package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/crossasset/internal/infra"
	"github.com/seenimoa/crossasset/pkg/models"
)

// EventFeed turns an RSS or Atom feed into chart annotations.
type EventFeed struct {
	url    string
	parser *gofeed.Parser
	cache  *infra.Cache[[]Event]
}

// NewEventFeed creates a feed reader. Results are cached for ttl.
func NewEventFeed(url string, ttl time.Duration) *EventFeed {
	return &EventFeed{
		url:    url,
		parser: gofeed.NewParser(),
		cache:  infra.NewCache[[]Event](ttl),
	}
}

// Events fetches the feed. Items without a publication date are skipped.
func (f *EventFeed) Events(ctx context.Context) ([]Event, error) {
	if f == nil || f.url == "" {
		return nil, nil
	}
	if e, ok := f.cache.Get(f.url); ok {
		return e.Value, nil
	}

	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse event feed %s: %w", f.url, err)
	}

	events := make([]Event, 0, len(feed.Items))
	for _, item := range feed.Items {
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil {
			continue
		}
		events = append(events, Event{
			Date:   models.DateOf(published.UTC()),
			Label:  strings.TrimSpace(item.Title),
			Detail: cleanHTML(item.Description),
			Source: feed.Title,
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })

	f.cache.Set(f.url, events)
	return events, nil
}

// cleanHTML strips markup from a feed description.
func cleanHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
