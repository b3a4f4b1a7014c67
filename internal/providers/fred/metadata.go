package fred

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SeriesInfo is the descriptive metadata shown on a FRED series page.
type SeriesInfo struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Units       string `json:"units,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
	Updated     string `json:"updated,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

// Describe scrapes the public series page for code.
func (s *Source) Describe(ctx context.Context, code string) (*SeriesInfo, error) {
	if err := s.RateLimit(ctx); err != nil {
		return nil, err
	}
	pageURL := s.baseURL + "/series/" + code
	body, _, err := s.Client().DoGet(ctx, pageURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, fmt.Errorf("fred series page %s: %w", code, err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse series page %s: %w", code, err)
	}
	info := parseSeriesPage(doc)
	info.Code = code
	info.URL = pageURL
	return info, nil
}

func parseSeriesPage(doc *goquery.Document) *SeriesInfo {
	info := &SeriesInfo{}
	info.Title = strings.TrimSpace(doc.Find("#series-title-text-container").First().Text())
	if info.Title == "" {
		info.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		info.Description = strings.TrimSpace(desc)
	}

	// Label/value pairs, e.g. "Units:" followed by its value.
	doc.Find(".series-meta").Each(func(_ int, sel *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(sel.Find(".series-meta-label").Text()))
		value := strings.Join(strings.Fields(sel.Find(".series-meta-value").Text()), " ")
		switch {
		case strings.HasPrefix(label, "units"):
			info.Units = value
		case strings.HasPrefix(label, "frequency"):
			info.Frequency = value
		case strings.HasPrefix(label, "updated"):
			info.Updated = value
		}
	})
	return info
}
