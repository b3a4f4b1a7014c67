package yfinance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/crossasset/internal/infra"
	"github.com/seenimoa/crossasset/internal/provider"
	"github.com/seenimoa/crossasset/pkg/models"
)

// 2024-01-02, 2024-01-03 and 2024-01-04 at 14:30 UTC.
const goldChart = `{"chart":{"result":[{"meta":{"symbol":"GC=F","currency":"USD","gmtoffset":-18000},
"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{"close":[2064.4,null,2050.1]}],"adjclose":[{"adjclose":[2064.4,null,2050.1]}]}}],"error":null}}`

func newTestSource(t *testing.T, body string) *Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v8/finance/chart/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	client := infra.NewHTTPClient(infra.WithRetries(0), infra.WithTimeout(5*time.Second))
	return New(client, nil, WithBaseURL(srv.URL))
}

func TestSourceInfo(t *testing.T) {
	info := New(nil, nil).Info()
	if info.Name != "yfinance" {
		t.Errorf("expected name yfinance, got %s", info.Name)
	}
	if info.Kind != models.Asset {
		t.Errorf("expected asset kind, got %s", info.Kind)
	}
}

func TestFetchCloses(t *testing.T) {
	s := newTestSource(t, goldChart)
	series, err := s.Fetch(context.Background(), models.AssetRef("Gold", "GC=F"), provider.Full)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 points, got %d", series.Len())
	}
	if got := series.Points[0].Date; got != models.NewDate(2024, time.January, 2) {
		t.Errorf("first date: got %s, want 2024-01-02", got)
	}
	if !series.Points[1].Value.IsMissing() {
		t.Errorf("expected null close to be missing, got %v", series.Points[1].Value)
	}
	if f, _ := series.Points[2].Value.Float(); f != 2050.1 {
		t.Errorf("expected 2050.1, got %v", f)
	}
}

func TestClosesUsesExchangeDay(t *testing.T) {
	// 2024-01-02 01:00 UTC is still 2024-01-01 in New York.
	res := &chartResult{
		Meta:       chartMeta{Symbol: "^GSPC", GMTOffset: -18000},
		Timestamp:  []int64{1704157200},
		Indicators: indicators{Quote: []quote{{Close: []*float64{ptr(4700)}}}},
	}
	points := closes(res)
	if got := points[0].Date; got != models.NewDate(2024, time.January, 1) {
		t.Errorf("got %s, want 2024-01-01", got)
	}
}

func TestClosesFallsBackToAdjClose(t *testing.T) {
	res := &chartResult{
		Timestamp: []int64{1704205800, 1704292200},
		Indicators: indicators{
			Quote:    []quote{{Close: []*float64{nil, nil}}},
			AdjClose: []adjClose{{AdjClose: []*float64{ptr(1), ptr(2)}}},
		},
	}
	points := closes(res)
	if f, ok := points[1].Value.Float(); !ok || f != 2 {
		t.Errorf("expected adjclose fallback value 2, got %v", points[1].Value)
	}
}

func TestPickResultFromBatch(t *testing.T) {
	results := []chartResult{
		{Meta: chartMeta{Symbol: "SI=F"}},
		{Meta: chartMeta{Symbol: "GC=F"}},
	}
	res, err := pickResult(results, "gc=f")
	if err != nil {
		t.Fatalf("pickResult: %v", err)
	}
	if res.Meta.Symbol != "GC=F" {
		t.Errorf("picked %s, want GC=F", res.Meta.Symbol)
	}
	if _, err := pickResult(results, "BTC-USD"); err == nil {
		t.Error("expected error for symbol missing from batch")
	}
	if _, err := pickResult(nil, "GC=F"); err == nil {
		t.Error("expected error for empty result")
	}
}

func TestFetchChartError(t *testing.T) {
	s := newTestSource(t, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	_, err := s.Fetch(context.Background(), models.AssetRef("Nope", "NOPE"), provider.Full)
	if err == nil || !strings.Contains(err.Error(), "delisted") {
		t.Fatalf("expected chart error, got %v", err)
	}
}

func TestFetchAllNullIsEmpty(t *testing.T) {
	s := newTestSource(t, `{"chart":{"result":[{"meta":{"symbol":"X"},"timestamp":[1704205800],"indicators":{"quote":[{"close":[null]}]}}]}}`)
	_, err := s.Fetch(context.Background(), models.AssetRef("X", "X"), provider.Full)
	var empty *provider.ErrEmptySeries
	if !errors.As(err, &empty) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

func TestChartURL(t *testing.T) {
	s := New(nil, nil, WithBaseURL("http://example.test"))
	if u := s.chartURL("^GSPC", provider.Full); !strings.Contains(u, "range=max") || !strings.Contains(u, "/chart/%5EGSPC") {
		t.Errorf("unexpected full-range url %s", u)
	}
	rng := provider.Range{From: models.MustParseDate("2020-01-01"), To: models.MustParseDate("2020-12-31")}
	u := s.chartURL("GC=F", rng)
	if !strings.Contains(u, "period1=1577836800") || !strings.Contains(u, "period2=1609459200") {
		t.Errorf("unexpected bounded url %s", u)
	}
}

func ptr(f float64) *float64 { return &f }
