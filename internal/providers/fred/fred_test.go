package fred

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

const m2CSV = `observation_date,M2SL
2020-01-01,15400.1
2020-02-01,.
2020-03-01,16000.5
`

func newTestSource(t *testing.T, h http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client := infra.NewHTTPClient(infra.WithRetries(0), infra.WithTimeout(5*time.Second))
	return New(client, nil, WithBaseURL(srv.URL))
}

func TestSourceInfo(t *testing.T) {
	s := New(nil, nil)
	info := s.Info()
	if info.Name != "fred" {
		t.Errorf("expected name fred, got %s", info.Name)
	}
	if info.Kind != models.Macro {
		t.Errorf("expected macro kind, got %s", info.Kind)
	}
	if info.Website == "" {
		t.Error("expected non-empty website")
	}
}

func TestFetchParsesCSV(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graph/fredgraph.csv" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "M2SL" {
			t.Errorf("expected id=M2SL, got %q", got)
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(m2CSV))
	})

	ref := models.MacroRef("M2 Money Supply", "M2SL")
	series, err := s.Fetch(context.Background(), ref, provider.Full)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if series.Name != "M2 Money Supply" || series.Kind != models.Macro {
		t.Errorf("unexpected ref %v", series.Ref)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 points, got %d", series.Len())
	}
	if !series.Points[1].Value.IsMissing() {
		t.Errorf("expected '.' to be missing, got %v", series.Points[1].Value)
	}
	if f, _ := series.Points[2].Value.Float(); f != 16000.5 {
		t.Errorf("expected 16000.5, got %v", f)
	}
	if err := series.Validate(); err != nil {
		t.Error(err)
	}
}

func TestFetchLegacyDateHeader(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("DATE,CPIAUCSL\n2021-01-01,261.5\n2021-02-01,262.0\n"))
	})
	series, err := s.Fetch(context.Background(), models.MacroRef("CPI", "CPIAUCSL"), provider.Full)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 points, got %d", series.Len())
	}
	if series.Points[0].Date != models.NewDate(2021, time.January, 1) {
		t.Errorf("unexpected first date %s", series.Points[0].Date)
	}
}

func TestFetchRangeFilter(t *testing.T) {
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cosd") != "2020-02-01" {
			t.Errorf("expected cosd, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(m2CSV))
	})
	rng := provider.Range{From: models.MustParseDate("2020-02-01")}
	series, err := s.Fetch(context.Background(), models.MacroRef("M2", "M2SL"), rng)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if series.Len() != 2 {
		t.Errorf("expected 2 points inside range, got %d", series.Len())
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(error) bool
	}{
		{"server error", http.StatusInternalServerError, "boom", func(err error) bool {
			var e *infra.ErrHTTP
			return errors.As(err, &e)
		}},
		{"html instead of csv", http.StatusOK, "<html>oops</html>", func(err error) bool { return err != nil }},
		{"only placeholders", http.StatusOK, "observation_date,M2SL\n2020-01-01,.\n", func(err error) bool {
			var e *provider.ErrEmptySeries
			return errors.As(err, &e)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := s.Fetch(context.Background(), models.MacroRef("M2", "M2SL"), provider.Full)
			if !tt.wantErr(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestFetchRejectsAssetRef(t *testing.T) {
	s := New(nil, nil)
	_, err := s.Fetch(context.Background(), models.AssetRef("Gold", "GC=F"), provider.Full)
	var mismatch *provider.ErrKindMismatch
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	page := `<html><head><title>M2 | FRED</title>
<meta name="description" content="Money stock measure.">
</head><body>
<span id="series-title-text-container">M2</span>
<div class="series-meta"><span class="series-meta-label">Units:</span>
<span class="series-meta-value">Billions of Dollars,
 Seasonally Adjusted</span></div>
<div class="series-meta"><span class="series-meta-label">Frequency:</span><span class="series-meta-value">Monthly</span></div>
</body></html>`
	s := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/series/M2SL") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(page))
	})

	info, err := s.Describe(context.Background(), "M2SL")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if info.Title != "M2" {
		t.Errorf("title: got %q, want %q", info.Title, "M2")
	}
	if info.Units != "Billions of Dollars, Seasonally Adjusted" {
		t.Errorf("units: got %q", info.Units)
	}
	if info.Frequency != "Monthly" {
		t.Errorf("frequency: got %q", info.Frequency)
	}
	if info.Description != "Money stock measure." {
		t.Errorf("description: got %q", info.Description)
	}
}
