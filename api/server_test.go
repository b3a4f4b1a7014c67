package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seenimoa/crossasset/internal/analytics"
	"github.com/seenimoa/crossasset/internal/catalog"
	"github.com/seenimoa/crossasset/internal/config"
	"github.com/seenimoa/crossasset/internal/fetcher"
	"github.com/seenimoa/crossasset/internal/infra"
	"github.com/seenimoa/crossasset/internal/pipeline"
	"github.com/seenimoa/crossasset/internal/provider"
	"github.com/seenimoa/crossasset/internal/transform"
	"github.com/seenimoa/crossasset/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

type cannedSource struct {
	kind models.Kind
	data map[string][]models.Point
}

func (s *cannedSource) Info() provider.Info {
	return provider.Info{Name: "canned-" + s.kind.String(), Kind: s.kind}
}

func (s *cannedSource) Fetch(_ context.Context, ref models.Ref, _ provider.Range) (models.NamedSeries, error) {
	pts, ok := s.data[ref.Code]
	if !ok {
		return models.NamedSeries{}, &provider.ErrEmptySeries{Ref: ref}
	}
	return models.NewSeries(ref, pts), nil
}

func line(from string, n, step int, f func(i int) float64) []models.Point {
	start := models.MustParseDate(from)
	out := make([]models.Point, n)
	for i := range out {
		out[i] = models.Point{Date: start.Add(i * step), Value: models.Num(f(i))}
	}
	return out
}

func testServer(t *testing.T) *Server {
	t.Helper()
	macro := &cannedSource{kind: models.Macro, data: map[string][]models.Point{
		"M2SL":     line("2020-01-01", 24, 30, func(i int) float64 { return 15000 + 100*float64(i) }),
		"CPIAUCSL": line("2020-01-01", 24, 30, func(i int) float64 { return 250 + float64(i*i)/10 }),
	}}
	asset := &cannedSource{kind: models.Asset, data: map[string][]models.Point{
		"GC=F":  line("2020-01-01", 700, 1, func(i int) float64 { return 1500 + float64(i) + 20*float64(i%7) }),
		"^GSPC": line("2020-01-01", 700, 1, func(i int) float64 { return 3000 + 3*float64(i) - 15*float64(i%11) }),
	}}
	reg, err := provider.NewRegistry(macro, asset)
	if err != nil {
		t.Fatal(err)
	}

	hub := NewWSHub()
	go hub.Run()
	t.Cleanup(hub.Close)

	metrics := prometheus.NewRegistry()
	rec := infra.NewRecorder(metrics)
	f := fetcher.New(reg, fetcher.WithObserver(hub.Observe), fetcher.WithMetrics(rec))
	runner := pipeline.New(catalog.Default(), f, pipeline.WithMetrics(rec))

	cfg := config.Default()
	cfg.Cache.RedisPassword = "super-secret-password"
	return NewServer(cfg, runner, WithHub(hub), WithGatherer(metrics))
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func dataMap(t *testing.T, resp APIResponse) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %T", resp.Data)
	}
	return m
}

const goldVsM2 = `{"references":["M2 Money Supply"],"assets":["Gold","S&P 500"],"range":"max"}`

// ════════════════════════════════════════════════════════════════════
// Health, config and catalog
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		resp := decodeResponse(t, rec)
		if !resp.Success || dataMap(t, resp)["status"] != "ok" {
			t.Errorf("%s: unexpected body %+v", path, resp)
		}
	}
}

func TestConfigHidesSecrets(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "super-secret-password") {
		t.Error("config response leaks the redis password")
	}
	if !strings.Contains(body, "sup...ord") {
		t.Errorf("expected masked secret in %s", body)
	}
}

func TestCatalogAndStories(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/catalog", "")
	resp := decodeResponse(t, rec)
	cat := dataMap(t, resp)
	if macro, _ := cat["macro"].([]any); len(macro) != 9 {
		t.Errorf("expected 9 macro entries, got %d", len(macro))
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/stories", "")
	resp = decodeResponse(t, rec)
	stories, _ := resp.Data.([]any)
	if len(stories) != 5 {
		t.Errorf("expected 5 stories, got %d", len(stories))
	}
}

func TestEvents(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/events?from=2019-01-01&to=2021-01-01", "")
	resp := decodeResponse(t, rec)
	events, _ := resp.Data.([]any)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %v", resp.Data)
	}
	if label := events[0].(map[string]any)["label"]; label != "COVID Stimulus" {
		t.Errorf("label: got %v", label)
	}

	if rec := do(t, srv, http.MethodGet, "/api/v1/events?from=yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status %d", rec.Code)
	}
}

// ════════════════════════════════════════════════════════════════════
// Comparison
// ════════════════════════════════════════════════════════════════════

func TestCompare(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/compare", goldVsM2)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	data := dataMap(t, decodeResponse(t, rec))
	if data["anchor"] != "M2 Money Supply" {
		t.Errorf("anchor: got %v", data["anchor"])
	}
	normalized, _ := data["normalized"].(map[string]any)
	if normalized == nil || normalized["dates"] == nil {
		t.Errorf("expected normalized table, got %v", data["normalized"])
	}
	if _, ok := data["Shifted"]; ok {
		t.Error("shifted table should not be serialized")
	}
}

func TestCompareErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"empty selection", `{}`, http.StatusNotFound},
		{"unknown series", `{"assets":["Dogecoin"]}`, http.StatusBadRequest},
		{"bad range", `{"assets":["Gold"],"range":"3y"}`, http.StatusBadRequest},
		{"shift out of bounds", `{"assets":["Gold"],"shift_months":-25}`, http.StatusBadRequest},
		{"malformed body", `{"assets":`, http.StatusBadRequest},
		{"no data in window", `{"assets":["Gold"],"range":"custom","start":"1990-01-01","end":"1990-12-31"}`, http.StatusNotFound},
	}
	srv := testServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/v1/compare", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			resp := decodeResponse(t, rec)
			if resp.Success || resp.Error == "" {
				t.Errorf("expected error envelope, got %+v", resp)
			}
		})
	}
}

func TestCompareNoDataNamesFailedSeries(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/compare", `{"assets":["Bitcoin","Silver"],"range":"max"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d (%s)", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Success || resp.Error == "" {
		t.Errorf("expected error envelope, got %+v", resp)
	}
	if len(resp.Warnings) != 2 ||
		!strings.HasPrefix(resp.Warnings[0], "Bitcoin:") ||
		!strings.HasPrefix(resp.Warnings[1], "Silver:") {
		t.Errorf("warnings: %q", resp.Warnings)
	}
}

func TestExport(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/export", `{"assets":["Gold"],"range":"max","mode":"raw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "cross_asset_data.csv") {
		t.Errorf("Content-Disposition: %q", cd)
	}
	sc := bufio.NewScanner(rec.Body)
	sc.Scan()
	if sc.Text() != "Date,Gold" {
		t.Errorf("header: got %q", sc.Text())
	}
	sc.Scan()
	if sc.Text() != "2020-01-01,1500" {
		t.Errorf("first row: got %q", sc.Text())
	}
}

// ════════════════════════════════════════════════════════════════════
// Analytics
// ════════════════════════════════════════════════════════════════════

func TestCorrelation(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/correlation", goldVsM2)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	m := dataMap(t, decodeResponse(t, rec))
	if cols, _ := m["columns"].([]any); len(cols) != 3 {
		t.Errorf("columns: %v", m["columns"])
	}
}

func TestRollingDefaults(t *testing.T) {
	srv := testServer(t)
	body := `{"references":["M2 Money Supply"],"assets":["Gold"],"range":"max","window":30}`
	rec := do(t, srv, http.MethodPost, "/api/v1/rolling", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	data := dataMap(t, decodeResponse(t, rec))
	if data["x"] != "M2 Money Supply" || data["y"] != "Gold" {
		t.Errorf("pair: %v / %v", data["x"], data["y"])
	}
	dates, _ := data["dates"].([]any)
	values, _ := data["values"].([]any)
	if len(dates) == 0 || len(dates) != len(values) {
		t.Errorf("dates %d, values %d", len(dates), len(values))
	}
	if data["window"] != float64(30) {
		t.Errorf("window: %v", data["window"])
	}
}

func TestScatter(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/scatter", `{"assets":["Gold","S&P 500"],"range":"max","x":"Gold","y":"S&P 500"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/scatter", `{"assets":["Gold"],"range":"max","x":"Gold","y":"Gold"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("same column: status %d", rec.Code)
	}
}

func TestSensitivityNeedsFactors(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/sensitivity", `{"references":["M2 Money Supply"],"assets":["Gold"],"range":"max"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("one factor: status %d", rec.Code)
	}
	rec = do(t, srv, http.MethodPost, "/api/v1/sensitivity", `{"references":["M2 Money Supply","CPI (Inflation)"],"assets":["Gold"],"range":"max"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("two factors: status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOverlay(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/overlay", `{"assets":["Gold"],"range":"max","mode":"raw","window":20}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Gold_BB_Upper") {
		t.Error("expected Bollinger columns")
	}
}

func TestSummaryFormats(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/summary", goldVsM2)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	data := dataMap(t, decodeResponse(t, rec))
	if board, _ := data["leaderboard"].([]any); len(board) != 2 {
		t.Errorf("leaderboard: %v", data["leaderboard"])
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/summary?format=markdown", goldVsM2)
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown") || !strings.Contains(rec.Body.String(), "| Asset") {
		t.Errorf("markdown: %s", rec.Body.String())
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/summary?format=html", goldVsM2)
	if !strings.Contains(rec.Body.String(), "<table>") {
		t.Errorf("html: %s", rec.Body.String())
	}
}

func TestPurchasingPower(t *testing.T) {
	srv := testServer(t)
	body := `{"assets":["Gold"],"range":"max","amount":"1000","base_date":"2020-01-01"}`
	rec := do(t, srv, http.MethodPost, "/api/v1/purchasing-power", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	data := dataMap(t, decodeResponse(t, rec))
	holdings, _ := data["holdings"].([]any)
	if len(holdings) != 1 {
		t.Fatalf("holdings: %v", data["holdings"])
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/purchasing-power", `{"assets":["Gold"],"range":"max","amount":"-5"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative amount: status %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)
	do(t, srv, http.MethodPost, "/api/v1/compare", goldVsM2)
	rec := do(t, srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	for _, name := range []string{"crossasset_series_fetches_total", "crossasset_pipeline_runs_total"} {
		if !strings.Contains(rec.Body.String(), name) {
			t.Errorf("missing metric %s", name)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", pipeline.ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("x: %w", catalog.ErrUnknownSeries), http.StatusBadRequest},
		{analytics.ErrSameColumn, http.StatusBadRequest},
		{transform.ErrUnknownColumn, http.StatusBadRequest},
		{pipeline.ErrNoSelection, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v): got %d, want %d", tt.err, got, tt.want)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// WebSocket
// ════════════════════════════════════════════════════════════════════

func TestWSHubBroadcast(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()
	defer hub.Close()

	client := &WSClient{hub: hub, send: make(chan WSMessage, 4)}
	hub.Register(client)
	waitForClients(t, hub, 1)

	hub.Observe(fetcher.Event{Type: fetcher.EventFetchDone, Series: "Gold"})
	select {
	case msg := <-client.send:
		if msg.Type != fetcher.EventFetchDone {
			t.Errorf("type: got %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no broadcast received")
	}

	hub.Unregister(client)
	if _, ok := <-client.send; ok {
		t.Error("expected send channel closed after unregister")
	}
}

func waitForClients(t *testing.T, hub *WSHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients: got %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketStreamsFetchEvents(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForClients(t, srv.Hub(), 1)

	resp, err := http.Post(ts.URL+"/api/v1/compare", "application/json", strings.NewReader(`{"assets":["Gold"],"range":"max"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	seen := map[string]bool{}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for !seen["compare_complete"] {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v (seen %v)", err, seen)
		}
		seen[msg.Type] = true
	}
	if !seen[fetcher.EventFetchDone] {
		t.Errorf("expected a fetch_done event before compare_complete, got %v", seen)
	}
}
