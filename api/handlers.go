package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/crossasset/internal/analytics"
	"github.com/seenimoa/crossasset/internal/pipeline"
	"github.com/seenimoa/crossasset/internal/report"
	"github.com/seenimoa/crossasset/pkg/models"
)

const maxBodyBytes = 1 << 20

var errBadBody = errors.New("invalid request body")

// AnalysisRequest is a comparison plus the parameters of one analytics view.
// Empty X and Y default to the anchor and the first other asset.
type AnalysisRequest struct {
	pipeline.Request
	X      string `json:"x,omitempty"`
	Y      string `json:"y,omitempty"`
	Window int    `json:"window,omitempty"`
}

// PowerRequest asks what a cash amount held since BaseDate buys today.
type PowerRequest struct {
	pipeline.Request
	Amount   decimal.Decimal `json:"amount"`
	BaseDate models.Date     `json:"base_date"`
	Currency string          `json:"currency,omitempty"`
}

// RollingResponse is a rolling correlation series.
type RollingResponse struct {
	X      string         `json:"x"`
	Y      string         `json:"y"`
	Window int            `json:"window"`
	Dates  []models.Date  `json:"dates"`
	Values []models.Value `json:"values"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

// run decodes the body into req and executes the comparison.
func (s *Server) run(w http.ResponseWriter, r *http.Request, body any, req *pipeline.Request) (*pipeline.Result, bool) {
	if err := decodeBody(w, r, body); err != nil {
		s.writeFailure(w, err)
		return nil, false
	}
	res, err := s.runner.Run(r.Context(), *req)
	if err != nil {
		// a failed run can still carry the per-series fetch warnings
		if res != nil && len(res.Warnings) > 0 {
			s.writeJSON(w, statusFor(err), APIResponse{Error: err.Error(), Warnings: res.WarningMessages()})
			return nil, false
		}
		s.writeFailure(w, err)
		return nil, false
	}
	return res, true
}

// ============================================================
// Health and catalog
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":     "ok",
			"time":       time.Now().UTC().Format(time.RFC3339),
			"ws_clients": s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.runner.Catalog()})
}

func (s *Server) handleStories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.runner.Catalog().Stories})
}

// handleEvents lists annotations, optionally bounded by ?from= and ?to=.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var from, to models.Date
	for key, dst := range map[string]*models.Date{"from": &from, "to": &to} {
		v := r.URL.Query().Get(key)
		if v == "" {
			continue
		}
		d, err := models.ParseDate(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s date; use YYYY-MM-DD", key))
			return
		}
		*dst = d
	}
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.runner.EventsBetween(r.Context(), from, to),
	})
}

// ============================================================
// Comparison
// ============================================================

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	res, ok := s.run(w, r, &req, &req)
	if !ok {
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "compare_complete",
		Data: map[string]any{
			"references": res.References,
			"assets":     res.Assets,
			"rows":       res.Combined.Len(),
			"warnings":   len(res.Warnings),
		},
	})

	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    res,
	})
}

// handleExport returns the combined table as a CSV attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	res, ok := s.run(w, r, &req, &req)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := res.WriteCSV(&buf); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pipeline.ExportFilename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ============================================================
// Analytics
// ============================================================

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	res, ok := s.run(w, r, &req, &req.Request)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res.Correlation()})
}

func (s *Server) handleRolling(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	res, ok := s.run(w, r, &req, &req.Request)
	if !ok {
		return
	}
	window := req.Window
	if window <= 0 {
		window = s.cfg.Analysis.RollingWindow
	}
	if window <= 0 {
		window = analytics.DefaultRollingWindow
	}
	x, y := res.Pair(req.X, req.Y)
	values, err := res.Rolling(x, y, window)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: RollingResponse{
			X:      x,
			Y:      y,
			Window: window,
			Dates:  res.Shifted.Dates(),
			Values: values,
		},
	})
}

func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	res, ok := s.run(w, r, &req, &req.Request)
	if !ok {
		return
	}
	sc, err := res.Scatter(req.X, req.Y)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: sc})
}

func (s *Server) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	res, ok := s.run(w, r, &req, &req.Request)
	if !ok {
		return
	}
	exp, err := res.Sensitivity(s.runner.Catalog().Factors)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: exp})
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	res, ok := s.run(w, r, &req, &req.Request)
	if !ok {
		return
	}
	window := req.Window
	if window <= 0 {
		window = s.cfg.Analysis.IndicatorWindow
	}
	overlay, err := res.Overlay(window)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: overlay})
}

// handleSummary returns the leaderboard, insights, regimes and events.
// ?format=markdown or ?format=html render the summary instead of JSON.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	res, ok := s.run(w, r, &req, &req)
	if !ok {
		return
	}
	summary := s.runner.Summarize(r.Context(), res)

	switch r.URL.Query().Get("format") {
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(summary.Markdown()))
	case "html":
		out, err := report.RenderHTML(summary.Markdown())
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(out))
	default:
		s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: summary})
	}
}

func (s *Server) handlePurchasingPower(w http.ResponseWriter, r *http.Request) {
	var req PowerRequest
	res, ok := s.run(w, r, &req, &req.Request)
	if !ok {
		return
	}
	base := req.BaseDate
	if base.IsZero() {
		base = res.Combined.First()
	}
	rep, err := report.PurchasingPower(res.Combined, req.Amount, base, req.Currency)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, report.ErrNoPowerData) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rep})
}
