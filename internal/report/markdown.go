package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/seenimoa/crossasset/internal/catalog"
	"github.com/seenimoa/crossasset/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Summary document
// ════════════════════════════════════════════════════════════════════

// Summary is everything the insights page shows. Empty sections are omitted.
type Summary struct {
	Title       string          `json:"title"`
	Period      string          `json:"period"`
	Reference   string          `json:"reference,omitempty"`
	Leaderboard []Standing      `json:"leaderboard,omitempty"`
	Insights    Insights        `json:"insights"`
	Regimes     []Regime        `json:"regimes,omitempty"`
	Events      []catalog.Event `json:"events,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// Markdown renders the summary as a GitHub-flavoured markdown document.
func (s Summary) Markdown() string {
	var b strings.Builder
	title := s.Title
	if title == "" {
		title = "Cross-Asset Summary"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if s.Period != "" {
		fmt.Fprintf(&b, "_Period: %s_\n\n", s.Period)
	}

	for _, w := range s.Warnings {
		fmt.Fprintf(&b, "> **Warning**: %s\n\n", w)
	}

	if len(s.Leaderboard) > 0 {
		b.WriteString("## Inflation Defeater Leaderboard\n\n")
		fmt.Fprintf(&b, "| Asset | Total Return | Real Return (over %s) | Status |\n", s.Reference)
		b.WriteString("|---|---:|---:|---|\n")
		for _, r := range s.Leaderboard {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				escapeCell(r.Asset), utils.FormatRatio(r.TotalReturn), utils.FormatRatio(r.RealReturn), r.Status)
		}
		b.WriteString("\n")
	}

	if lines := s.Insights.Lines(); len(lines) > 0 {
		b.WriteString("## Macro Insights\n\n")
		for _, l := range lines {
			fmt.Fprintf(&b, "- %s\n", l)
		}
		b.WriteString("\n")
	}

	if len(s.Regimes) > 0 {
		b.WriteString("## Easy Money Regimes\n\n")
		for _, r := range s.Regimes {
			fmt.Fprintf(&b, "- %s to %s\n", r.Start, r.End)
		}
		b.WriteString("\n")
	}

	if len(s.Events) > 0 {
		b.WriteString("## Events\n\n")
		for _, e := range s.Events {
			fmt.Fprintf(&b, "- **%s** %s", e.Date, e.Label)
			if e.Detail != "" {
				fmt.Fprintf(&b, ": %s", e.Detail)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Markdown renders the purchasing power table.
func (r PowerReport) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Purchasing Power of %s\n\n", FormatMoney(r.Amount, r.Currency))
	fmt.Fprintf(&b, "_From %s to %s_\n\n", r.Base, r.End)
	b.WriteString("| Asset | Current Value of Original | Purchasing Power Change |\n")
	b.WriteString("|---|---:|---:|\n")
	for _, h := range r.Holdings {
		change, _ := h.Change.Float64()
		fmt.Fprintf(&b, "| %s | %s | %s |\n", escapeCell(h.Asset), FormatMoney(h.Value, r.Currency), utils.FormatPct(change*100))
	}
	return b.String()
}

func escapeCell(s string) string { return strings.ReplaceAll(s, "|", `\|`) }

// ════════════════════════════════════════════════════════════════════
// Renderers
// ════════════════════════════════════════════════════════════════════

// RenderTerminal styles markdown for a terminal. An empty style picks
// "notty", which emits no escape codes.
func RenderTerminal(md, style string, width int) (string, error) {
	if style == "" {
		style = "notty"
	}
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("terminal renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

var htmlRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts markdown to an HTML fragment.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := htmlRenderer.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
