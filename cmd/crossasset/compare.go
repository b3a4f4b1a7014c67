package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/seenimoa/crossasset/internal/pipeline"
	"github.com/seenimoa/crossasset/internal/report"
	"github.com/seenimoa/crossasset/pkg/models"
	"github.com/seenimoa/crossasset/pkg/utils"
)

// addRequestFlags registers the comparison flags shared by every analysis command.
func addRequestFlags(fs *pflag.FlagSet) {
	fs.StringSlice("ref", nil, `reference (macro) series, e.g. "M2 Money Supply"`)
	fs.StringSlice("asset", nil, `asset series, e.g. Gold,"S&P 500"`)
	fs.String("range", "", "1y, 5y, 10y, 20y, max or custom (default from config)")
	fs.String("start", "", "custom range start (YYYY-MM-DD)")
	fs.String("end", "", "custom range end (YYYY-MM-DD)")
	fs.String("denom", "", `denominator series, or "none" for USD`)
	fs.Int("shift", 0, "shift non-anchor series by N months (positive = anchor leads)")
	fs.String("mode", "", "raw, index100, pct_change or log")
	fs.StringToString("weight", nil, "portfolio weights, e.g. Gold=60,Bitcoin=40")
	fs.String("story", "", "apply a preset view (see 'crossasset stories')")
}

// requestFromFlags builds a pipeline request from the shared flags.
func requestFromFlags(fs *pflag.FlagSet) (pipeline.Request, error) {
	var req pipeline.Request
	req.References, _ = fs.GetStringSlice("ref")
	req.Assets, _ = fs.GetStringSlice("asset")
	req.Range, _ = fs.GetString("range")
	req.Denominator, _ = fs.GetString("denom")
	req.ShiftMonths, _ = fs.GetInt("shift")
	req.Mode, _ = fs.GetString("mode")
	req.Story, _ = fs.GetString("story")

	for flag, dst := range map[string]*models.Date{"start": &req.Start, "end": &req.End} {
		v, _ := fs.GetString(flag)
		if v == "" {
			continue
		}
		d, err := models.ParseDate(v)
		if err != nil {
			return req, fmt.Errorf("--%s: %w", flag, err)
		}
		*dst = d
	}

	weights, _ := fs.GetStringToString("weight")
	if len(weights) > 0 {
		req.Weights = make(map[string]float64, len(weights))
		for name, v := range weights {
			w, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return req, fmt.Errorf("--weight %s: %w", name, err)
			}
			req.Weights[name] = w
		}
	}
	return req, nil
}

// runRequest executes the comparison described by the command's flags.
func runRequest(cmd *cobra.Command) (*app, *pipeline.Result, error) {
	req, err := requestFromFlags(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	res, err := a.runner.Run(cmd.Context(), req)
	if res != nil {
		for _, w := range res.Warnings {
			a.log.Warn().Str("series", w.Series).Msg(w.Message)
		}
	}
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, res, nil
}

// --- Compare Command ---

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Align, transform and print a comparison",
	Example: `  crossasset compare --ref "M2 Money Supply" --asset Gold,Bitcoin --range 10y
  crossasset compare --asset "S&P 500" --denom Gold --mode raw
  crossasset compare --story "2008 Housing Crash" --ref "Fed Funds Rate" --asset "S&P 500"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, res, err := runRequest(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		rows, _ := cmd.Flags().GetInt("rows")
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s, %s, anchor %s, shift %d months\n",
			res.Window, res.Request.Mode, res.Anchor, res.Request.ShiftMonths)
		if res.Cached {
			fmt.Fprintln(out, "(cached)")
		}
		return printTail(out, res.Normalized, rows)
	},
}

func init() {
	addRequestFlags(compareCmd.Flags())
	compareCmd.Flags().Int("rows", 10, "number of trailing rows to print")
	compareCmd.Flags().Bool("json", false, "print the full result as JSON")
}

// printTail writes the last n rows of t as an aligned text table.
func printTail(out io.Writer, t *models.Table, n int) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	cols := t.Columns()
	fmt.Fprintf(w, "Date\t%s\t\n", strings.Join(cols, "\t"))
	start := max(t.Len()-n, 0)
	for i := start; i < t.Len(); i++ {
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = formatValue(t.At(c, i))
		}
		fmt.Fprintf(w, "%s\t%s\t\n", t.Date(i), strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func formatValue(v models.Value) string {
	f, ok := v.Float()
	if !ok {
		if v.IsUndefined() {
			return "n/a"
		}
		return "-"
	}
	if math.Abs(f) >= 1e6 {
		return utils.FormatCompact(f)
	}
	return utils.FormatNumber(f)
}

// --- Export Command ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the aligned table to CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, res, err := runRequest(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		path, _ := cmd.Flags().GetString("out")
		if path == "-" {
			return res.WriteCSV(cmd.OutOrStdout())
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := res.WriteCSV(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", res.Combined.Len(), path)
		return nil
	},
}

func init() {
	addRequestFlags(exportCmd.Flags())
	exportCmd.Flags().StringP("out", "o", pipeline.ExportFilename, `output file, "-" for stdout`)
}

// --- Correlate Command ---

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Print the monthly correlation matrix",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, res, err := runRequest(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		m := res.Correlation()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(w, "\t%s\t\n", strings.Join(m.Columns, "\t"))
		for i, row := range m.Values {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = formatCorr(v)
			}
			fmt.Fprintf(w, "%s\t%s\t\n", m.Columns[i], strings.Join(cells, "\t"))
		}
		return w.Flush()
	},
}

func formatCorr(v models.Value) string {
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// --- Rolling Command ---

var rollingCmd = &cobra.Command{
	Use:   "rolling",
	Short: "Print the rolling correlation of two series",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, res, err := runRequest(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		x, _ := cmd.Flags().GetString("x")
		y, _ := cmd.Flags().GetString("y")
		window, _ := cmd.Flags().GetInt("window")
		if window <= 0 {
			window = cfg.Analysis.RollingWindow
		}
		rows, _ := cmd.Flags().GetInt("rows")

		x, y = res.Pair(x, y)
		values, err := res.Rolling(x, y, window)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d-day rolling correlation: %s vs %s\n", window, x, y)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for i := max(len(values)-rows, 0); i < len(values); i++ {
			fmt.Fprintf(w, "%s\t%s\n", res.Shifted.Date(i), formatCorr(values[i]))
		}
		return w.Flush()
	},
}

func init() {
	addRequestFlags(rollingCmd.Flags())
	rollingCmd.Flags().String("x", "", "first series (default: anchor)")
	rollingCmd.Flags().String("y", "", "second series (default: first other asset)")
	rollingCmd.Flags().Int("window", 0, "window in rows (default from config)")
	rollingCmd.Flags().Int("rows", 20, "number of trailing values to print")
}

// --- Scatter Command ---

var scatterCmd = &cobra.Command{
	Use:   "scatter",
	Short: "Regress the monthly changes of two series",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, res, err := runRequest(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		x, _ := cmd.Flags().GetString("x")
		y, _ := cmd.Flags().GetString("y")
		sc, err := res.Scatter(x, y)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (x) vs %s (y), %d monthly observations\n", sc.X, sc.Y, sc.Fit.N)
		fmt.Fprintf(out, "  trendline:  y = %.4f x %+.4f\n", sc.Fit.Slope, sc.Fit.Intercept)
		fmt.Fprintf(out, "  beta:       %.2f\n", sc.Fit.Slope)
		fmt.Fprintf(out, "  R²:         %.2f\n", sc.Fit.RSquared)
		return nil
	},
}

func init() {
	addRequestFlags(scatterCmd.Flags())
	scatterCmd.Flags().String("x", "", "x series (default: anchor)")
	scatterCmd.Flags().String("y", "", "y series (default: first other asset)")
}

// --- Sensitivity Command ---

var sensitivityCmd = &cobra.Command{
	Use:   "sensitivity",
	Short: "Show how strongly each asset tracks the macro factors",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, res, err := runRequest(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		exposures, err := res.Sensitivity(a.runner.Catalog().Factors)
		if err != nil {
			return err
		}
		if len(exposures) == 0 {
			return fmt.Errorf("no assets to measure")
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(w, "\t%s\t\n", strings.Join(exposures[0].Factors, "\t"))
		for _, e := range exposures {
			cells := make([]string, len(e.Values))
			for i, v := range e.Values {
				cells[i] = formatCorr(v)
			}
			fmt.Fprintf(w, "%s\t%s\t\n", e.Asset, strings.Join(cells, "\t"))
		}
		return w.Flush()
	},
}

func init() {
	addRequestFlags(sensitivityCmd.Flags())
}

// --- Insights Command ---

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Print the leaderboard, macro insights, regimes and events",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, res, err := runRequest(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		md := a.runner.Summarize(cmd.Context(), res).Markdown()
		return render(cmd, md)
	},
}

func init() {
	addRequestFlags(insightsCmd.Flags())
	addRenderFlags(insightsCmd.Flags())
}

func addRenderFlags(fs *pflag.FlagSet) {
	fs.String("format", "terminal", "terminal, markdown or html")
	fs.String("style", "", "glamour style for terminal output: dark, light, ascii or notty")
	fs.Int("width", 100, "word wrap width for terminal output")
}

// render prints markdown in the format chosen by --format.
func render(cmd *cobra.Command, md string) error {
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()
	switch format {
	case "markdown", "md":
		_, err := io.WriteString(out, md)
		return err
	case "html":
		html, err := report.RenderHTML(md)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, html)
		return err
	case "terminal", "":
		style, _ := cmd.Flags().GetString("style")
		width, _ := cmd.Flags().GetInt("width")
		text, err := report.RenderTerminal(md, style, width)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, text)
		return err
	default:
		return fmt.Errorf("unknown format %q (want terminal, markdown or html)", format)
	}
}

// --- Power Command ---

var powerCmd = &cobra.Command{
	Use:   "power",
	Short: "Show what a cash amount held since a date buys today",
	Example: `  crossasset power --asset Gold,"S&P 500" --ref "CPI (Inflation)" --range max --amount 1000 --base 2000-01-01`,
	RunE: func(cmd *cobra.Command, args []string) error {
		amountStr, _ := cmd.Flags().GetString("amount")
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("--amount: %w", err)
		}
		baseStr, _ := cmd.Flags().GetString("base")
		var base models.Date
		if baseStr != "" {
			if base, err = models.ParseDate(baseStr); err != nil {
				return fmt.Errorf("--base: %w", err)
			}
		}
		currency, _ := cmd.Flags().GetString("currency")

		a, res, err := runRequest(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if base.IsZero() {
			base = res.Combined.First()
		}
		rep, err := report.PurchasingPower(res.Combined, amount, base, currency)
		if err != nil {
			return err
		}
		return render(cmd, rep.Markdown())
	},
}

func init() {
	addRequestFlags(powerCmd.Flags())
	addRenderFlags(powerCmd.Flags())
	powerCmd.Flags().String("amount", "1000", "cash amount")
	powerCmd.Flags().String("base", "", "comparison date (default: first date of the table)")
	powerCmd.Flags().String("currency", report.DefaultCurrency, "ISO currency code for display")
}
