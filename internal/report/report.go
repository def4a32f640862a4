package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"StockScout/internal/model"
	"StockScout/internal/screener"
)

// Writer renders screening results to files under a base directory.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

type pick struct {
	Rank    int              `json:"rank"`
	Symbol  string           `json:"symbol"`
	Score   float64          `json:"score"`
	Metrics *model.MetricSet `json:"metrics"`
}

type picksFile struct {
	Strategy    string `json:"strategy"`
	GeneratedAt string `json:"generated_at"`
	Universe    int    `json:"universe_size"`
	Processed   int    `json:"processed"`
	Skipped     int    `json:"skipped"`
	Picks       []pick `json:"picks"`
}

// WriteJSON persists the ranked picks as a machine-readable snapshot and
// returns the file path.
func (w *Writer) WriteJSON(res *screener.Result, universe int) (string, error) {
	out := picksFile{
		Strategy:    res.Strategy,
		GeneratedAt: res.StartedAt.Format(time.RFC3339),
		Universe:    universe,
		Processed:   res.Processed,
		Skipped:     res.Skipped,
	}
	for i, c := range res.Candidates {
		out.Picks = append(out.Picks, pick{Rank: i + 1, Symbol: c.Symbol, Score: c.Score, Metrics: c.Metrics})
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := fmt.Sprintf("picks_%s_%s.json", res.Strategy, res.StartedAt.Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal picks: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write picks: %w", err)
	}
	return path, nil
}

// WriteMarkdown renders a human-readable summary, optionally with analyst
// commentary per pick, and returns the file path.
func (w *Writer) WriteMarkdown(res *screener.Result, commentary map[string]string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := fmt.Sprintf("summary_%s_%s.md", res.Strategy, res.StartedAt.Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "# Screening Summary — %s\n\n", res.Strategy)
	fmt.Fprintf(&b, "Generated %s. Processed %d symbols, skipped %d, selected %d.\n\n",
		res.StartedAt.Format("2006-01-02 15:04 MST"), res.Processed, res.Skipped, len(res.Candidates))

	if len(res.Candidates) == 0 {
		b.WriteString("No candidates passed the screen.\n")
	}
	for i, c := range res.Candidates {
		fmt.Fprintf(&b, "## %d. %s — score %.2f\n\n", i+1, c.Symbol, c.Score)
		writeMetricLines(&b, c.Metrics)
		if note, ok := commentary[c.Symbol]; ok && note != "" {
			fmt.Fprintf(&b, "\n%s\n", note)
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

// keyMetrics is the subset shown in the markdown table, in display order.
var keyMetrics = []struct{ name, label, format string }{
	{model.MetricPrice, "Price", "$%.2f"},
	{model.MetricAvgDollarVolume, "Avg $ Volume", "$%.0f"},
	{model.MetricRelativeVolume, "Relative Volume", "%.2fx"},
	{model.MetricRSI14, "RSI(14)", "%.1f"},
	{model.MetricHistVolatility, "Volatility (ann.)", "%.1f%%"},
	{model.MetricPctOff52wLow, "Off 52w Low", "%.1f%%"},
	{model.MetricStopPrice, "Suggested Stop", "$%.2f"},
	{model.MetricPCVolumeRatio, "P/C Volume", "%.2f"},
	{model.MetricPCOIRatio, "P/C Open Interest", "%.2f"},
	{model.MetricAverageIV, "Avg IV", "%.2f"},
	{model.MetricCashRunwayYears, "Cash Runway (yrs)", "%.1f"},
}

func writeMetricLines(b *strings.Builder, ms *model.MetricSet) {
	for _, m := range keyMetrics {
		v, ok := ms.Num(m.name)
		if !ok {
			continue
		}
		fmt.Fprintf(b, "- %s: ", m.label)
		if math.IsInf(v, 1) {
			// Positive free cash flow renders the runway unbounded.
			b.WriteString("not applicable\n")
			continue
		}
		fmt.Fprintf(b, m.format+"\n", v)
	}
	if msg, ok := ms.Error(model.ErrKindOptions); ok {
		fmt.Fprintf(b, "- Options data unavailable: %s\n", msg)
	}
}
