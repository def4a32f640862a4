package notifier

import (
	"fmt"
	"math"
	"strings"

	"StockScout/internal/model"
	"StockScout/internal/recorder"
	"StockScout/internal/screener"
)

// FormatDigest renders a screening result into a Telegram message.
func FormatDigest(res *screener.Result) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🔎 <b>StockScout</b> | %s | %s\n", res.Strategy, res.StartedAt.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Processed %d, skipped %d, selected %d\n\n", res.Processed, res.Skipped, len(res.Candidates)))

	if len(res.Candidates) == 0 {
		b.WriteString("No candidates passed the screen today.")
		return b.String()
	}

	for i, c := range res.Candidates {
		b.WriteString(fmt.Sprintf("<b>%d. %s</b> — %.2f\n", i+1, c.Symbol, c.Score))
		b.WriteString(formatCandidateLine(c.Metrics))
	}
	return b.String()
}

func formatCandidateLine(ms *model.MetricSet) string {
	var parts []string
	if v, ok := ms.Num(model.MetricPrice); ok {
		parts = append(parts, fmt.Sprintf("$%.2f", v))
	}
	if v, ok := ms.Num(model.MetricRSI14); ok {
		parts = append(parts, fmt.Sprintf("RSI %.0f", v))
	}
	if v, ok := ms.Num(model.MetricRelativeVolume); ok {
		parts = append(parts, fmt.Sprintf("vol %.1fx", v))
	}
	if v, ok := ms.Num(model.MetricPCVolumeRatio); ok {
		parts = append(parts, fmt.Sprintf("P/C %.2f", v))
	}
	if v, ok := ms.Num(model.MetricCashRunwayYears); ok && !math.IsInf(v, 1) {
		parts = append(parts, fmt.Sprintf("runway %.1fy", v))
	}
	if v, ok := ms.Num(model.MetricStopPrice); ok {
		parts = append(parts, fmt.Sprintf("stop $%.2f", v))
	}
	if _, ok := ms.Error(model.ErrKindOptions); ok {
		parts = append(parts, "options n/a")
	}
	if len(parts) == 0 {
		return "\n"
	}
	return "  " + strings.Join(parts, " | ") + "\n"
}

// FormatStatus renders stored run summaries for the /status command.
func FormatStatus(runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return "No screening runs recorded yet."
	}
	var b strings.Builder
	b.WriteString("📋 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s | %s | processed %d, skipped %d",
			r.Timestamp.Format("01-02 15:04"), r.Strategy, r.Processed, r.Skipped))
		if r.TopSymbol != "" {
			b.WriteString(fmt.Sprintf(" | top %s (%.2f)", r.TopSymbol, r.TopScore))
		}
		b.WriteString("\n")
	}
	return b.String()
}
