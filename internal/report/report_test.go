package report

import (
	"encoding/json"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScout/internal/model"
	"StockScout/internal/screener"
)

func sampleResult() *screener.Result {
	ms := model.NewMetricSet()
	ms.SetNum(model.MetricPrice, 2.31)
	ms.SetNum(model.MetricRSI14, 28.4)
	ms.SetNum(model.MetricCashRunwayYears, math.Inf(1))
	ms.SetNum(model.MetricStopPrice, 1.95)

	failed := model.NewMetricSet()
	failed.SetNum(model.MetricPrice, 0.8)
	failed.SetError(model.ErrKindOptions, "no chain")

	return &screener.Result{
		Strategy:  "penny",
		StartedAt: time.Date(2026, 8, 28, 21, 30, 0, 0, time.UTC),
		Processed: 2,
		Skipped:   28,
		Candidates: []model.Candidate{
			{Symbol: "AAA", Metrics: ms, Score: 7.5},
			{Symbol: "BBB", Metrics: failed, Score: 3.75},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	w := NewWriter(t.TempDir())
	path, err := w.WriteJSON(sampleResult(), 30)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out struct {
		Strategy string `json:"strategy"`
		Universe int    `json:"universe_size"`
		Picks    []struct {
			Rank    int            `json:"rank"`
			Symbol  string         `json:"symbol"`
			Score   float64        `json:"score"`
			Metrics map[string]any `json:"metrics"`
		} `json:"picks"`
	}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "penny", out.Strategy)
	assert.Equal(t, 30, out.Universe)
	require.Len(t, out.Picks, 2)
	assert.Equal(t, 1, out.Picks[0].Rank)
	assert.Equal(t, "AAA", out.Picks[0].Symbol)
	assert.Equal(t, "+inf", out.Picks[0].Metrics[model.MetricCashRunwayYears])
	assert.Equal(t, "no chain", out.Picks[1].Metrics["options_error"])
}

func TestWriteMarkdown(t *testing.T) {
	w := NewWriter(t.TempDir())
	path, err := w.WriteMarkdown(sampleResult(), map[string]string{
		"AAA": "Oversold with a defined stop.",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "# Screening Summary — penny")
	assert.Contains(t, text, "1. AAA — score 7.50")
	assert.Contains(t, text, "Oversold with a defined stop.")
	assert.Contains(t, text, "Cash Runway (yrs): not applicable")
	assert.Contains(t, text, "Options data unavailable: no chain")
}

func TestWriteMarkdownEmptyResult(t *testing.T) {
	w := NewWriter(t.TempDir())
	res := &screener.Result{Strategy: "normal", StartedAt: time.Now()}
	path, err := w.WriteMarkdown(res, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "No candidates passed the screen.")
}
