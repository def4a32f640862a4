package scheduler

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScout/internal/analyst"
	"StockScout/internal/calculator"
	"StockScout/internal/provider"
	"StockScout/internal/recorder"
	"StockScout/internal/screener"
)

type captureReports struct {
	jsonCalls int
	mdCalls   int
	lastRes   *screener.Result
}

func (c *captureReports) WriteJSON(res *screener.Result, _ int) (string, error) {
	c.jsonCalls++
	c.lastRes = res
	return "picks.json", nil
}

func (c *captureReports) WriteMarkdown(res *screener.Result, _ map[string]string) (string, error) {
	c.mdCalls++
	return "summary.md", nil
}

func minFloat(v float64) *float64 { return &v }

func newTestScheduler(t *testing.T) (*Scheduler, *captureReports) {
	t.Helper()
	mock := provider.NewMock()
	scorer, err := screener.NewScorer([]screener.Category{{
		Name: "price_tier", Metric: "price", MaxPoints: 10,
		Buckets: []screener.Bucket{{Below: minFloat(5), Points: 10}},
	}})
	require.NoError(t, err)
	scr := screener.New(mock, scorer, calculator.DefaultConfig(), 365, 2, zerolog.Nop())

	reports := &captureReports{}
	strategies := map[string]screener.Strategy{
		"penny": {
			Universe: []string{"AAA", "BBB"},
			Filters:  map[string]screener.Bound{"price": {Min: minFloat(0.1), Max: minFloat(10)}},
			TopN:     2,
		},
	}
	s := NewScheduler(context.Background(), scr, strategies, analyst.Disabled{},
		reports, nil, recorder.NewNoopRecorder(), zerolog.Nop())
	return s, reports
}

func TestRunNowWritesReports(t *testing.T) {
	s, reports := newTestScheduler(t)
	s.RunNow("penny")

	assert.Equal(t, 1, reports.jsonCalls)
	assert.Equal(t, 1, reports.mdCalls)
	require.NotNil(t, reports.lastRes)
	assert.Equal(t, "penny", reports.lastRes.Strategy)
	assert.Len(t, reports.lastRes.Candidates, 2)
}

func TestHandleCommand(t *testing.T) {
	s, _ := newTestScheduler(t)

	reply := s.HandleCommand("/screen")
	assert.Contains(t, reply, "Usage: /screen")

	reply = s.HandleCommand("/screen swing")
	assert.Contains(t, reply, `Unknown strategy "swing"`)
	assert.Contains(t, reply, "penny")

	reply = s.HandleCommand("/status")
	assert.Contains(t, reply, "No screening runs recorded yet.")

	reply = s.HandleCommand("/nonsense")
	assert.Contains(t, reply, "Commands:")
}

func TestRegisterAllRejectsBadCron(t *testing.T) {
	s, _ := newTestScheduler(t)
	assert.Error(t, s.RegisterAll(map[string]string{"penny": "not a cron"}))
	assert.NoError(t, s.RegisterAll(map[string]string{"penny": "0 45 13 * * 1-5"}))
}
