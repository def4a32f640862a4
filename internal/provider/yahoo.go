package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"StockScout/internal/model"
)

// YahooProvider implements Provider against the Yahoo Finance public API.
type YahooProvider struct {
	client  *http.Client
	baseURL string
}

// NewYahooProvider creates a Yahoo Finance provider with optional proxy support.
func NewYahooProvider(proxyURL string) *YahooProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooProvider{
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		baseURL: "https://query1.finance.yahoo.com",
	}
}

func (y *YahooProvider) Name() string { return "yahoo" }

// SetBaseURL points the provider at a different API host, for gateways and
// httptest servers.
func (y *YahooProvider) SetBaseURL(u string) { y.baseURL = u }

// yNum is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper.
type yNum struct {
	Raw *float64 `json:"raw"`
}

// yahooChart is the response shape of the v8 chart endpoint.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *YahooProvider) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Permanent(err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return Transient(fmt.Errorf("yahoo fetch: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transient(fmt.Errorf("yahoo read body: %w", err))
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Permanent(fmt.Errorf("yahoo: status 404"))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return Transient(fmt.Errorf("yahoo: status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return Permanent(fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return Permanent(fmt.Errorf("yahoo decode: %w", err))
	}
	return nil
}

// PriceHistory fetches daily bars covering at least lookbackDays calendar days.
func (y *YahooProvider) PriceHistory(ctx context.Context, symbol string, lookbackDays int) (*model.PriceSeries, error) {
	rng := "2y"
	switch {
	case lookbackDays <= 30:
		rng = "1mo"
	case lookbackDays <= 90:
		rng = "3mo"
	case lookbackDays <= 180:
		rng = "6mo"
	case lookbackDays <= 365:
		rng = "1y"
	}
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		y.baseURL, url.PathEscape(symbol), rng)

	var chart yahooChart
	if err := y.getJSON(ctx, endpoint, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, Permanent(fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, Permanent(fmt.Errorf("yahoo: no data for %s", symbol))
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, ok1 := at(quote.Open, i)
		h, ok2 := at(quote.High, i)
		l, ok3 := at(quote.Low, i)
		c, ok4 := at(quote.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue // null fields: holidays, halts, partial feed rows
		}
		v, _ := at(quote.Volume, i)
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	series := &model.PriceSeries{Symbol: symbol, Bars: bars, FetchedAt: time.Now()}
	if err := series.Validate(); err != nil {
		return nil, Permanent(err)
	}
	return series, nil
}

func at(vals []*float64, i int) (float64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	return *vals[i], true
}

// yahooSummary is the subset of quoteSummary modules we request.
type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			Price *struct {
				ShortName string `json:"shortName"`
				MarketCap yNum   `json:"marketCap"`
			} `json:"price"`
			AssetProfile *struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
			SummaryDetail *struct {
				TrailingPE    yNum `json:"trailingPE"`
				DividendYield yNum `json:"dividendYield"`
				Beta          yNum `json:"beta"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics *struct {
				TrailingEps             yNum `json:"trailingEps"`
				HeldPercentInstitutions yNum `json:"heldPercentInstitutions"`
			} `json:"defaultKeyStatistics"`
			FinancialData *struct {
				ProfitMargins yNum `json:"profitMargins"`
				GrossMargins  yNum `json:"grossMargins"`
				DebtToEquity  yNum `json:"debtToEquity"`
				TotalCash     yNum `json:"totalCash"`
				FreeCashflow  yNum `json:"freeCashflow"`
			} `json:"financialData"`
			NetSharePurchaseActivity *struct {
				BuyInfoCount  yNum `json:"buyInfoCount"`
				NetInfoShares yNum `json:"netInfoShares"`
			} `json:"netSharePurchaseActivity"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// Fundamentals fetches company fundamentals. Fields the upstream does not
// report stay absent in the returned MetricSet.
func (y *YahooProvider) Fundamentals(ctx context.Context, symbol string) (*model.MetricSet, error) {
	modules := "price,assetProfile,summaryDetail,defaultKeyStatistics,financialData,netSharePurchaseActivity"
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		y.baseURL, url.PathEscape(symbol), modules)

	var summary yahooSummary
	if err := y.getJSON(ctx, endpoint, &summary); err != nil {
		return nil, err
	}
	if summary.QuoteSummary.Error != nil {
		return nil, Permanent(fmt.Errorf("yahoo api error: %s", summary.QuoteSummary.Error.Description))
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return nil, Permanent(fmt.Errorf("yahoo: no fundamentals for %s", symbol))
	}

	r := summary.QuoteSummary.Result[0]
	ms := model.NewMetricSet()

	if p := r.Price; p != nil {
		if p.ShortName != "" {
			ms.SetLabel(model.LabelCompanyName, p.ShortName)
		}
		setNum(ms, model.MetricMarketCap, p.MarketCap, 1)
	}
	if a := r.AssetProfile; a != nil {
		if a.Sector != "" {
			ms.SetLabel(model.LabelSector, a.Sector)
		}
		if a.Industry != "" {
			ms.SetLabel(model.LabelIndustry, a.Industry)
		}
	}
	if d := r.SummaryDetail; d != nil {
		setNum(ms, model.MetricPERatio, d.TrailingPE, 1)
		setNum(ms, model.MetricDividendYield, d.DividendYield, 100)
		setNum(ms, model.MetricBeta, d.Beta, 1)
	}
	if k := r.DefaultKeyStatistics; k != nil {
		setNum(ms, model.MetricEPS, k.TrailingEps, 1)
		setNum(ms, model.MetricInstOwnership, k.HeldPercentInstitutions, 100)
	}
	if f := r.FinancialData; f != nil {
		setNum(ms, model.MetricProfitMargin, f.ProfitMargins, 100)
		setNum(ms, model.MetricGrossMargin, f.GrossMargins, 100)
		setNum(ms, model.MetricDebtToEquity, f.DebtToEquity, 1)
		applyCashRunway(ms, f.TotalCash.Raw, f.FreeCashflow.Raw)
	}
	if n := r.NetSharePurchaseActivity; n != nil {
		setNum(ms, model.MetricInsiderBuyCount, n.BuyInfoCount, 1)
		setNum(ms, model.MetricInsiderNetShares, n.NetInfoShares, 1)
	}
	return ms, nil
}

func setNum(ms *model.MetricSet, name string, v yNum, scale float64) {
	if v.Raw != nil {
		ms.SetNum(name, *v.Raw*scale)
	}
}

// applyCashRunway derives years of runway from cash and trailing free cash
// flow. Non-negative free cash flow means the company is not burning cash,
// recorded as an infinite runway sentinel.
func applyCashRunway(ms *model.MetricSet, cash, fcf *float64) {
	if cash == nil || fcf == nil {
		return
	}
	if *fcf >= 0 {
		ms.SetNum(model.MetricCashRunwayYears, math.Inf(1))
		return
	}
	ms.SetNum(model.MetricCashRunwayYears, *cash / -*fcf)
}

// yahooOptions is the response shape of the v7 options endpoint.
type yahooOptions struct {
	OptionChain struct {
		Result []struct {
			ExpirationDates []int64 `json:"expirationDates"`
			Options         []struct {
				ExpirationDate int64         `json:"expirationDate"`
				Calls          []yahooOption `json:"calls"`
				Puts           []yahooOption `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

type yahooOption struct {
	Strike            float64  `json:"strike"`
	Volume            *float64 `json:"volume"`
	OpenInterest      *float64 `json:"openInterest"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
}

// optionExpiryHorizon bounds how far out we pull chains; the sentiment
// calculation targets 30-60 days so anything past ~90 is never used.
const optionExpiryHorizon = 90 * 24 * time.Hour

// maxExpiryFetches caps per-symbol chain requests.
const maxExpiryFetches = 4

// OptionsChain fetches option contracts for expiries inside the horizon,
// falling back to the nearest future expiry when none land in it.
func (y *YahooProvider) OptionsChain(ctx context.Context, symbol string) (*model.OptionsChain, error) {
	base, err := y.fetchOptionsDoc(ctx, symbol, 0)
	if err != nil {
		return nil, err
	}
	if len(base.ExpirationDates) == 0 {
		return nil, Permanent(fmt.Errorf("yahoo: no options expirations for %s", symbol))
	}

	now := time.Now()
	var targets []int64
	for _, ts := range base.ExpirationDates {
		exp := time.Unix(ts, 0).UTC()
		if exp.After(now) && exp.Sub(now) <= optionExpiryHorizon {
			targets = append(targets, ts)
		}
		if len(targets) == maxExpiryFetches {
			break
		}
	}
	if len(targets) == 0 {
		// Nothing inside the horizon: take the nearest future expiry.
		for _, ts := range base.ExpirationDates {
			if time.Unix(ts, 0).After(now) {
				targets = []int64{ts}
				break
			}
		}
	}
	if len(targets) == 0 {
		return nil, Permanent(fmt.Errorf("yahoo: no future options expirations for %s", symbol))
	}

	chain := &model.OptionsChain{Symbol: symbol, FetchedAt: now}
	for _, ts := range targets {
		doc, err := y.fetchOptionsDoc(ctx, symbol, ts)
		if err != nil {
			return nil, err
		}
		for _, opt := range doc.Options {
			expiry := time.Unix(opt.ExpirationDate, 0).UTC()
			appendContracts(chain, opt.Calls, model.Call, expiry)
			appendContracts(chain, opt.Puts, model.Put, expiry)
		}
	}
	if len(chain.Contracts) == 0 {
		return nil, Permanent(fmt.Errorf("yahoo: option chain empty for %s", symbol))
	}
	return chain, nil
}

type yahooOptionsResult struct {
	ExpirationDates []int64
	Options         []struct {
		ExpirationDate int64         `json:"expirationDate"`
		Calls          []yahooOption `json:"calls"`
		Puts           []yahooOption `json:"puts"`
	}
}

func (y *YahooProvider) fetchOptionsDoc(ctx context.Context, symbol string, date int64) (*yahooOptionsResult, error) {
	endpoint := fmt.Sprintf("%s/v7/finance/options/%s", y.baseURL, url.PathEscape(symbol))
	if date > 0 {
		endpoint += fmt.Sprintf("?date=%d", date)
	}
	var doc yahooOptions
	if err := y.getJSON(ctx, endpoint, &doc); err != nil {
		return nil, err
	}
	if doc.OptionChain.Error != nil {
		return nil, Permanent(fmt.Errorf("yahoo api error: %s", doc.OptionChain.Error.Description))
	}
	if len(doc.OptionChain.Result) == 0 {
		return nil, Permanent(fmt.Errorf("yahoo: no options data for %s", symbol))
	}
	r := doc.OptionChain.Result[0]
	return &yahooOptionsResult{ExpirationDates: r.ExpirationDates, Options: r.Options}, nil
}

func appendContracts(chain *model.OptionsChain, opts []yahooOption, right model.OptionRight, expiry time.Time) {
	for _, o := range opts {
		ct := model.OptionContract{Right: right, Expiry: expiry, Strike: o.Strike}
		if o.Volume != nil {
			ct.Volume = *o.Volume
		}
		if o.OpenInterest != nil {
			ct.OpenInterest = *o.OpenInterest
		}
		if o.ImpliedVolatility != nil {
			ct.ImpliedVol = *o.ImpliedVolatility
		}
		chain.Contracts = append(chain.Contracts, ct)
	}
}
