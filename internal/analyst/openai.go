package analyst

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"StockScout/internal/model"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIAnalyst asks an OpenAI-compatible chat endpoint for a short
// assessment of a candidate. Any compatible gateway works via BaseURL.
type OpenAIAnalyst struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     zerolog.Logger
}

// NewOpenAIAnalyst creates an analyst client with optional proxy support.
func NewOpenAIAnalyst(baseURL, apiKey, modelName, proxyURL string, log zerolog.Logger) *OpenAIAnalyst {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &OpenAIAnalyst{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   modelName,
		client:  &http.Client{Timeout: 60 * time.Second, Transport: transport},
		log:     log.With().Str("component", "analyst").Logger(),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const commentaryRetries = 2

// Commentary returns a short natural-language note on one candidate, retrying
// a couple of times on transport failures. The caller decides how to degrade
// when this fails; the screener result itself never depends on it.
func (a *OpenAIAnalyst) Commentary(ctx context.Context, c model.Candidate) (string, error) {
	var lastErr error
	for i := 0; i <= commentaryRetries; i++ {
		if i > 0 {
			a.log.Warn().Err(lastErr).Int("attempt", i).Msg("analyst call failed, retrying")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(i) * 2 * time.Second):
			}
		}
		note, err := a.commentary(ctx, c)
		if err == nil {
			return note, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (a *OpenAIAnalyst) commentary(ctx context.Context, c model.Candidate) (string, error) {
	prompt := buildPrompt(c)
	req := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a cautious equity analyst. In at most three sentences, comment on the stock's technical setup and risk. Plain text, no advice disclaimers."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.4,
		MaxTokens:   200,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("chat API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// buildPrompt flattens the candidate's known metrics into a compact brief.
func buildPrompt(c model.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol %s, composite score %.2f out of 10.\n", c.Symbol, c.Score)
	if name, ok := c.Metrics.Label(model.LabelCompanyName); ok {
		fmt.Fprintf(&b, "Company: %s", name)
		if sector, ok := c.Metrics.Label(model.LabelSector); ok {
			fmt.Fprintf(&b, " (%s)", sector)
		}
		b.WriteString("\n")
	}
	for _, name := range c.Metrics.NumNames() {
		v, _ := c.Metrics.Num(name)
		if math.IsInf(v, 0) {
			continue
		}
		fmt.Fprintf(&b, "%s=%.4g\n", name, v)
	}
	return b.String()
}
