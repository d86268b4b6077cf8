package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mocky70025/suiren/internal/config"
	"github.com/mocky70025/suiren/internal/providers/providererr"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Candidate is one transaction the image model read off a payment
// screenshot. Fields other than Amount are best-effort.
type Candidate struct {
	Amount     int64  `json:"amount"`
	SenderName string `json:"sender_name,omitempty"`
	Date       string `json:"date,omitempty"`
	Memo       string `json:"memo,omitempty"`
}

// Analyzer extracts candidate transactions from a payment screenshot.
type Analyzer interface {
	Analyze(ctx context.Context, imageBase64 string) ([]Candidate, error)
}

type disabledAnalyzer struct{}

func (disabledAnalyzer) Analyze(context.Context, string) ([]Candidate, error) {
	return nil, fmt.Errorf("screenshot analysis is not configured: %w", providererr.ErrExternalService)
}

type httpAnalyzer struct {
	apiKey   string
	endpoint string
	model    string
	hc       *http.Client
	log      *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) Analyzer {
	if cfg.VisionAPIKey == "" {
		log.Warn("vision api key missing, screenshot analysis disabled")
		return disabledAnalyzer{}
	}
	return &httpAnalyzer{
		apiKey:   cfg.VisionAPIKey,
		endpoint: cfg.VisionEndpoint,
		model:    cfg.VisionModel,
		hc:       &http.Client{Timeout: 60 * time.Second},
		log:      log.Named("vision.analyzer"),
	}
}

const analysisPrompt = `This is a screenshot of a payment app transaction history.
Extract every received payment as JSON: {"transactions":[{"amount":<integer yen>,
"sender_name":"<name or empty>","date":"<date text or empty>","memo":"<memo or empty>"}]}.
Respond with JSON only.`

func (a *httpAnalyzer) Analyze(ctx context.Context, imageBase64 string) ([]Candidate, error) {
	body, err := json.Marshal(map[string]any{
		"model": a.model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": analysisPrompt},
					{
						"type": "image_url",
						"image_url": map[string]any{
							"url": "data:image/png;base64," + imageBase64,
						},
					},
				},
			},
		},
		"response_format": map[string]any{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", providererr.ErrExternalService)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		a.log.Warn("vision call rejected", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("vision status %d: %w", resp.StatusCode, providererr.ErrExternalService)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("vision response decode: %w", providererr.ErrExternalService)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("vision returned no choices: %w", providererr.ErrExternalService)
	}

	var payload struct {
		Transactions []Candidate `json:"transactions"`
	}
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("vision content decode: %w", providererr.ErrExternalService)
	}
	return payload.Transactions, nil
}

var Module = fx.Module("providers.vision",
	fx.Provide(New),
)
