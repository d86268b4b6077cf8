package line

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

const pushEndpoint = "https://api.line.me/v2/bot/message/push"

// Notifier pushes messages to a user's LINE account. Notifications are
// best-effort; no ledger operation depends on them succeeding.
type Notifier interface {
	PushText(ctx context.Context, lineUserID, text string) error
	PushBalance(ctx context.Context, lineUserID string, totalPoints, paymentCount int64) error
	PushPaymentLink(ctx context.Context, lineUserID string, amount int64, paymentURL string) error
}

type NoOpNotifier struct{}

func (NoOpNotifier) PushText(context.Context, string, string) error { return nil }

func (NoOpNotifier) PushBalance(context.Context, string, int64, int64) error { return nil }

func (NoOpNotifier) PushPaymentLink(context.Context, string, int64, string) error { return nil }

type httpNotifier struct {
	accessToken string
	hc          *http.Client
	log         *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) Notifier {
	if cfg.LINEChannelAccessToken == "" {
		log.Warn("line channel access token missing, notifications disabled")
		return NoOpNotifier{}
	}
	return &httpNotifier{
		accessToken: cfg.LINEChannelAccessToken,
		hc:          &http.Client{Timeout: 10 * time.Second},
		log:         log.Named("line.notifier"),
	}
}

func (n *httpNotifier) PushText(ctx context.Context, lineUserID, text string) error {
	if lineUserID == "" {
		return fmt.Errorf("line user id required: %w", providererr.ErrExternalService)
	}
	return n.push(ctx, lineUserID, map[string]any{
		"type": "text",
		"text": text,
	})
}

func (n *httpNotifier) PushBalance(ctx context.Context, lineUserID string, totalPoints, paymentCount int64) error {
	text := fmt.Sprintf("現在のポイント: %dpt\n支払い回数: %d回", totalPoints, paymentCount)
	return n.PushText(ctx, lineUserID, text)
}

func (n *httpNotifier) PushPaymentLink(ctx context.Context, lineUserID string, amount int64, paymentURL string) error {
	text := fmt.Sprintf("支払いリンク\n金額: %d円\n\n%s", amount, paymentURL)
	return n.PushText(ctx, lineUserID, text)
}

func (n *httpNotifier) push(ctx context.Context, lineUserID string, message map[string]any) error {
	body, err := json.Marshal(map[string]any{
		"to":       lineUserID,
		"messages": []map[string]any{message},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pushEndpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.accessToken)

	resp, err := n.hc.Do(req)
	if err != nil {
		return fmt.Errorf("line push: %w", providererr.ErrExternalService)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.Warn("line push rejected", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("line push status %d: %w", resp.StatusCode, providererr.ErrExternalService)
	}
	return nil
}

var Module = fx.Module("providers.line",
	fx.Provide(New),
)
