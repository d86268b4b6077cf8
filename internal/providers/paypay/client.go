package paypay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mocky70025/suiren/internal/config"
	"github.com/mocky70025/suiren/internal/providers/providererr"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PaymentLink is a created QR-code payment order.
type PaymentLink struct {
	URL               string `json:"url"`
	QRCodeURL         string `json:"qr_code_url"`
	MerchantPaymentID string `json:"merchant_payment_id"`
}

// PaymentStatus is the provider-side state of an order.
type PaymentStatus struct {
	Status            string `json:"status"`
	Amount            int64  `json:"amount"`
	MerchantPaymentID string `json:"merchant_payment_id"`
}

const StatusCompleted = "COMPLETED"

// Client talks to the PayPay Open Payment API. The core treats it as an
// opaque collaborator; failures never corrupt ledger state.
type Client interface {
	CreatePaymentLink(ctx context.Context, merchantPaymentID string, amount int64, description string) (PaymentLink, error)
	GetPaymentStatus(ctx context.Context, merchantPaymentID string) (PaymentStatus, error)
	CancelPayment(ctx context.Context, merchantPaymentID string) error
}

type httpClient struct {
	apiKey      string
	apiSecret   string
	merchantID  string
	baseURL     string
	redirectURL string
	hc          *http.Client
	log         *zap.Logger
}

type disabledClient struct{}

func (disabledClient) CreatePaymentLink(context.Context, string, int64, string) (PaymentLink, error) {
	return PaymentLink{}, fmt.Errorf("paypay is not configured: %w", providererr.ErrExternalService)
}

func (disabledClient) GetPaymentStatus(context.Context, string) (PaymentStatus, error) {
	return PaymentStatus{}, fmt.Errorf("paypay is not configured: %w", providererr.ErrExternalService)
}

func (disabledClient) CancelPayment(context.Context, string) error {
	return fmt.Errorf("paypay is not configured: %w", providererr.ErrExternalService)
}

func New(cfg config.Config, log *zap.Logger) Client {
	if cfg.PayPayAPIKey == "" || cfg.PayPayAPISecret == "" {
		log.Warn("paypay credentials missing, payment links disabled")
		return disabledClient{}
	}
	return &httpClient{
		apiKey:      cfg.PayPayAPIKey,
		apiSecret:   cfg.PayPayAPISecret,
		merchantID:  cfg.PayPayMerchantID,
		baseURL:     cfg.PayPayBaseURL,
		redirectURL: cfg.BaseURL + "/payment/callback",
		hc:          &http.Client{Timeout: 15 * time.Second},
		log:         log.Named("paypay.client"),
	}
}

type resultInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	ResultInfo resultInfo      `json:"resultInfo"`
	Data       json.RawMessage `json:"data"`
}

func (c *httpClient) CreatePaymentLink(ctx context.Context, merchantPaymentID string, amount int64, description string) (PaymentLink, error) {
	if description == "" {
		description = fmt.Sprintf("payment: %d", amount)
	}
	body, err := json.Marshal(map[string]any{
		"merchantPaymentId": merchantPaymentID,
		"amount": map[string]any{
			"amount":   amount,
			"currency": "JPY",
		},
		"codeType":         "ORDER_QR",
		"redirectUrl":      c.redirectURL,
		"redirectType":     "WEB_LINK",
		"orderDescription": description,
	})
	if err != nil {
		return PaymentLink{}, err
	}

	var data struct {
		URL               string `json:"url"`
		QRCodeURL         string `json:"qrCodeUrl"`
		MerchantPaymentID string `json:"merchantPaymentId"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/qrcode", body, &data); err != nil {
		return PaymentLink{}, err
	}

	return PaymentLink{
		URL:               data.URL,
		QRCodeURL:         data.QRCodeURL,
		MerchantPaymentID: data.MerchantPaymentID,
	}, nil
}

func (c *httpClient) GetPaymentStatus(ctx context.Context, merchantPaymentID string) (PaymentStatus, error) {
	var data struct {
		Status string `json:"status"`
		Amount struct {
			Amount int64 `json:"amount"`
		} `json:"amount"`
		MerchantPaymentID string `json:"merchantPaymentId"`
	}
	path := "/v2/codes/payments/" + merchantPaymentID
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return PaymentStatus{}, err
	}

	return PaymentStatus{
		Status:            data.Status,
		Amount:            data.Amount.Amount,
		MerchantPaymentID: data.MerchantPaymentID,
	}, nil
}

func (c *httpClient) CancelPayment(ctx context.Context, merchantPaymentID string) error {
	return c.do(ctx, http.MethodDelete, "/v2/payments/"+merchantPaymentID, nil, nil)
}

func (c *httpClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if err := c.sign(req, method, path, body); err != nil {
		return err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("paypay %s %s: %w", method, path, providererr.ErrExternalService)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("paypay response decode: %w", providererr.ErrExternalService)
	}
	if resp.StatusCode >= 300 || parsed.ResultInfo.Code != "SUCCESS" {
		c.log.Warn("paypay call failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", parsed.ResultInfo.Code),
		)
		return fmt.Errorf("paypay %s: %w", parsed.ResultInfo.Message, providererr.ErrExternalService)
	}

	if out != nil {
		if err := json.Unmarshal(parsed.Data, out); err != nil {
			return fmt.Errorf("paypay payload decode: %w", providererr.ErrExternalService)
		}
	}
	return nil
}

// sign builds the OPA-Auth HMAC header over
// method, path, timestamp, nonce and the body hash.
func (c *httpClient) sign(req *http.Request, method, path string, body []byte) error {
	timestamp := time.Now().UnixMilli()
	nonceRaw := make([]byte, 16)
	if _, err := rand.Read(nonceRaw); err != nil {
		return err
	}
	nonce := hex.EncodeToString(nonceRaw)

	bodyHash := sha256.Sum256(body)
	message := fmt.Sprintf("%s\n%s\n%d\n%s\n%s",
		method, path, timestamp, nonce, hex.EncodeToString(bodyHash[:]))

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(message))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("Authorization",
		fmt.Sprintf("hmac OPA-Auth:%s:%s:%s:%d", c.apiKey, signature, nonce, timestamp))
	req.Header.Set("Content-Type", "application/json")
	if c.merchantID != "" {
		req.Header.Set("X-ASSUME-MERCHANT", c.merchantID)
	}
	return nil
}

var Module = fx.Module("providers.paypay",
	fx.Provide(New),
)
