package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/mocky70025/suiren/internal/clock"
	"github.com/mocky70025/suiren/internal/config"
	obsmetrics "github.com/mocky70025/suiren/internal/observability/metrics"
	paymentdomain "github.com/mocky70025/suiren/internal/payment/domain"
	paymentrepo "github.com/mocky70025/suiren/internal/payment/repository"
	paymentservice "github.com/mocky70025/suiren/internal/payment/service"
	pendingpaymentdomain "github.com/mocky70025/suiren/internal/pendingpayment/domain"
	pendingpaymentrepo "github.com/mocky70025/suiren/internal/pendingpayment/repository"
	pendingpaymentservice "github.com/mocky70025/suiren/internal/pendingpayment/service"
	pointsservice "github.com/mocky70025/suiren/internal/points/service"
	"github.com/mocky70025/suiren/internal/providers/line"
	"github.com/mocky70025/suiren/internal/providers/paypay"
	"github.com/mocky70025/suiren/internal/providers/vision"
	receiptdomain "github.com/mocky70025/suiren/internal/receipt/domain"
	receiptrepo "github.com/mocky70025/suiren/internal/receipt/repository"
	receiptservice "github.com/mocky70025/suiren/internal/receipt/service"
	userdomain "github.com/mocky70025/suiren/internal/user/domain"
	userrepo "github.com/mocky70025/suiren/internal/user/repository"
	userservice "github.com/mocky70025/suiren/internal/user/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&userdomain.User{},
		&paymentdomain.Payment{},
		&receiptdomain.Receipt{},
		&receiptdomain.AnalysisApplication{},
		&pendingpaymentdomain.PendingPayment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	cfg := config.Config{}

	registry := prometheus.NewRegistry()
	httpMetrics, err := obsmetrics.NewHTTPMetrics(registry)
	require.NoError(t, err)

	payRepo := paymentrepo.Provide()
	usrRepo := userrepo.Provide()

	userSvc := userservice.New(userservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: usrRepo,
	})
	paymentSvc := paymentservice.New(paymentservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: payRepo,
	})
	pointsSvc := pointsservice.New(pointsservice.Params{
		DB: db, Log: log, Repo: payRepo,
	})
	receiptSvc := receiptservice.New(receiptservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: receiptrepo.Provide(), PaymentRepo: payRepo, UserRepo: usrRepo,
	})
	pendingSvc := pendingpaymentservice.New(pendingpaymentservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: pendingpaymentrepo.Provide(), PaymentRepo: payRepo,
	})

	engine := NewEngine(log, httpMetrics, registry)
	return NewServer(ServerParams{
		Gin:        engine,
		Cfg:        cfg,
		Log:        log,
		UserSvc:    userSvc,
		PointsSvc:  pointsSvc,
		PaymentSvc: paymentSvc,
		ReceiptSvc: receiptSvc,
		PendingSvc: pendingSvc,
		PayPay:     paypay.New(cfg, log),
		Notifier:   line.NoOpNotifier{},
		Vision:     vision.New(cfg, log),
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var parsed struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return parsed.Data
}

func decodeErrorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var parsed struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return parsed.Error.Type
}

func registerUser(t *testing.T, s *Server, name string) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/register", map[string]any{
		"name":     name,
		"password": "secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData(t, rec)["id"].(string)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	id := registerUser(t, s, "alice")
	assert.NotEmpty(t, id)

	rec := doJSON(t, s, http.MethodPost, "/api/register", map[string]any{
		"name":     "alice",
		"password": "other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeErrorType(t, rec))

	rec = doJSON(t, s, http.MethodPost, "/api/login", map[string]any{
		"name":     "alice",
		"password": "secret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decodeData(t, rec)["id"])

	rec = doJSON(t, s, http.MethodPost, "/api/login", map[string]any{
		"name":     "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeErrorType(t, rec))
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/register", map[string]any{
		"name":     "  ",
		"password": "secret",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeErrorType(t, rec))
}

func TestSubmitReceipt_AutoMatchAndPoints(t *testing.T) {
	s := newTestServer(t)

	sellerID := registerUser(t, s, "seller")
	buyerID := registerUser(t, s, "bob")

	rec := doJSON(t, s, http.MethodPost, "/api/seller/receipts", map[string]any{
		"seller_id":  sellerID,
		"amount":     450,
		"buyer_name": "bob",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	data := decodeData(t, rec)
	receipt := data["receipt"].(map[string]any)
	assert.Equal(t, "PROCESSED", receipt["status"])
	require.NotNil(t, data["payment"])

	rec = doJSON(t, s, http.MethodGet, "/api/users/"+buyerID+"/points", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	points := decodeData(t, rec)
	assert.Equal(t, float64(450), points["totalPoints"])
	assert.Equal(t, float64(1), points["paymentCount"])
}

func TestSubmitReceipt_InvalidAmount(t *testing.T) {
	s := newTestServer(t)
	sellerID := registerUser(t, s, "seller")

	rec := doJSON(t, s, http.MethodPost, "/api/seller/receipts", map[string]any{
		"seller_id": sellerID,
		"amount":    0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeErrorType(t, rec))
}

func TestProcessReceipt_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	sellerID := registerUser(t, s, "seller")
	buyerID := registerUser(t, s, "carol")

	rec := doJSON(t, s, http.MethodPost, "/api/seller/receipts", map[string]any{
		"seller_id": sellerID,
		"amount":    300,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	receipt := decodeData(t, rec)["receipt"].(map[string]any)
	receiptID := receipt["id"].(string)
	assert.Equal(t, "PENDING", receipt["status"])

	rec = doJSON(t, s, http.MethodGet, "/api/admin/pending-receipts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/admin/receipts/"+receiptID+"/process", map[string]any{
		"buyer_id": buyerID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Second processing attempt conflicts.
	rec = doJSON(t, s, http.MethodPost, "/api/admin/receipts/"+receiptID+"/process", map[string]any{
		"buyer_id": buyerID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeErrorType(t, rec))
}

func TestProcessReceipt_NotFound(t *testing.T) {
	s := newTestServer(t)
	buyerID := registerUser(t, s, "dave")

	rec := doJSON(t, s, http.MethodPost, "/api/admin/receipts/123456789/process", map[string]any{
		"buyer_id": buyerID,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeErrorType(t, rec))
}

func TestSellerEarnings(t *testing.T) {
	s := newTestServer(t)

	sellerID := registerUser(t, s, "seller")
	registerUser(t, s, "erin")

	rec := doJSON(t, s, http.MethodPost, "/api/seller/receipts", map[string]any{
		"seller_id":  sellerID,
		"amount":     150,
		"buyer_name": "erin",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/admin/sellers/"+sellerID+"/earnings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	earnings := decodeData(t, rec)
	assert.Equal(t, float64(150), earnings["total_amount"])
	assert.Equal(t, float64(1), earnings["transaction_count"])
}

func TestPaymentLink_ProviderUnavailable(t *testing.T) {
	s := newTestServer(t)
	userID := registerUser(t, s, "frank")

	// No provider credentials configured, the endpoint must degrade to
	// 503 without leaving a live pending payment behind.
	rec := doJSON(t, s, http.MethodPost, "/api/payment-link", map[string]any{
		"user_id": userID,
		"amount":  500,
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "service_unavailable", decodeErrorType(t, rec))
}

func TestLINEWebhook_ProvisionsUser(t *testing.T) {
	s := newTestServer(t)

	payload := map[string]any{
		"events": []map[string]any{
			{
				"type":    "message",
				"source":  map[string]any{"userId": "U777"},
				"message": map[string]any{"type": "text", "text": "ポイント"},
			},
		},
	}
	rec := doJSON(t, s, http.MethodPost, "/api/line/webhook", payload)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The sender now exists as an auto-provisioned account.
	rec = doJSON(t, s, http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "line_U777")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
