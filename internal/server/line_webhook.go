package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type lineWebhookPayload struct {
	Events []lineEvent `json:"events"`
}

type lineEvent struct {
	Type   string `json:"type"`
	Source struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

// HandleLINEWebhook receives bot events. Unknown users are provisioned
// on first contact; a balance keyword answers with the current total.
// The endpoint always acknowledges with 200 so the platform does not
// retry events we chose to ignore.
func (s *Server) HandleLINEWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusOK)
		return
	}

	if !s.verifyLINESignature(body, c.GetHeader("X-Line-Signature")) {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var payload lineWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.Status(http.StatusOK)
		return
	}

	ctx := c.Request.Context()
	for _, event := range payload.Events {
		lineUserID := strings.TrimSpace(event.Source.UserID)
		if lineUserID == "" {
			continue
		}

		user, err := s.userSvc.FindOrCreateByLINEUserID(ctx, lineUserID)
		if err != nil {
			s.log.Warn("line user provisioning failed", zap.Error(err))
			continue
		}

		if event.Type == "message" && event.Message.Type == "text" && isBalanceQuery(event.Message.Text) {
			s.notifyBalance(ctx, user.ID)
		}
	}

	c.Status(http.StatusOK)
}

func isBalanceQuery(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.Contains(trimmed, "ポイント") || strings.Contains(trimmed, "残高") {
		return true
	}
	switch strings.ToLower(trimmed) {
	case "points", "balance":
		return true
	default:
		return false
	}
}

// verifyLINESignature checks the webhook HMAC. Verification is skipped
// when no channel secret is configured (local development).
func (s *Server) verifyLINESignature(body []byte, signature string) bool {
	secret := s.cfg.LINEChannelSecret
	if secret == "" {
		return true
	}
	if strings.TrimSpace(signature) == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}
