package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	pendingpaymentdomain "github.com/mocky70025/suiren/internal/pendingpayment/domain"
	"github.com/mocky70025/suiren/internal/providers/paypay"
	"go.uber.org/zap"
)

type createPaymentLinkRequest struct {
	UserID snowflake.ID `json:"user_id"`
	Amount int64        `json:"amount"`
}

type paymentLinkResponse struct {
	URL               string `json:"url"`
	QRCodeURL         string `json:"qr_code_url"`
	MerchantPaymentID string `json:"merchant_payment_id"`
}

// CreatePaymentLink registers an in-flight external payment, then asks
// the provider for a QR link carrying the generated order id. The
// pending row exists before the provider call so a completed order can
// always be correlated back, even across a restart.
func (s *Server) CreatePaymentLink(c *gin.Context) {
	var req createPaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.userSvc.GetByID(c.Request.Context(), req.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pending, err := s.pendingSvc.Create(c.Request.Context(), pendingpaymentdomain.CreateRequest{
		UserID: req.UserID,
		Amount: req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	link, err := s.paypay.CreatePaymentLink(c.Request.Context(), pending.MerchantPaymentID, pending.Amount, "")
	if err != nil {
		s.obsMetrics.RecordExternalCallError("paypay")
		if cancelErr := s.pendingSvc.Cancel(c.Request.Context(), pending.MerchantPaymentID); cancelErr != nil {
			s.log.Warn("orphaned pending payment after provider failure",
				zap.String("merchant_payment_id", pending.MerchantPaymentID),
				zap.Error(cancelErr),
			)
		}
		AbortWithError(c, err)
		return
	}

	if user.LINEUserID != nil {
		s.notifyPaymentLink(c.Request.Context(), *user.LINEUserID, pending.Amount, link.URL)
	}

	c.JSON(http.StatusCreated, gin.H{"data": paymentLinkResponse{
		URL:               link.URL,
		QRCodeURL:         link.QRCodeURL,
		MerchantPaymentID: link.MerchantPaymentID,
	}})
}

// CheckPaymentStatus polls the provider for an order and settles it on
// completion. Settlement is idempotent; a poll racing the LINE flow on
// the same order credits it once.
func (s *Server) CheckPaymentStatus(c *gin.Context) {
	merchantPaymentID := strings.TrimSpace(c.Param("merchantPaymentId"))
	if merchantPaymentID == "" {
		AbortWithError(c, newValidationError("merchantPaymentId", "invalid_id", "merchant payment id is required"))
		return
	}

	pending, err := s.pendingSvc.Get(c.Request.Context(), merchantPaymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if pending.Status != pendingpaymentdomain.StatusCreated {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": pending.Status}})
		return
	}

	status, err := s.paypay.GetPaymentStatus(c.Request.Context(), merchantPaymentID)
	if err != nil {
		s.obsMetrics.RecordExternalCallError("paypay")
		AbortWithError(c, err)
		return
	}

	switch status.Status {
	case paypay.StatusCompleted:
		payment, err := s.pendingSvc.Complete(c.Request.Context(), merchantPaymentID)
		if err != nil {
			if errors.Is(err, pendingpaymentdomain.ErrAlreadySettled) {
				c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": pendingpaymentdomain.StatusCompleted}})
				return
			}
			AbortWithError(c, err)
			return
		}
		s.notifyBalance(c.Request.Context(), pending.UserID)
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"status":  pendingpaymentdomain.StatusCompleted,
			"payment": payment,
		}})
	case "CANCELED", "EXPIRED", "FAILED":
		if err := s.pendingSvc.Cancel(c.Request.Context(), merchantPaymentID); err != nil &&
			!errors.Is(err, pendingpaymentdomain.ErrAlreadySettled) {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": pendingpaymentdomain.StatusCanceled}})
	default:
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": pending.Status}})
	}
}

// CancelPaymentLink abandons an in-flight order from the payment modal.
// The provider-side cancel is best-effort since unpaid orders expire on
// their own; the local row is what must not settle afterwards.
func (s *Server) CancelPaymentLink(c *gin.Context) {
	merchantPaymentID := strings.TrimSpace(c.Param("merchantPaymentId"))
	if merchantPaymentID == "" {
		AbortWithError(c, newValidationError("merchantPaymentId", "invalid_id", "merchant payment id is required"))
		return
	}

	pending, err := s.pendingSvc.Get(c.Request.Context(), merchantPaymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if pending.Status == pendingpaymentdomain.StatusCompleted {
		AbortWithError(c, pendingpaymentdomain.ErrAlreadySettled)
		return
	}

	if pending.Status == pendingpaymentdomain.StatusCreated {
		if err := s.paypay.CancelPayment(c.Request.Context(), merchantPaymentID); err != nil {
			s.obsMetrics.RecordExternalCallError("paypay")
			s.log.Warn("provider cancel failed",
				zap.String("merchant_payment_id", merchantPaymentID),
				zap.Error(err),
			)
		}
		// A poll settling the order between Get and Cancel surfaces as
		// ErrAlreadySettled, which maps to a conflict.
		if err := s.pendingSvc.Cancel(c.Request.Context(), merchantPaymentID); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": pendingpaymentdomain.StatusCanceled}})
}

// Notifications are best-effort; a push failure never fails the request.
func (s *Server) notifyPaymentLink(ctx context.Context, lineUserID string, amount int64, url string) {
	if err := s.notifier.PushPaymentLink(ctx, lineUserID, amount, url); err != nil {
		s.obsMetrics.RecordExternalCallError("line")
		s.log.Warn("payment link notification failed", zap.Error(err))
	}
}

func (s *Server) notifyBalance(ctx context.Context, userID snowflake.ID) {
	user, err := s.userSvc.GetByID(ctx, userID)
	if err != nil || user.LINEUserID == nil {
		return
	}
	balance, err := s.pointsSvc.GetBalance(ctx, userID)
	if err != nil {
		return
	}
	if err := s.notifier.PushBalance(ctx, *user.LINEUserID, balance.TotalPoints, balance.PaymentCount); err != nil {
		s.obsMetrics.RecordExternalCallError("line")
		s.log.Warn("balance notification failed", zap.Error(err))
	}
}
