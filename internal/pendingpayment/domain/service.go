package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/mocky70025/suiren/internal/payment/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pending *PendingPayment) error
	FindByMerchantPaymentID(ctx context.Context, db *gorm.DB, merchantPaymentID string) (*PendingPayment, error)
	MarkCompletedIfCreated(ctx context.Context, db *gorm.DB, merchantPaymentID string, completedAt time.Time) (bool, error)
	MarkCanceledIfCreated(ctx context.Context, db *gorm.DB, merchantPaymentID string) (bool, error)
}

type CreateRequest struct {
	UserID snowflake.ID
	Amount int64
}

type Service interface {
	// Create registers an in-flight external payment and returns the row
	// carrying the generated merchant payment id.
	Create(context.Context, CreateRequest) (PendingPayment, error)

	Get(ctx context.Context, merchantPaymentID string) (PendingPayment, error)

	// Complete settles a pending payment exactly once: the status
	// compare-and-swap and the ledger credit share one transaction, so a
	// poll and a callback racing on the same order credit it once.
	Complete(ctx context.Context, merchantPaymentID string) (paymentdomain.Payment, error)

	Cancel(ctx context.Context, merchantPaymentID string) error
}

var (
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrInvalidUser    = errors.New("invalid_user")
	ErrNotFound       = errors.New("pending_payment_not_found")
	ErrAlreadySettled = errors.New("pending_payment_already_settled")
)
