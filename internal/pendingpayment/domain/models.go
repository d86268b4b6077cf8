package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PendingPaymentStatus tracks an in-flight external payment.
type PendingPaymentStatus string

const (
	StatusCreated   PendingPaymentStatus = "CREATED"
	StatusCompleted PendingPaymentStatus = "COMPLETED"
	StatusCanceled  PendingPaymentStatus = "CANCELED"
)

// PendingPayment correlates an external payment-provider order with the
// local user who initiated it. Persisted (not held in memory) so a
// process restart cannot drop an in-flight correlation.
type PendingPayment struct {
	ID                snowflake.ID         `gorm:"primaryKey" json:"id"`
	MerchantPaymentID string               `gorm:"not null;uniqueIndex" json:"merchant_payment_id"`
	UserID            snowflake.ID         `gorm:"not null;index" json:"user_id"`
	Amount            int64                `gorm:"not null" json:"amount"`
	Status            PendingPaymentStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt         time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CompletedAt       *time.Time           `json:"completed_at,omitempty"`
}

func (PendingPayment) TableName() string { return "pending_payments" }
