package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ReceiptStatus is the receipt lifecycle state. PENDING is initial,
// PROCESSED is terminal; there is no reverse transition.
type ReceiptStatus string

const (
	StatusPending   ReceiptStatus = "PENDING"
	StatusProcessed ReceiptStatus = "PROCESSED"
)

// Receipt is a seller's claim of a received payment, awaiting buyer
// attribution. A PROCESSED receipt always carries a buyer, a processed
// timestamp and exactly one matching payment row.
type Receipt struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	SellerID    snowflake.ID      `gorm:"not null;index" json:"seller_id"`
	BuyerID     *snowflake.ID     `gorm:"index" json:"buyer_id,omitempty"`
	Amount      int64             `gorm:"not null" json:"amount"`
	Memo        string            `gorm:"type:text" json:"memo,omitempty"`
	Status      ReceiptStatus     `gorm:"type:text;not null;index" json:"status"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty"`
}

func (Receipt) TableName() string { return "receipts" }

// AnalysisApplication pins a screenshot-analysis candidate that has been
// credited, keyed by a content fingerprint so re-running analysis on the
// same screenshot cannot credit the same transaction twice.
type AnalysisApplication struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Fingerprint string       `gorm:"not null;uniqueIndex"`
	ReceiptID   snowflake.ID `gorm:"not null"`
	PaymentID   snowflake.ID `gorm:"not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AnalysisApplication) TableName() string { return "analysis_applications" }
