package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Payment is an immutable ledger fact crediting points to a buyer.
// Rows are never updated or deleted; every point total is derived by
// summing them.
type Payment struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	BuyerID   snowflake.ID  `gorm:"not null;index" json:"buyer_id"`
	SellerID  *snowflake.ID `gorm:"index" json:"seller_id,omitempty"`
	Amount    int64         `gorm:"not null" json:"amount"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

// Balance is the read-side aggregate over a buyer's payments.
type Balance struct {
	TotalPoints  int64 `json:"totalPoints"`
	PaymentCount int64 `json:"paymentCount"`
}

// SellerEarnings aggregates payments collected by one seller.
type SellerEarnings struct {
	TotalAmount      int64 `json:"total_amount"`
	TransactionCount int64 `json:"transaction_count"`
}
