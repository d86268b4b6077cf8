package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/mocky70025/suiren/internal/payment/domain"
)

// Service is the read side of the points ledger. It never writes.
type Service interface {
	GetBalance(ctx context.Context, buyerID snowflake.ID) (paymentdomain.Balance, error)
	GetHistory(ctx context.Context, buyerID snowflake.ID, limit int) ([]paymentdomain.Payment, error)
}
