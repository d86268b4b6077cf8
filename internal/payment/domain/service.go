package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/mocky70025/suiren/pkg/db/pagination"
)

type RecordPaymentRequest struct {
	BuyerID  snowflake.ID
	Amount   int64
	SellerID *snowflake.ID
}

type ListPaymentRequest struct {
	PageToken string
	PageSize  int32
	BuyerID   *snowflake.ID
}

type ListPaymentResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type Service interface {
	// Record appends a payment to the ledger. It performs no matching
	// logic; validation aside, it is a pure insert.
	Record(context.Context, RecordPaymentRequest) (Payment, error)
	EarningsBySeller(context.Context, snowflake.ID) (SellerEarnings, error)
	TransactionsBySeller(ctx context.Context, sellerID snowflake.ID, limit int) ([]Payment, error)
	List(context.Context, ListPaymentRequest) (ListPaymentResponse, error)
}

var (
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidBuyer  = errors.New("invalid_buyer")
)
