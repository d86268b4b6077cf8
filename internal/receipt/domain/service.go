package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/mocky70025/suiren/internal/payment/domain"
	"github.com/mocky70025/suiren/pkg/db/pagination"
)

type SubmitRequest struct {
	SellerID  snowflake.ID
	Amount    int64
	BuyerName string
	BuyerID   *snowflake.ID
	Memo      string
}

// SubmitResponse reports the submission outcome. Payment is non-nil only
// when the receipt was auto-matched and processed in the same call.
type SubmitResponse struct {
	Receipt Receipt                `json:"receipt"`
	Payment *paymentdomain.Payment `json:"payment,omitempty"`
}

type ListReceiptRequest struct {
	PageToken string
	PageSize  int32
}

type ListReceiptResponse struct {
	pagination.PageInfo
	Receipts []Receipt `json:"receipts"`
}

// CandidateTransaction is one transaction extracted from a payment
// screenshot by the external analysis collaborator.
type CandidateTransaction struct {
	Amount     int64  `json:"amount"`
	SenderName string `json:"sender_name,omitempty"`
	Date       string `json:"date,omitempty"`
	Memo       string `json:"memo,omitempty"`
}

// MatchedCandidate is a candidate after the name/amount matching step.
type MatchedCandidate struct {
	CandidateTransaction
	MatchedUserID *snowflake.ID `json:"matched_user_id,omitempty"`
	ReceiptID     *snowflake.ID `json:"receipt_id,omitempty"`
}

type AppliedCandidate struct {
	ReceiptID snowflake.ID `json:"receipt_id"`
	BuyerID   snowflake.ID `json:"buyer_id"`
	PaymentID snowflake.ID `json:"payment_id"`
	Amount    int64        `json:"amount"`
}

type FailedCandidate struct {
	Candidate MatchedCandidate `json:"candidate"`
	Reason    string           `json:"reason"`
}

// BatchResult is a partial-failure report: one entry per candidate,
// never an all-or-nothing abort.
type BatchResult struct {
	Succeeded []AppliedCandidate `json:"succeeded"`
	Failed    []FailedCandidate  `json:"failed"`
}

const (
	FailReasonNoMatch            = "no_match"
	FailReasonNoPendingReceipt   = "no_pending_receipt"
	FailReasonDuplicateCandidate = "duplicate_candidate"
	FailReasonAlreadyProcessed   = "already_processed"
	FailReasonNotFound           = "receipt_not_found"
	FailReasonInternal           = "internal_error"
)

type Service interface {
	// Submit creates a receipt and attempts an immediate auto-match when
	// a buyer was named. A failed auto-match never rolls the submission
	// back; the receipt stays PENDING for manual processing.
	Submit(context.Context, SubmitRequest) (SubmitResponse, error)

	// Process transitions a receipt PENDING -> PROCESSED, crediting the
	// buyer in the same transaction. A second call for the same receipt
	// fails with ErrAlreadyProcessed.
	Process(ctx context.Context, receiptID, buyerID snowflake.ID) (paymentdomain.Payment, error)

	GetByID(ctx context.Context, id snowflake.ID) (Receipt, error)
	ListPending(ctx context.Context) ([]Receipt, error)
	List(context.Context, ListReceiptRequest) (ListReceiptResponse, error)

	// MatchCandidates attaches buyer and pending-receipt matches to raw
	// analysis candidates by sender-name and amount lookup.
	MatchCandidates(ctx context.Context, candidates []CandidateTransaction) ([]MatchedCandidate, error)

	// ApplyCandidates processes matched candidates one by one, isolating
	// per-item failures into the batch summary.
	ApplyCandidates(ctx context.Context, candidates []MatchedCandidate) (BatchResult, error)
}

var (
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidSeller    = errors.New("invalid_seller")
	ErrBuyerNotFound    = errors.New("buyer_not_found")
	ErrNotFound         = errors.New("receipt_not_found")
	ErrAlreadyProcessed = errors.New("receipt_already_processed")
)
