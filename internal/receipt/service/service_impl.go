package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mocky70025/suiren/internal/clock"
	obsmetrics "github.com/mocky70025/suiren/internal/observability/metrics"
	paymentdomain "github.com/mocky70025/suiren/internal/payment/domain"
	"github.com/mocky70025/suiren/internal/receipt/domain"
	userdomain "github.com/mocky70025/suiren/internal/user/domain"
	"github.com/mocky70025/suiren/pkg/db"
	"github.com/mocky70025/suiren/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	PaymentRepo paymentdomain.Repository
	UserRepo    userdomain.Repository
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	paymentRepo paymentdomain.Repository
	userRepo    userdomain.Repository
	obsMetrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("receipt.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		paymentRepo: p.PaymentRepo,
		userRepo:    p.UserRepo,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (domain.SubmitResponse, error) {
	if req.SellerID == 0 {
		return domain.SubmitResponse{}, domain.ErrInvalidSeller
	}
	if req.Amount <= 0 {
		return domain.SubmitResponse{}, domain.ErrInvalidAmount
	}

	buyerID, err := s.resolveBuyer(ctx, req)
	if err != nil {
		return domain.SubmitResponse{}, err
	}

	receipt := domain.Receipt{
		ID:        s.genID.Generate(),
		SellerID:  req.SellerID,
		BuyerID:   buyerID,
		Amount:    req.Amount,
		Memo:      strings.TrimSpace(req.Memo),
		Status:    domain.StatusPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &receipt); err != nil {
		return domain.SubmitResponse{}, err
	}

	if buyerID == nil {
		s.obsMetrics.RecordReceiptSubmitted(string(domain.StatusPending))
		return domain.SubmitResponse{Receipt: receipt}, nil
	}

	// Auto-match. A failure here never unwinds the submission: the
	// receipt already exists and simply stays PENDING for the admin.
	payment, err := s.process(ctx, receipt.ID, *buyerID, "auto")
	if err != nil {
		s.log.Warn("auto-match failed, receipt left pending",
			zap.String("receipt_id", receipt.ID.String()),
			zap.Error(err),
		)
		s.obsMetrics.RecordReceiptSubmitted(string(domain.StatusPending))
		return domain.SubmitResponse{Receipt: receipt}, nil
	}

	processed, err := s.repo.FindByID(ctx, s.db, receipt.ID)
	if err != nil || processed == nil {
		// The transition committed; fall back to stamping locally.
		now := payment.CreatedAt
		receipt.Status = domain.StatusProcessed
		receipt.BuyerID = buyerID
		receipt.ProcessedAt = &now
		processed = &receipt
	}

	s.obsMetrics.RecordReceiptSubmitted(string(domain.StatusProcessed))
	return domain.SubmitResponse{Receipt: *processed, Payment: &payment}, nil
}

func (s *Service) resolveBuyer(ctx context.Context, req domain.SubmitRequest) (*snowflake.ID, error) {
	if req.BuyerID != nil && *req.BuyerID != 0 {
		buyer, err := s.userRepo.FindByID(ctx, s.db, *req.BuyerID)
		if err != nil {
			return nil, err
		}
		if buyer == nil {
			return nil, domain.ErrBuyerNotFound
		}
		return req.BuyerID, nil
	}

	name := strings.TrimSpace(req.BuyerName)
	if name == "" {
		return nil, nil
	}

	buyer, err := s.userRepo.FindByName(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		return nil, domain.ErrBuyerNotFound
	}
	id := buyer.ID
	return &id, nil
}

func (s *Service) Process(ctx context.Context, receiptID, buyerID snowflake.ID) (paymentdomain.Payment, error) {
	return s.process(ctx, receiptID, buyerID, "manual")
}

func (s *Service) process(ctx context.Context, receiptID, buyerID snowflake.ID, trigger string) (paymentdomain.Payment, error) {
	buyer, err := s.userRepo.FindByID(ctx, s.db, buyerID)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if buyer == nil {
		return paymentdomain.Payment{}, domain.ErrBuyerNotFound
	}

	var payment paymentdomain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, txErr := s.processTx(ctx, tx, receiptID, buyerID)
		if txErr != nil {
			return txErr
		}
		payment = p
		return nil
	})
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	s.obsMetrics.RecordReceiptProcessed(trigger)
	s.obsMetrics.RecordPayment("receipt", payment.Amount)
	s.log.Info("receipt processed",
		zap.String("receipt_id", receiptID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.Int64("amount", payment.Amount),
		zap.String("trigger", trigger),
	)
	return payment, nil
}

// processTx performs the PENDING -> PROCESSED transition and the payment
// insert as one unit. The status-guarded UPDATE is the only writer of
// receipt state: of two racing calls exactly one claims the row, the
// other re-reads PROCESSED and fails.
func (s *Service) processTx(ctx context.Context, tx *gorm.DB, receiptID, buyerID snowflake.ID) (paymentdomain.Payment, error) {
	receipt, err := s.repo.FindByID(ctx, tx, receiptID)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if receipt == nil {
		return paymentdomain.Payment{}, domain.ErrNotFound
	}
	if receipt.Status == domain.StatusProcessed {
		return paymentdomain.Payment{}, domain.ErrAlreadyProcessed
	}

	processedAt := s.clock.Now()
	claimed, err := s.repo.MarkProcessedIfPending(ctx, tx, receiptID, buyerID, processedAt)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if !claimed {
		return paymentdomain.Payment{}, domain.ErrAlreadyProcessed
	}

	sellerID := receipt.SellerID
	payment := paymentdomain.Payment{
		ID:        s.genID.Generate(),
		BuyerID:   buyerID,
		SellerID:  &sellerID,
		Amount:    receipt.Amount,
		CreatedAt: processedAt,
	}
	if err := s.paymentRepo.Insert(ctx, tx, &payment); err != nil {
		return paymentdomain.Payment{}, err
	}

	return payment, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Receipt, error) {
	receipt, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Receipt{}, err
	}
	if receipt == nil {
		return domain.Receipt{}, domain.ErrNotFound
	}
	return *receipt, nil
}

func (s *Service) ListPending(ctx context.Context) ([]domain.Receipt, error) {
	items, err := s.repo.ListPending(ctx, s.db)
	if err != nil {
		return nil, err
	}
	receipts := make([]domain.Receipt, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		receipts = append(receipts, *item)
	}
	return receipts, nil
}

func (s *Service) List(ctx context.Context, req domain.ListReceiptRequest) (domain.ListReceiptResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListReceiptResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(receipt *domain.Receipt) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        receipt.ID.String(),
			CreatedAt: receipt.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	receipts := make([]domain.Receipt, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		receipts = append(receipts, *item)
	}

	resp := domain.ListReceiptResponse{Receipts: receipts}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// MatchCandidates resolves each candidate's sender name to a user and
// its amount to the oldest still-unclaimed pending receipt. Matching is
// deliberately simple lookup; anything unmatched surfaces in the batch
// report instead of being guessed.
func (s *Service) MatchCandidates(ctx context.Context, candidates []domain.CandidateTransaction) ([]domain.MatchedCandidate, error) {
	pending, err := s.repo.ListPending(ctx, s.db)
	if err != nil {
		return nil, err
	}

	used := make(map[snowflake.ID]bool, len(pending))
	matched := make([]domain.MatchedCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		item := domain.MatchedCandidate{CandidateTransaction: candidate}

		name := strings.TrimSpace(candidate.SenderName)
		if name != "" {
			user, err := s.userRepo.FindByName(ctx, s.db, name)
			if err != nil {
				return nil, err
			}
			if user != nil {
				id := user.ID
				item.MatchedUserID = &id
			}
		}

		for _, receipt := range pending {
			if receipt == nil || used[receipt.ID] || receipt.Amount != candidate.Amount {
				continue
			}
			used[receipt.ID] = true
			id := receipt.ID
			item.ReceiptID = &id
			break
		}

		matched = append(matched, item)
	}
	return matched, nil
}

func (s *Service) ApplyCandidates(ctx context.Context, candidates []domain.MatchedCandidate) (domain.BatchResult, error) {
	result := domain.BatchResult{
		Succeeded: []domain.AppliedCandidate{},
		Failed:    []domain.FailedCandidate{},
	}

	for _, candidate := range candidates {
		applied, reason := s.applyCandidate(ctx, candidate)
		if reason != "" {
			s.obsMetrics.RecordCandidate(reason)
			result.Failed = append(result.Failed, domain.FailedCandidate{
				Candidate: candidate,
				Reason:    reason,
			})
			continue
		}
		s.obsMetrics.RecordCandidate("applied")
		result.Succeeded = append(result.Succeeded, applied)
	}

	return result, nil
}

func (s *Service) applyCandidate(ctx context.Context, candidate domain.MatchedCandidate) (domain.AppliedCandidate, string) {
	if candidate.MatchedUserID == nil || *candidate.MatchedUserID == 0 {
		return domain.AppliedCandidate{}, domain.FailReasonNoMatch
	}
	if candidate.ReceiptID == nil || *candidate.ReceiptID == 0 {
		return domain.AppliedCandidate{}, domain.FailReasonNoPendingReceipt
	}

	receiptID := *candidate.ReceiptID
	buyerID := *candidate.MatchedUserID

	buyer, err := s.userRepo.FindByID(ctx, s.db, buyerID)
	if err != nil {
		s.log.Error("candidate buyer lookup failed", zap.Error(err))
		return domain.AppliedCandidate{}, domain.FailReasonInternal
	}
	if buyer == nil {
		return domain.AppliedCandidate{}, domain.FailReasonNoMatch
	}

	var payment paymentdomain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, txErr := s.processTx(ctx, tx, receiptID, buyerID)
		if txErr != nil {
			return txErr
		}

		// The fingerprint row shares the transaction with the receipt
		// transition, so a duplicate candidate rolls the credit back.
		app := domain.AnalysisApplication{
			ID:          s.genID.Generate(),
			Fingerprint: candidateFingerprint(candidate.CandidateTransaction),
			ReceiptID:   receiptID,
			PaymentID:   p.ID,
			CreatedAt:   s.clock.Now(),
		}
		if insErr := s.repo.InsertApplication(ctx, tx, &app); insErr != nil {
			return insErr
		}

		meta := datatypes.JSONMap{"source": "analysis"}
		if name := strings.TrimSpace(candidate.SenderName); name != "" {
			meta["sender_name"] = name
		}
		if date := strings.TrimSpace(candidate.Date); date != "" {
			meta["transaction_date"] = date
		}
		if metaErr := s.repo.SetMetadata(ctx, tx, receiptID, meta); metaErr != nil {
			return metaErr
		}

		payment = p
		return nil
	})
	if err != nil {
		switch {
		case err == domain.ErrAlreadyProcessed:
			return domain.AppliedCandidate{}, domain.FailReasonAlreadyProcessed
		case err == domain.ErrNotFound:
			return domain.AppliedCandidate{}, domain.FailReasonNotFound
		case db.IsDuplicateKeyErr(err):
			return domain.AppliedCandidate{}, domain.FailReasonDuplicateCandidate
		default:
			s.log.Error("candidate application failed",
				zap.String("receipt_id", receiptID.String()),
				zap.Error(err),
			)
			return domain.AppliedCandidate{}, domain.FailReasonInternal
		}
	}

	s.obsMetrics.RecordReceiptProcessed("analysis")
	s.obsMetrics.RecordPayment("receipt", payment.Amount)
	return domain.AppliedCandidate{
		ReceiptID: receiptID,
		BuyerID:   buyerID,
		PaymentID: payment.ID,
		Amount:    payment.Amount,
	}, ""
}

func candidateFingerprint(candidate domain.CandidateTransaction) string {
	normalized := fmt.Sprintf("%s|%d|%s",
		strings.ToLower(strings.TrimSpace(candidate.SenderName)),
		candidate.Amount,
		strings.TrimSpace(candidate.Date),
	)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
