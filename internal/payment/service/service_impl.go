package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mocky70025/suiren/internal/clock"
	obsmetrics "github.com/mocky70025/suiren/internal/observability/metrics"
	"github.com/mocky70025/suiren/internal/payment/domain"
	"github.com/mocky70025/suiren/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordPaymentRequest) (domain.Payment, error) {
	if req.BuyerID == 0 {
		return domain.Payment{}, domain.ErrInvalidBuyer
	}
	if req.Amount <= 0 {
		return domain.Payment{}, domain.ErrInvalidAmount
	}

	payment := domain.Payment{
		ID:        s.genID.Generate(),
		BuyerID:   req.BuyerID,
		SellerID:  req.SellerID,
		Amount:    req.Amount,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, &payment); err != nil {
		return domain.Payment{}, err
	}

	s.obsMetrics.RecordPayment("direct", payment.Amount)
	s.log.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("buyer_id", payment.BuyerID.String()),
		zap.Int64("amount", payment.Amount),
	)
	return payment, nil
}

func (s *Service) EarningsBySeller(ctx context.Context, sellerID snowflake.ID) (domain.SellerEarnings, error) {
	return s.repo.EarningsBySeller(ctx, s.db, sellerID)
}

func (s *Service) TransactionsBySeller(ctx context.Context, sellerID snowflake.ID, limit int) ([]domain.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	items, err := s.repo.TransactionsBySeller(ctx, s.db, sellerID, limit)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) List(ctx context.Context, req domain.ListPaymentRequest) (domain.ListPaymentResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, req.BuyerID, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListPaymentResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(payment *domain.Payment) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        payment.ID.String(),
			CreatedAt: payment.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	resp := domain.ListPaymentResponse{Payments: deref(items)}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func deref(items []*domain.Payment) []domain.Payment {
	payments := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}
	return payments
}
