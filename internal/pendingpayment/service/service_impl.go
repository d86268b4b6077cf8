package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/mocky70025/suiren/internal/clock"
	obsmetrics "github.com/mocky70025/suiren/internal/observability/metrics"
	paymentdomain "github.com/mocky70025/suiren/internal/payment/domain"
	"github.com/mocky70025/suiren/internal/pendingpayment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	paymentRepo paymentdomain.Repository
	obsMetrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("pendingpayment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		paymentRepo: p.PaymentRepo,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.PendingPayment, error) {
	if req.UserID == 0 {
		return domain.PendingPayment{}, domain.ErrInvalidUser
	}
	if req.Amount <= 0 {
		return domain.PendingPayment{}, domain.ErrInvalidAmount
	}

	pending := domain.PendingPayment{
		ID:                s.genID.Generate(),
		MerchantPaymentID: uuid.NewString(),
		UserID:            req.UserID,
		Amount:            req.Amount,
		Status:            domain.StatusCreated,
		CreatedAt:         s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &pending); err != nil {
		return domain.PendingPayment{}, err
	}

	s.log.Info("pending payment created",
		zap.String("merchant_payment_id", pending.MerchantPaymentID),
		zap.String("user_id", pending.UserID.String()),
		zap.Int64("amount", pending.Amount),
	)
	return pending, nil
}

func (s *Service) Get(ctx context.Context, merchantPaymentID string) (domain.PendingPayment, error) {
	pending, err := s.repo.FindByMerchantPaymentID(ctx, s.db, merchantPaymentID)
	if err != nil {
		return domain.PendingPayment{}, err
	}
	if pending == nil {
		return domain.PendingPayment{}, domain.ErrNotFound
	}
	return *pending, nil
}

func (s *Service) Complete(ctx context.Context, merchantPaymentID string) (paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pending, err := s.repo.FindByMerchantPaymentID(ctx, tx, merchantPaymentID)
		if err != nil {
			return err
		}
		if pending == nil {
			return domain.ErrNotFound
		}
		if pending.Status != domain.StatusCreated {
			return domain.ErrAlreadySettled
		}

		completedAt := s.clock.Now()
		claimed, err := s.repo.MarkCompletedIfCreated(ctx, tx, merchantPaymentID, completedAt)
		if err != nil {
			return err
		}
		if !claimed {
			return domain.ErrAlreadySettled
		}

		payment = paymentdomain.Payment{
			ID:        s.genID.Generate(),
			BuyerID:   pending.UserID,
			Amount:    pending.Amount,
			CreatedAt: completedAt,
		}
		return s.paymentRepo.Insert(ctx, tx, &payment)
	})
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	s.obsMetrics.RecordPayment("paypay", payment.Amount)
	s.log.Info("pending payment completed",
		zap.String("merchant_payment_id", merchantPaymentID),
		zap.String("payment_id", payment.ID.String()),
	)
	return payment, nil
}

func (s *Service) Cancel(ctx context.Context, merchantPaymentID string) error {
	claimed, err := s.repo.MarkCanceledIfCreated(ctx, s.db, merchantPaymentID)
	if err != nil {
		return err
	}
	if !claimed {
		pending, findErr := s.repo.FindByMerchantPaymentID(ctx, s.db, merchantPaymentID)
		if findErr != nil {
			return findErr
		}
		if pending == nil {
			return domain.ErrNotFound
		}
		return domain.ErrAlreadySettled
	}
	return nil
}
