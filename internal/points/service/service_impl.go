package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/mocky70025/suiren/internal/payment/domain"
	"github.com/mocky70025/suiren/internal/points/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 50

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo paymentdomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo paymentdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("points.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetBalance(ctx context.Context, buyerID snowflake.ID) (paymentdomain.Balance, error) {
	return s.repo.BalanceByBuyer(ctx, s.db, buyerID)
}

func (s *Service) GetHistory(ctx context.Context, buyerID snowflake.ID, limit int) ([]paymentdomain.Payment, error) {
	if limit <= 0 || limit > 250 {
		limit = defaultHistoryLimit
	}
	items, err := s.repo.HistoryByBuyer(ctx, s.db, buyerID, limit)
	if err != nil {
		return nil, err
	}
	payments := make([]paymentdomain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}
	return payments, nil
}
