package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mocky70025/suiren/internal/pendingpayment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, pending *domain.PendingPayment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO pending_payments (id, merchant_payment_id, user_id, amount, status, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pending.ID,
		pending.MerchantPaymentID,
		pending.UserID,
		pending.Amount,
		string(pending.Status),
		pending.CreatedAt,
		pending.CompletedAt,
	).Error
}

func (r *repo) FindByMerchantPaymentID(ctx context.Context, db *gorm.DB, merchantPaymentID string) (*domain.PendingPayment, error) {
	var pending domain.PendingPayment
	err := db.WithContext(ctx).Where("merchant_payment_id = ?", merchantPaymentID).First(&pending).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *repo) MarkCompletedIfCreated(ctx context.Context, db *gorm.DB, merchantPaymentID string, completedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE pending_payments
		 SET status = ?, completed_at = ?
		 WHERE merchant_payment_id = ? AND status = ?`,
		string(domain.StatusCompleted),
		completedAt,
		merchantPaymentID,
		string(domain.StatusCreated),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkCanceledIfCreated(ctx context.Context, db *gorm.DB, merchantPaymentID string) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE pending_payments
		 SET status = ?
		 WHERE merchant_payment_id = ? AND status = ?`,
		string(domain.StatusCanceled),
		merchantPaymentID,
		string(domain.StatusCreated),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
