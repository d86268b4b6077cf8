package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mocky70025/suiren/internal/payment/domain"
	"github.com/mocky70025/suiren/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, buyer_id, seller_id, amount, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		payment.ID,
		payment.BuyerID,
		payment.SellerID,
		payment.Amount,
		payment.CreatedAt,
	).Error
}

func (r *repo) BalanceByBuyer(ctx context.Context, db *gorm.DB, buyerID snowflake.ID) (domain.Balance, error) {
	var row struct {
		TotalPoints  int64
		PaymentCount int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) AS total_points, COUNT(*) AS payment_count
		 FROM payments WHERE buyer_id = ?`,
		buyerID,
	).Scan(&row).Error
	if err != nil {
		return domain.Balance{}, err
	}
	return domain.Balance{
		TotalPoints:  row.TotalPoints,
		PaymentCount: row.PaymentCount,
	}, nil
}

func (r *repo) HistoryByBuyer(ctx context.Context, db *gorm.DB, buyerID snowflake.ID, limit int) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("buyer_id = ?", buyerID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) EarningsBySeller(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) (domain.SellerEarnings, error) {
	var row struct {
		TotalAmount      int64
		TransactionCount int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) AS total_amount, COUNT(*) AS transaction_count
		 FROM payments WHERE seller_id = ?`,
		sellerID,
	).Scan(&row).Error
	if err != nil {
		return domain.SellerEarnings{}, err
	}
	return domain.SellerEarnings{
		TotalAmount:      row.TotalAmount,
		TransactionCount: row.TransactionCount,
	}, nil
}

func (r *repo) TransactionsBySeller(ctx context.Context, db *gorm.DB, sellerID snowflake.ID, limit int) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("seller_id = ?", sellerID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, buyerID *snowflake.ID, page pagination.Pagination) ([]*domain.Payment, error) {
	stmt := db.WithContext(ctx).Model(&domain.Payment{})

	if buyerID != nil {
		stmt = stmt.Where("buyer_id = ?", *buyerID)
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		if cursor.CreatedAt != "" && cursor.ID != "" {
			createdAt, err := time.Parse(time.RFC3339, cursor.CreatedAt)
			if err != nil {
				return nil, err
			}
			id, err := snowflake.ParseString(cursor.ID)
			if err != nil {
				return nil, err
			}
			stmt = stmt.Where("(created_at, id) < (?, ?)", createdAt, id)
		}
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 10
	}

	var payments []*domain.Payment
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
