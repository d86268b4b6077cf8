package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mocky70025/suiren/internal/receipt/domain"
	"github.com/mocky70025/suiren/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, receipt *domain.Receipt) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO receipts (id, seller_id, buyer_id, amount, memo, status, metadata, created_at, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID,
		receipt.SellerID,
		receipt.BuyerID,
		receipt.Amount,
		receipt.Memo,
		string(receipt.Status),
		receipt.Metadata,
		receipt.CreatedAt,
		receipt.ProcessedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Receipt, error) {
	var receipt domain.Receipt
	err := db.WithContext(ctx).Where("id = ?", id).First(&receipt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB) ([]*domain.Receipt, error) {
	var receipts []*domain.Receipt
	err := db.WithContext(ctx).
		Model(&domain.Receipt{}).
		Where("status = ?", string(domain.StatusPending)).
		Order("created_at asc, id asc").
		Find(&receipts).Error
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*domain.Receipt, error) {
	stmt := db.WithContext(ctx).Model(&domain.Receipt{})

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

	var receipts []*domain.Receipt
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&receipts).Error
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

func (r *repo) MarkProcessedIfPending(ctx context.Context, db *gorm.DB, id, buyerID snowflake.ID, processedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE receipts
		 SET status = ?, buyer_id = ?, processed_at = ?
		 WHERE id = ? AND status = ?`,
		string(domain.StatusProcessed),
		buyerID,
		processedAt,
		id,
		string(domain.StatusPending),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertApplication(ctx context.Context, db *gorm.DB, app *domain.AnalysisApplication) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO analysis_applications (id, fingerprint, receipt_id, payment_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		app.ID,
		app.Fingerprint,
		app.ReceiptID,
		app.PaymentID,
		app.CreatedAt,
	).Error
}

func (r *repo) SetMetadata(ctx context.Context, db *gorm.DB, id snowflake.ID, metadata datatypes.JSONMap) error {
	return db.WithContext(ctx).
		Model(&domain.Receipt{}).
		Where("id = ?", id).
		Update("metadata", metadata).Error
}
