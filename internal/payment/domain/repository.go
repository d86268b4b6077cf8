package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/mocky70025/suiren/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	BalanceByBuyer(ctx context.Context, db *gorm.DB, buyerID snowflake.ID) (Balance, error)
	HistoryByBuyer(ctx context.Context, db *gorm.DB, buyerID snowflake.ID, limit int) ([]*Payment, error)
	EarningsBySeller(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) (SellerEarnings, error)
	TransactionsBySeller(ctx context.Context, db *gorm.DB, sellerID snowflake.ID, limit int) ([]*Payment, error)
	List(ctx context.Context, db *gorm.DB, buyerID *snowflake.ID, page pagination.Pagination) ([]*Payment, error)
}
