package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mocky70025/suiren/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, receipt *Receipt) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Receipt, error)
	ListPending(ctx context.Context, db *gorm.DB) ([]*Receipt, error)
	List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*Receipt, error)

	// MarkProcessedIfPending flips the receipt to PROCESSED only when it
	// is still PENDING, reporting whether the row was claimed. The status
	// predicate is the compare-and-swap that serializes concurrent
	// reconciliation attempts on one receipt.
	MarkProcessedIfPending(ctx context.Context, db *gorm.DB, id, buyerID snowflake.ID, processedAt time.Time) (bool, error)

	InsertApplication(ctx context.Context, db *gorm.DB, app *AnalysisApplication) error

	SetMetadata(ctx context.Context, db *gorm.DB, id snowflake.ID, metadata datatypes.JSONMap) error
}
