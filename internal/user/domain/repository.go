package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*User, error)
	FindByLINEUserID(ctx context.Context, db *gorm.DB, lineUserID string) (*User, error)
	List(ctx context.Context, db *gorm.DB) ([]*User, error)
	UpdatePayPayID(ctx context.Context, db *gorm.DB, id snowflake.ID, paypayID string) error
	UpdateLINEUserID(ctx context.Context, db *gorm.DB, id snowflake.ID, lineUserID string) error
}
