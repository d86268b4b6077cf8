package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/mocky70025/suiren/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, name, password_hash, paypay_id, line_user_id, is_admin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.PasswordHash,
		user.PayPayID,
		user.LINEUserID,
		user.IsAdmin,
		user.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("name = ?", name).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByLINEUserID(ctx context.Context, db *gorm.DB, lineUserID string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("line_user_id = ?", lineUserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.User, error) {
	var users []*domain.User
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Order("name asc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) UpdatePayPayID(ctx context.Context, db *gorm.DB, id snowflake.ID, paypayID string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET paypay_id = ? WHERE id = ?`, paypayID, id,
	).Error
}

func (r *repo) UpdateLINEUserID(ctx context.Context, db *gorm.DB, id snowflake.ID, lineUserID string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET line_user_id = ? WHERE id = ?`, lineUserID, id,
	).Error
}
