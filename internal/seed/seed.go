package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mocky70025/suiren/internal/auth/password"
	"github.com/mocky70025/suiren/internal/config"
	userdomain "github.com/mocky70025/suiren/internal/user/domain"
	"gorm.io/gorm"
)

const defaultAdminPassword = "admin"

// EnsureAdmin seeds the admin account for startup bootstrap. Safe to run
// on every start; the account is created only when missing.
func EnsureAdmin(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	adminPassword := cfg.SeedAdminPassword
	if adminPassword == "" {
		if cfg.IsProduction() {
			return errors.New("SEED_ADMIN_PASSWORD is required in production")
		}
		adminPassword = defaultAdminPassword
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user userdomain.User
		err := tx.WithContext(ctx).
			Where("name = ?", cfg.SeedAdminName).
			First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(adminPassword)
		if err != nil {
			return err
		}
		user = userdomain.User{
			ID:           node.Generate(),
			Name:         cfg.SeedAdminName,
			PasswordHash: hashed,
			IsAdmin:      true,
			CreatedAt:    time.Now().UTC(),
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}
