package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is an account that can earn points as a buyer and collect
// payments as a seller. Identity fields are immutable after creation;
// only the linked external handles may change.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"not null;uniqueIndex" json:"name"`
	PasswordHash string       `gorm:"not null" json:"-"`
	PayPayID     *string      `gorm:"column:paypay_id" json:"paypay_id,omitempty"`
	LINEUserID   *string      `gorm:"column:line_user_id;index" json:"line_user_id,omitempty"`
	IsAdmin      bool         `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (User) TableName() string { return "users" }
