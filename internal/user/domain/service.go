package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type RegisterRequest struct {
	Name     string
	Password string
}

type AuthenticateRequest struct {
	Name     string
	Password string
}

type LinkPayPayIDRequest struct {
	UserID   snowflake.ID
	PayPayID string
}

type Service interface {
	Register(context.Context, RegisterRequest) (User, error)
	Authenticate(context.Context, AuthenticateRequest) (User, error)
	GetByID(context.Context, snowflake.ID) (User, error)
	FindByName(context.Context, string) (User, error)
	List(context.Context) ([]User, error)
	LinkPayPayID(context.Context, LinkPayPayIDRequest) error
	FindOrCreateByLINEUserID(context.Context, string) (User, error)
}

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrDuplicateName      = errors.New("duplicate_name")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrNotFound           = errors.New("user_not_found")
)
