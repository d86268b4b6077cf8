package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/mocky70025/suiren/internal/clock"
	"github.com/mocky70025/suiren/internal/user/domain"
	"github.com/mocky70025/suiren/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) domain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestRegister_Validation(t *testing.T) {
	svc := newService(t)

	_, err := svc.Register(context.Background(), domain.RegisterRequest{Name: "  ", Password: "secret"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Register(context.Background(), domain.RegisterRequest{Name: "alice", Password: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)
}

func TestRegister_DuplicateName(t *testing.T) {
	svc := newService(t)

	_, err := svc.Register(context.Background(), domain.RegisterRequest{Name: "alice", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), domain.RegisterRequest{Name: "alice", Password: "other"})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)
}

func TestAuthenticate(t *testing.T) {
	svc := newService(t)

	registered, err := svc.Register(context.Background(), domain.RegisterRequest{Name: "bob", Password: "hunter2"})
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), domain.AuthenticateRequest{Name: "bob", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Authenticate(context.Background(), domain.AuthenticateRequest{Name: "bob", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), domain.AuthenticateRequest{Name: "nobody", Password: "hunter2"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLinkPayPayID(t *testing.T) {
	svc := newService(t)

	registered, err := svc.Register(context.Background(), domain.RegisterRequest{Name: "carol", Password: "secret"})
	require.NoError(t, err)

	require.NoError(t, svc.LinkPayPayID(context.Background(), domain.LinkPayPayIDRequest{
		UserID:   registered.ID,
		PayPayID: "carol-pay",
	}))

	user, err := svc.GetByID(context.Background(), registered.ID)
	require.NoError(t, err)
	require.NotNil(t, user.PayPayID)
	assert.Equal(t, "carol-pay", *user.PayPayID)
}

func TestFindOrCreateByLINEUserID(t *testing.T) {
	svc := newService(t)

	first, err := svc.FindOrCreateByLINEUserID(context.Background(), "U1234")
	require.NoError(t, err)
	require.NotNil(t, first.LINEUserID)
	assert.Equal(t, "U1234", *first.LINEUserID)

	second, err := svc.FindOrCreateByLINEUserID(context.Background(), "U1234")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "repeat contact must return the same account")
}
