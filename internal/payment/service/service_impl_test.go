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
	"github.com/mocky70025/suiren/internal/payment/domain"
	"github.com/mocky70025/suiren/internal/payment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (domain.Service, *clock.FakeClock, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Payment{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, clk, node
}

func TestRecord_Validation(t *testing.T) {
	svc, _, node := newService(t)

	_, err := svc.Record(context.Background(), domain.RecordPaymentRequest{
		BuyerID: 0,
		Amount:  100,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidBuyer)

	for _, amount := range []int64{0, -1} {
		_, err := svc.Record(context.Background(), domain.RecordPaymentRequest{
			BuyerID: node.Generate(),
			Amount:  amount,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
}

func TestRecord_AppendsToLedger(t *testing.T) {
	svc, clk, node := newService(t)
	buyer := node.Generate()
	seller := node.Generate()

	first, err := svc.Record(context.Background(), domain.RecordPaymentRequest{
		BuyerID:  buyer,
		Amount:   120,
		SellerID: &seller,
	})
	require.NoError(t, err)
	clk.Advance(time.Minute)

	second, err := svc.Record(context.Background(), domain.RecordPaymentRequest{
		BuyerID: buyer,
		Amount:  80,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Nil(t, second.SellerID)

	earnings, err := svc.EarningsBySeller(context.Background(), seller)
	require.NoError(t, err)
	assert.Equal(t, int64(120), earnings.TotalAmount)
	assert.Equal(t, int64(1), earnings.TransactionCount)

	transactions, err := svc.TransactionsBySeller(context.Background(), seller, 0)
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, first.ID, transactions[0].ID)
}

func TestEarnings_EmptySeller(t *testing.T) {
	svc, _, node := newService(t)

	earnings, err := svc.EarningsBySeller(context.Background(), node.Generate())
	require.NoError(t, err)
	assert.Zero(t, earnings.TotalAmount)
	assert.Zero(t, earnings.TransactionCount)
}

func TestList_CursorPagination(t *testing.T) {
	svc, clk, node := newService(t)
	buyer := node.Generate()

	for i := 0; i < 5; i++ {
		_, err := svc.Record(context.Background(), domain.RecordPaymentRequest{
			BuyerID: buyer,
			Amount:  int64(10 * (i + 1)),
		})
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}

	first, err := svc.List(context.Background(), domain.ListPaymentRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Payments, 2)
	assert.True(t, first.HasMore)
	assert.NotEmpty(t, first.NextPageToken)
	// Newest first.
	assert.Equal(t, int64(50), first.Payments[0].Amount)
	assert.Equal(t, int64(40), first.Payments[1].Amount)

	second, err := svc.List(context.Background(), domain.ListPaymentRequest{
		PageSize:  2,
		PageToken: first.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, second.Payments, 2)
	assert.Equal(t, int64(30), second.Payments[0].Amount)
	assert.Equal(t, int64(20), second.Payments[1].Amount)
	assert.True(t, second.HasMore)

	third, err := svc.List(context.Background(), domain.ListPaymentRequest{
		PageSize:  2,
		PageToken: second.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, third.Payments, 1)
	assert.Equal(t, int64(10), third.Payments[0].Amount)
	assert.False(t, third.HasMore)
}
