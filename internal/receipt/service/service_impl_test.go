package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/mocky70025/suiren/internal/clock"
	paymentdomain "github.com/mocky70025/suiren/internal/payment/domain"
	paymentrepo "github.com/mocky70025/suiren/internal/payment/repository"
	"github.com/mocky70025/suiren/internal/receipt/domain"
	"github.com/mocky70025/suiren/internal/receipt/repository"
	userdomain "github.com/mocky70025/suiren/internal/user/domain"
	userrepo "github.com/mocky70025/suiren/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	node     *snowflake.Node
	clk      *clock.FakeClock
	svc      domain.Service
	payRepo  paymentdomain.Repository
	userRepo userdomain.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(10000)",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps concurrent transactions serialized the way a
	// real server serializes on the row lock, without sqlite busy errors.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&userdomain.User{},
		&paymentdomain.Payment{},
		&domain.Receipt{},
		&domain.AnalysisApplication{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	payRepo := paymentrepo.Provide()
	usrRepo := userrepo.Provide()

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Repo:        repository.Provide(),
		PaymentRepo: payRepo,
		UserRepo:    usrRepo,
	})

	return &testEnv{
		db:       db,
		node:     node,
		clk:      clk,
		svc:      svc,
		payRepo:  payRepo,
		userRepo: usrRepo,
	}
}

func (e *testEnv) createUser(t *testing.T, name string) userdomain.User {
	t.Helper()
	user := userdomain.User{
		ID:           e.node.Generate(),
		Name:         name,
		PasswordHash: "x",
		CreatedAt:    e.clk.Now(),
	}
	require.NoError(t, e.userRepo.Insert(context.Background(), e.db, &user))
	return user
}

func (e *testEnv) balance(t *testing.T, buyerID snowflake.ID) paymentdomain.Balance {
	t.Helper()
	balance, err := e.payRepo.BalanceByBuyer(context.Background(), e.db, buyerID)
	require.NoError(t, err)
	return balance
}

func TestSubmit_InvalidAmount(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")

	for _, amount := range []int64{0, -5} {
		_, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
			SellerID: seller.ID,
			Amount:   amount,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}

	var count int64
	require.NoError(t, env.db.Model(&domain.Receipt{}).Count(&count).Error)
	assert.Zero(t, count, "a rejected submission must not create a receipt")
}

func TestSubmit_PendingWithoutBuyer(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")

	resp, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		SellerID: seller.ID,
		Amount:   500,
		Memo:     "cash on delivery",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, resp.Receipt.Status)
	assert.Nil(t, resp.Receipt.BuyerID)
	assert.Nil(t, resp.Receipt.ProcessedAt)
	assert.Nil(t, resp.Payment)
}

func TestSubmit_AutoMatch(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "alice")

	resp, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		SellerID:  seller.ID,
		Amount:    300,
		BuyerName: "alice",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessed, resp.Receipt.Status)
	require.NotNil(t, resp.Receipt.BuyerID)
	assert.Equal(t, buyer.ID, *resp.Receipt.BuyerID)
	assert.NotNil(t, resp.Receipt.ProcessedAt)
	require.NotNil(t, resp.Payment)
	assert.Equal(t, int64(300), resp.Payment.Amount)
	assert.Equal(t, buyer.ID, resp.Payment.BuyerID)
	require.NotNil(t, resp.Payment.SellerID)
	assert.Equal(t, seller.ID, *resp.Payment.SellerID)

	balance := env.balance(t, buyer.ID)
	assert.Equal(t, int64(300), balance.TotalPoints)
	assert.Equal(t, int64(1), balance.PaymentCount)
}

func TestSubmit_UnknownBuyerName(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")

	_, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		SellerID:  seller.ID,
		Amount:    300,
		BuyerName: "nobody",
	})
	assert.ErrorIs(t, err, domain.ErrBuyerNotFound)

	var count int64
	require.NoError(t, env.db.Model(&domain.Receipt{}).Count(&count).Error)
	assert.Zero(t, count, "an unknown buyer name must abort before any insert")
}

func TestProcess_CreditsExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "bob")

	resp, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		SellerID: seller.ID,
		Amount:   1200,
	})
	require.NoError(t, err)

	payment, err := env.svc.Process(context.Background(), resp.Receipt.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), payment.Amount)

	_, err = env.svc.Process(context.Background(), resp.Receipt.ID, buyer.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	balance := env.balance(t, buyer.ID)
	assert.Equal(t, int64(1200), balance.TotalPoints)
	assert.Equal(t, int64(1), balance.PaymentCount)
}

func TestProcess_NotFound(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.createUser(t, "bob")

	_, err := env.svc.Process(context.Background(), env.node.Generate(), buyer.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcess_UnknownBuyer(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")

	resp, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		SellerID: seller.ID,
		Amount:   100,
	})
	require.NoError(t, err)

	_, err = env.svc.Process(context.Background(), resp.Receipt.ID, env.node.Generate())
	assert.ErrorIs(t, err, domain.ErrBuyerNotFound)
}

func TestProcess_ConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "carol")

	resp, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		SellerID: seller.ID,
		Amount:   700,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Process(context.Background(), resp.Receipt.ID, buyer.ID)
		}(i)
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		if err == nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one of two racing calls may claim the receipt")

	balance := env.balance(t, buyer.ID)
	assert.Equal(t, int64(700), balance.TotalPoints)
	assert.Equal(t, int64(1), balance.PaymentCount)
}

func TestMatchCandidates(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "dave")

	first, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		SellerID: seller.ID,
		Amount:   400,
	})
	require.NoError(t, err)

	matched, err := env.svc.MatchCandidates(context.Background(), []domain.CandidateTransaction{
		{Amount: 400, SenderName: "dave", Date: "2025-06-01"},
		{Amount: 999, SenderName: "ghost"},
	})
	require.NoError(t, err)
	require.Len(t, matched, 2)

	require.NotNil(t, matched[0].MatchedUserID)
	assert.Equal(t, buyer.ID, *matched[0].MatchedUserID)
	require.NotNil(t, matched[0].ReceiptID)
	assert.Equal(t, first.Receipt.ID, *matched[0].ReceiptID)

	assert.Nil(t, matched[1].MatchedUserID)
	assert.Nil(t, matched[1].ReceiptID)
}

func TestMatchCandidates_PendingReceiptUsedOnce(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	env.createUser(t, "erin")

	resp, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		SellerID: seller.ID,
		Amount:   250,
	})
	require.NoError(t, err)

	matched, err := env.svc.MatchCandidates(context.Background(), []domain.CandidateTransaction{
		{Amount: 250, SenderName: "erin", Date: "a"},
		{Amount: 250, SenderName: "erin", Date: "b"},
	})
	require.NoError(t, err)
	require.Len(t, matched, 2)

	require.NotNil(t, matched[0].ReceiptID)
	assert.Equal(t, resp.Receipt.ID, *matched[0].ReceiptID)
	assert.Nil(t, matched[1].ReceiptID, "one pending receipt matches at most one candidate")
}

func TestApplyCandidates_PartialFailure(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "frank")

	resp, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		SellerID: seller.ID,
		Amount:   800,
	})
	require.NoError(t, err)

	buyerID := buyer.ID
	receiptID := resp.Receipt.ID

	result, err := env.svc.ApplyCandidates(context.Background(), []domain.MatchedCandidate{
		{
			CandidateTransaction: domain.CandidateTransaction{Amount: 800, SenderName: "frank", Date: "2025-06-01"},
			MatchedUserID:        &buyerID,
			ReceiptID:            &receiptID,
		},
		{
			CandidateTransaction: domain.CandidateTransaction{Amount: 100, SenderName: "ghost"},
		},
		{
			CandidateTransaction: domain.CandidateTransaction{Amount: 999, SenderName: "frank", Date: "2025-06-02"},
			MatchedUserID:        &buyerID,
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Succeeded, 1)
	assert.Equal(t, receiptID, result.Succeeded[0].ReceiptID)
	assert.Equal(t, buyerID, result.Succeeded[0].BuyerID)
	assert.Equal(t, int64(800), result.Succeeded[0].Amount)

	require.Len(t, result.Failed, 2)
	assert.Equal(t, domain.FailReasonNoMatch, result.Failed[0].Reason)
	assert.Equal(t, domain.FailReasonNoPendingReceipt, result.Failed[1].Reason)

	balance := env.balance(t, buyerID)
	assert.Equal(t, int64(800), balance.TotalPoints, "failed items must not credit points")
	assert.Equal(t, int64(1), balance.PaymentCount)
}

func TestApplyCandidates_AlreadyProcessedReceipt(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "grace")

	resp, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		SellerID: seller.ID,
		Amount:   600,
	})
	require.NoError(t, err)

	_, err = env.svc.Process(context.Background(), resp.Receipt.ID, buyer.ID)
	require.NoError(t, err)

	buyerID := buyer.ID
	receiptID := resp.Receipt.ID
	result, err := env.svc.ApplyCandidates(context.Background(), []domain.MatchedCandidate{
		{
			CandidateTransaction: domain.CandidateTransaction{Amount: 600, SenderName: "grace"},
			MatchedUserID:        &buyerID,
			ReceiptID:            &receiptID,
		},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, domain.FailReasonAlreadyProcessed, result.Failed[0].Reason)

	balance := env.balance(t, buyerID)
	assert.Equal(t, int64(600), balance.TotalPoints)
}

func TestApplyCandidates_DuplicateAcrossBatches(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "heidi")

	first, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		SellerID: seller.ID,
		Amount:   350,
	})
	require.NoError(t, err)
	second, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		SellerID: seller.ID,
		Amount:   350,
	})
	require.NoError(t, err)

	buyerID := buyer.ID
	candidate := domain.CandidateTransaction{Amount: 350, SenderName: "heidi", Date: "2025-06-01"}

	firstID := first.Receipt.ID
	result, err := env.svc.ApplyCandidates(context.Background(), []domain.MatchedCandidate{
		{CandidateTransaction: candidate, MatchedUserID: &buyerID, ReceiptID: &firstID},
	})
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)

	// Re-analyzing the same screenshot matches the other pending receipt,
	// but the fingerprint guard refuses the second credit.
	secondID := second.Receipt.ID
	result, err = env.svc.ApplyCandidates(context.Background(), []domain.MatchedCandidate{
		{CandidateTransaction: candidate, MatchedUserID: &buyerID, ReceiptID: &secondID},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, domain.FailReasonDuplicateCandidate, result.Failed[0].Reason)

	balance := env.balance(t, buyerID)
	assert.Equal(t, int64(350), balance.TotalPoints, "the duplicate credit must roll back entirely")
	assert.Equal(t, int64(1), balance.PaymentCount)

	// The refused receipt stays claimable through the manual path.
	receipt, err := env.svc.GetByID(context.Background(), secondID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, receipt.Status)
}

func TestBalanceEqualsLedgerSum(t *testing.T) {
	env := newTestEnv(t)
	seller := env.createUser(t, "seller")
	buyer := env.createUser(t, "ivan")

	amounts := []int64{100, 250, 40}
	for _, amount := range amounts {
		resp, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
			SellerID:  seller.ID,
			Amount:    amount,
			BuyerName: "ivan",
		})
		require.NoError(t, err)
		require.NotNil(t, resp.Payment)
		env.clk.Advance(time.Minute)
	}

	balance := env.balance(t, buyer.ID)
	assert.Equal(t, int64(390), balance.TotalPoints)
	assert.Equal(t, int64(3), balance.PaymentCount)

	var sum int64
	require.NoError(t, env.db.Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE buyer_id = ?`, buyer.ID,
	).Scan(&sum).Error)
	assert.Equal(t, sum, balance.TotalPoints)
}
