package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SubSh2004/CampusZon-sub000/internal/model"
)

func debitInTx(ctx context.Context, db *gorm.DB, userID string, amount model.Tokens) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := NewLedgerRepository(tx).Debit(ctx, userID, amount, model.ReasonUnlock, "item")
		return err
	})
}

func TestLedger_DebitAndCredit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "a@iitb.ac.in", model.WholeTokens(2))
	repo := NewLedgerRepository(db)

	bal, err := repo.Debit(ctx, u.ID, model.OneToken, model.ReasonUnlock, "item-1")
	require.NoError(t, err)
	assert.Equal(t, model.WholeTokens(1), bal)

	bal, err = repo.Credit(ctx, u.ID, model.HalfToken, model.ReasonBookingRejected, "b-1")
	require.NoError(t, err)
	assert.Equal(t, model.Tokens(3), bal)
	assert.Equal(t, 1.5, bal.Float())

	entries, err := repo.ListEntries(ctx, u.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ReasonBookingRejected, entries[0].Reason)
	assert.Equal(t, model.HalfToken, entries[0].Delta)
	assert.Equal(t, -model.OneToken, entries[1].Delta)

	ok, err := repo.HasEntry(ctx, u.ID, model.ReasonUnlock, "item-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_DebitInsufficientLeavesBalance(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "a@iitb.ac.in", model.HalfToken)
	repo := NewLedgerRepository(db)

	_, err := repo.Debit(ctx, u.ID, model.OneToken, model.ReasonUnlock, "item-1")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	bal, err := repo.Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HalfToken, bal)

	entries, err := repo.ListEntries(ctx, u.ID, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLedger_UnknownUser(t *testing.T) {
	db := openTestDB(t)
	repo := NewLedgerRepository(db)

	_, err := repo.Debit(context.Background(), "missing", model.OneToken, model.ReasonUnlock, "x")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, err = repo.Credit(context.Background(), "missing", model.OneToken, model.ReasonPurchase, "x")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestLedger_RejectsNonPositiveAmounts(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db, "a@iitb.ac.in", model.WholeTokens(1))
	repo := NewLedgerRepository(db)

	_, err := repo.Debit(context.Background(), u.ID, 0, model.ReasonUnlock, "x")
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
	_, err = repo.Credit(context.Background(), u.ID, -model.OneToken, model.ReasonPurchase, "x")
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
}

func TestLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	checkConcurrentDebitsNeverOverdraw(t, openTestDB(t))
}

func checkConcurrentDebitsNeverOverdraw(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	u := seedUser(t, db, "a@iitb.ac.in", model.WholeTokens(5))

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := debitInTx(ctx, db, u.ID, model.OneToken)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientBalance)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	bal, err := NewLedgerRepository(db).Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Tokens(0), bal)
}

func TestLedger_ConcurrentMixedMatchesSequentialSum(t *testing.T) {
	checkConcurrentMixedMatchesSequentialSum(t, openTestDB(t))
}

func checkConcurrentMixedMatchesSequentialSum(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	u := seedUser(t, db, "a@iitb.ac.in", model.WholeTokens(10))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, debitInTx(ctx, db, u.ID, model.OneToken))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, db.Transaction(func(tx *gorm.DB) error {
				_, err := NewLedgerRepository(tx).Credit(ctx, u.ID, model.HalfToken, model.ReasonBookingRejected, "b")
				return err
			}))
		}()
	}
	wg.Wait()

	bal, err := NewLedgerRepository(db).Balance(ctx, u.ID)
	require.NoError(t, err)
	// 10 - 10*1 + 10*0.5
	assert.Equal(t, model.WholeTokens(5), bal)
}

func TestLedger_CheckConstraintRejectsNegativeBalance(t *testing.T) {
	db := openTestDB(t)
	u := seedUser(t, db, "a@iitb.ac.in", model.HalfToken)

	err := db.Model(&model.User{}).Where("id = ?", u.ID).
		UpdateColumn("token_halves", gorm.Expr("token_halves - ?", 5)).Error
	assert.Error(t, err)
}

func BenchmarkLedgerDebit(b *testing.B) {
	db := openTestDB(b)
	ctx := context.Background()
	u := seedUser(b, db, "bench@iitb.ac.in", model.WholeTokens(b.N+1))
	repo := NewLedgerRepository(db)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = repo.Debit(ctx, u.ID, model.OneToken, model.ReasonUnlock, "bench")
	}
}
