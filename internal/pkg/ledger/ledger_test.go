package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ManuelReschke/PetsSanta/app/models"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/dbtest"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func debit(db *gorm.DB, userID uint, amount int, description string) (int, error) {
	var remaining int
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		remaining, err = DebitTx(tx, userID, amount, description)
		return err
	})
	return remaining, err
}

func TestDebit_RecordsEntryAndReducesBalance(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.CreateUser(t, db, "debit@example.com", 100)
	svc := NewService(db)

	remaining, err := debit(db, user.ID, 20, "Image generation: santa-suit")
	require.NoError(t, err)
	assert.Equal(t, 80, remaining)

	balance, err := svc.Balance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, balance)

	history, err := svc.History(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 20, history[0].CreditsUsed)
	assert.Equal(t, 0, history[0].CreditsAdded)
	assert.Equal(t, 80, history[0].RemainingCredits)
	assert.Equal(t, "Image generation: santa-suit", history[0].Description)
}

func TestDebit_InsufficientCredits(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.CreateUser(t, db, "poor@example.com", 10)
	svc := NewService(db)

	_, err := debit(db, user.ID, 20, "Image generation: elf-costume")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientCredits))

	var insufficient *InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 20, insufficient.Required)
	assert.Equal(t, 10, insufficient.Current)

	balance, err := svc.Balance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, balance)

	var count int64
	require.NoError(t, db.Model(&models.CreditUsage{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestDebit_UnknownAccount(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)

	_, err := debit(db, 999, 20, "Image generation: gift-box")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = svc.Balance(context.Background(), 999)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestDebit_RejectsNonPositiveAmount(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.CreateUser(t, db, "zero@example.com", 100)
	svc := NewService(db)

	_, err := debit(db, user.ID, 0, "nothing")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Credit(context.Background(), user.ID, -5, "nothing")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCredit_AddsAndRecords(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.CreateUser(t, db, "buyer@example.com", 15)
	svc := NewService(db)

	balance, err := svc.Credit(context.Background(), user.ID, 200, "Purchase: 200 credits")
	require.NoError(t, err)
	assert.Equal(t, 215, balance)

	history, err := svc.History(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 200, history[0].CreditsAdded)
	assert.Equal(t, 0, history[0].CreditsUsed)
	assert.Equal(t, 215, history[0].RemainingCredits)
}

func TestDebitTx_RollsBackWithCallerTransaction(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.CreateUser(t, db, "rollback@example.com", 50)
	boom := errors.New("boom")

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := DebitTx(tx, user.ID, 20, "Image generation: cozy-sweater"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	balance, err := NewService(db).Balance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, balance)

	var count int64
	require.NoError(t, db.Model(&models.CreditUsage{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestDebit_ConcurrentNeverOverdraws(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.CreateUser(t, db, "race@example.com", 30)
	svc := NewService(db)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := debit(db, user.ID, 20, "Image generation: santa-suit")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if errors.Is(err, ErrInsufficientCredits) {
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	balance, err := svc.Balance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, balance)
}

func TestEnsureBalance(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.CreateUser(t, db, "check@example.com", 19)
	svc := NewService(db)

	_, err := svc.EnsureBalance(context.Background(), user.ID, 20)
	var insufficient *InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 19, insufficient.Current)

	current, err := svc.EnsureBalance(context.Background(), user.ID, 19)
	require.NoError(t, err)
	assert.Equal(t, 19, current)
}

func TestCounters_IgnoreRolledBackTransactions(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.CreateUser(t, db, "counters@example.com", 50)
	debits := metrics.Credits.WithLabelValues("debit")
	credits := metrics.Credits.WithLabelValues("credit")
	debitsBefore := testutil.ToFloat64(debits)
	creditsBefore := testutil.ToFloat64(credits)
	boom := errors.New("boom")

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := DebitTx(tx, user.ID, 20, "Image generation: santa-suit"); err != nil {
			return err
		}
		if _, err := CreditTx(tx, user.ID, 200, "Purchase: 200 credits"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, debitsBefore, testutil.ToFloat64(debits))
	assert.Equal(t, creditsBefore, testutil.ToFloat64(credits))

	_, err = NewService(db).Credit(context.Background(), user.ID, 200, "Signup bonus")
	require.NoError(t, err)
	assert.Equal(t, creditsBefore+200, testutil.ToFloat64(credits))
}
