package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ManuelReschke/PetsSanta/app/models"
	"github.com/ManuelReschke/PetsSanta/app/repository"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAccountNotFound     = errors.New("ledger account not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// InsufficientCreditsError carries the numbers a client needs to explain a
// rejected debit.
type InsufficientCreditsError struct {
	Required int
	Current  int
}

func (e *InsufficientCreditsError) Error() string {
	return "insufficient credits: required " + strconv.Itoa(e.Required) + ", current " + strconv.Itoa(e.Current)
}

func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}

// Service reads and moves credit balances. Every mutation appends exactly one
// CreditUsage row in the same transaction as the balance change.
type Service struct {
	db *gorm.DB
}

// NewService creates a ledger service on top of a GORM handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Balance returns the current balance of a user.
func (s *Service) Balance(ctx context.Context, userID uint) (int, error) {
	credits, err := repository.NewUserRepository(s.db.WithContext(ctx)).GetCredits(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrAccountNotFound
	}
	return credits, err
}

// EnsureBalance fails with *InsufficientCreditsError when the user cannot
// afford amount. It does not reserve anything.
func (s *Service) EnsureBalance(ctx context.Context, userID uint, amount int) (int, error) {
	current, err := s.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	if current < amount {
		return current, &InsufficientCreditsError{Required: amount, Current: current}
	}
	return current, nil
}

// Credit adds amount to the balance in its own transaction.
func (s *Service) Credit(ctx context.Context, userID uint, amount int, description string) (int, error) {
	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = CreditTx(tx, userID, amount, description)
		return err
	})
	if err != nil {
		return 0, err
	}
	CountCredit(amount)
	return balance, nil
}

// CountDebit and CountCredit feed the credit counters. Callers of DebitTx and
// CreditTx call them once their transaction has committed.
func CountDebit(amount int) {
	metrics.Credits.WithLabelValues("debit").Add(float64(amount))
}

func CountCredit(amount int) {
	metrics.Credits.WithLabelValues("credit").Add(float64(amount))
}

// History returns the ledger entries of a user, newest first.
func (s *Service) History(ctx context.Context, userID uint) ([]models.CreditUsage, error) {
	return repository.NewCreditUsageRepository(s.db.WithContext(ctx)).ListByUser(userID)
}

// DebitTx subtracts amount inside the caller's transaction and records the
// entry. The balance never goes negative: the update only matches rows that
// still cover the amount.
func DebitTx(tx *gorm.DB, userID uint, amount int, description string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	repos := repository.NewRepositories(tx)

	ok, err := repos.User.DebitCredits(userID, amount)
	if err != nil {
		return 0, fmt.Errorf("debit credits: %w", err)
	}
	if !ok {
		current, err := repos.User.GetCredits(userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAccountNotFound
		}
		if err != nil {
			return 0, err
		}
		return 0, &InsufficientCreditsError{Required: amount, Current: current}
	}

	remaining, err := repos.User.GetCredits(userID)
	if err != nil {
		return 0, err
	}
	entry := &models.CreditUsage{
		UserID:           userID,
		CreditsUsed:      amount,
		RemainingCredits: remaining,
		Description:      description,
	}
	if err := repos.CreditUsage.Create(entry); err != nil {
		return 0, fmt.Errorf("record debit: %w", err)
	}

	log.Debugf("[Ledger] Debited %d credits from user %d (remaining %d)", amount, userID, remaining)
	return remaining, nil
}

// CreditTx adds amount inside the caller's transaction and records the entry.
func CreditTx(tx *gorm.DB, userID uint, amount int, description string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	repos := repository.NewRepositories(tx)

	if err := repos.User.AddCredits(userID, amount); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("add credits: %w", err)
	}

	balance, err := repos.User.GetCredits(userID)
	if err != nil {
		return 0, err
	}
	entry := &models.CreditUsage{
		UserID:           userID,
		CreditsAdded:     amount,
		RemainingCredits: balance,
		Description:      description,
	}
	if err := repos.CreditUsage.Create(entry); err != nil {
		return 0, fmt.Errorf("record credit: %w", err)
	}

	log.Debugf("[Ledger] Credited %d credits to user %d (balance %d)", amount, userID, balance)
	return balance, nil
}
