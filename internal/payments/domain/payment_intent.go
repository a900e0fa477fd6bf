// Package domain records the stakes owed by failed commitments.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
)

var (
	ErrCommitmentRequired    = errors.New("commitment id is required")
	ErrUserRequired          = errors.New("user id is required")
	ErrAmountNotPositive     = errors.New("amount must be greater than zero")
	ErrCurrencyRequired      = errors.New("currency is required")
	ErrPaymentIntentNotFound = errors.New("payment intent not found")
)

// Status of a payment intent. Only pending intents are created here; a
// payment provider moves them on.
type Status string

const (
	StatusPending Status = "pending"
)

// PaymentIntentLog is the stake to charge for a failed commitment. At most
// one exists per commitment.
type PaymentIntentLog struct {
	sharedDomain.BaseEntity
	commitmentID uuid.UUID
	userID       uuid.UUID
	amountMinor  int64
	currency     string
	status       Status
	attemptCount int
	lastError    string
}

// NewPaymentIntentLog creates a pending intent with no attempts.
func NewPaymentIntentLog(commitmentID, userID uuid.UUID, amountMinor int64, currency string, now time.Time) (*PaymentIntentLog, error) {
	if commitmentID == uuid.Nil {
		return nil, ErrCommitmentRequired
	}
	if userID == uuid.Nil {
		return nil, ErrUserRequired
	}
	if amountMinor <= 0 {
		return nil, ErrAmountNotPositive
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return nil, ErrCurrencyRequired
	}
	return &PaymentIntentLog{
		BaseEntity:   sharedDomain.NewBaseEntity(now),
		commitmentID: commitmentID,
		userID:       userID,
		amountMinor:  amountMinor,
		currency:     currency,
		status:       StatusPending,
	}, nil
}

// PaymentIntentSnapshot is the persisted state of an intent.
type PaymentIntentSnapshot struct {
	ID           uuid.UUID
	CommitmentID uuid.UUID
	UserID       uuid.UUID
	AmountMinor  int64
	Currency     string
	Status       Status
	AttemptCount int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RehydratePaymentIntentLog recreates an intent from persisted state.
func RehydratePaymentIntentLog(s PaymentIntentSnapshot) *PaymentIntentLog {
	return &PaymentIntentLog{
		BaseEntity:   sharedDomain.RehydrateBaseEntity(s.ID, s.CreatedAt, s.UpdatedAt),
		commitmentID: s.CommitmentID,
		userID:       s.UserID,
		amountMinor:  s.AmountMinor,
		currency:     s.Currency,
		status:       s.Status,
		attemptCount: s.AttemptCount,
		lastError:    s.LastError,
	}
}

func (p *PaymentIntentLog) CommitmentID() uuid.UUID { return p.commitmentID }
func (p *PaymentIntentLog) UserID() uuid.UUID       { return p.userID }
func (p *PaymentIntentLog) AmountMinor() int64      { return p.amountMinor }
func (p *PaymentIntentLog) Currency() string        { return p.currency }
func (p *PaymentIntentLog) Status() Status          { return p.status }
func (p *PaymentIntentLog) AttemptCount() int       { return p.attemptCount }
func (p *PaymentIntentLog) LastError() string       { return p.lastError }

// Repository persists payment intents.
type Repository interface {
	// Record stores the intent unless one exists for the same commitment,
	// reporting whether it was inserted.
	Record(ctx context.Context, p *PaymentIntentLog) (bool, error)

	// FindByCommitment returns ErrPaymentIntentNotFound when none exists.
	FindByCommitment(ctx context.Context, commitmentID uuid.UUID) (*PaymentIntentLog, error)

	// ListByStatus lists intents oldest first.
	ListByStatus(ctx context.Context, status Status, limit int) ([]*PaymentIntentLog, error)
}
