package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger validation errors
var (
	ErrEmptyTransactionID      = errors.New("transaction ID cannot be empty")
	ErrEmptyTransactionUserID  = errors.New("transaction user ID cannot be empty")
	ErrEmptyTransactionCourse  = errors.New("transaction course ID cannot be empty")
	ErrEmptyPaymentReference   = errors.New("payment reference cannot be empty")
	ErrInvalidTransactionState = errors.New("invalid transaction status")
	ErrInvalidCurrency         = errors.New("currency must be a three letter code")
)

// TransactionStatus is the settlement state of a ledger entry.
type TransactionStatus string

// Possible transaction status values. Confirmed enrollments are always recorded as paid.
const (
	TransactionPending TransactionStatus = "pending"
	TransactionPaid    TransactionStatus = "paid"
	TransactionFailed  TransactionStatus = "failed"
)

// Transaction is an immutable ledger entry recording a payment for a course.
// PaymentReference is unique across the ledger.
type Transaction struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"user_id"`
	CourseID         uuid.UUID         `json:"course_id"`
	PaymentReference string            `json:"payment_reference"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	Status           TransactionStatus `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
}

// NewPaidTransaction creates a paid ledger entry. amountMinor is in the
// currency's minor units as reported by the gateway.
func NewPaidTransaction(userID, courseID uuid.UUID, reference string, amountMinor int64, currency string, at time.Time) (*Transaction, error) {
	t := &Transaction{
		ID:               uuid.New(),
		UserID:           userID,
		CourseID:         courseID,
		PaymentReference: strings.TrimSpace(reference),
		Amount:           MinorToMajor(amountMinor),
		Currency:         strings.ToLower(currency),
		Status:           TransactionPaid,
		CreatedAt:        at.UTC(),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks if the Transaction has valid data.
func (t *Transaction) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTransactionID
	}
	if t.UserID == uuid.Nil {
		return ErrEmptyTransactionUserID
	}
	if t.CourseID == uuid.Nil {
		return ErrEmptyTransactionCourse
	}
	if t.PaymentReference == "" {
		return ErrEmptyPaymentReference
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if len(t.Currency) != 3 {
		return ErrInvalidCurrency
	}
	switch t.Status {
	case TransactionPending, TransactionPaid, TransactionFailed:
	default:
		return ErrInvalidTransactionState
	}
	return nil
}
