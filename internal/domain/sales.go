package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Period is the window over which sales are aggregated.
type Period string

// Supported periods. Monthly is the default.
const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod converts a query value into a Period. An empty value selects monthly.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return PeriodMonthly, nil
	case PeriodWeekly:
		return PeriodWeekly, nil
	case PeriodMonthly:
		return PeriodMonthly, nil
	case PeriodYearly:
		return PeriodYearly, nil
	default:
		return "", NewValidationError("period", fmt.Sprintf("unsupported period %q", s), ErrInvalidFormat)
	}
}

// SalesScope selects whose ledger entries are aggregated.
type SalesScope string

// Supported scopes.
const (
	// ScopeInstructor aggregates entries for courses the owner teaches.
	ScopeInstructor SalesScope = "instructor"
	// ScopeUser aggregates entries the owner paid for.
	ScopeUser SalesScope = "user"
)

// ParseSalesScope converts a query value into a SalesScope. An empty value selects instructor.
func ParseSalesScope(s string) (SalesScope, error) {
	switch SalesScope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeInstructor:
		return ScopeInstructor, nil
	case ScopeUser:
		return ScopeUser, nil
	default:
		return "", NewValidationError("scope", fmt.Sprintf("unsupported scope %q", s), ErrInvalidFormat)
	}
}

// SalesBucket is one labelled slice of a sales report covering [Start, End).
type SalesBucket struct {
	Label  string          `json:"label"`
	Start  time.Time       `json:"start"`
	End    time.Time       `json:"end"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// SalesReport is a zero-filled, chronologically ordered sequence of buckets.
type SalesReport struct {
	OwnerID     uuid.UUID       `json:"owner_id"`
	Scope       SalesScope      `json:"scope"`
	Period      Period          `json:"period"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Buckets     []SalesBucket   `json:"buckets"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalCount  int             `json:"total_count"`
}
