// Package sales aggregates paid ledger entries into calendar buckets.
package sales

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

const (
	dayLabel = "2006-01-02"
	pageSize = 500
)

// Aggregator builds sales reports. Calendar days and months are those of
// the configured location.
type Aggregator struct {
	uow    store.UnitOfWork
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock replaces the clock that decides the current day.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an Aggregator. A nil location means UTC.
func NewAggregator(uow store.UnitOfWork, loc *time.Location, logger *slog.Logger, opts ...Option) *Aggregator {
	if uow == nil {
		panic("unit of work cannot be nil")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		uow:    uow,
		loc:    loc,
		now:    time.Now,
		logger: logger.With(slog.String("component", "sales_aggregator")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate sums the owner's paid ledger entries over the period. The
// buckets are chronological and zero-filled:
//
//   - weekly: the last 7 days ending today
//   - monthly: every day of the current month
//   - yearly: January to December of the current year
//
// Only entries between the start of the first bucket and now are counted.
func (a *Aggregator) Aggregate(ctx context.Context, ownerID uuid.UUID, scope domain.SalesScope, period domain.Period) (*domain.SalesReport, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)

	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner_id", "cannot be empty", domain.ErrInvalidID)
	}
	now := a.now().In(a.loc)
	buckets, err := a.buckets(now, period)
	if err != nil {
		return nil, err
	}

	repos := a.uow.Repositories()
	if _, err := repos.Users.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}

	filter := store.TransactionFilter{
		Status: domain.TransactionPaid,
		From:   buckets[0].Start,
		To:     buckets[len(buckets)-1].End,
	}
	switch scope {
	case domain.ScopeInstructor:
		if filter.CourseIDs, err = repos.Courses.ListIDsByInstructor(ctx, ownerID); err != nil {
			return nil, fmt.Errorf("failed to list owned courses: %w", err)
		}
	case domain.ScopeUser:
		filter.UserID = ownerID
	default:
		return nil, domain.NewValidationError("scope", fmt.Sprintf("unsupported scope %q", scope), domain.ErrInvalidFormat)
	}

	entries, err := findAll(ctx, repos.Ledger, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}

	report := &domain.SalesReport{
		OwnerID:     ownerID,
		Scope:       scope,
		Period:      period,
		From:        buckets[0].Start,
		To:          now,
		Buckets:     buckets,
		TotalAmount: decimal.Zero,
	}
	for _, e := range entries {
		at := e.CreatedAt.In(a.loc)
		if at.After(now) {
			continue
		}
		i := bucketIndex(buckets, at)
		if i < 0 {
			continue
		}
		report.Buckets[i].Amount = report.Buckets[i].Amount.Add(e.Amount)
		report.Buckets[i].Count++
		report.TotalAmount = report.TotalAmount.Add(e.Amount)
		report.TotalCount++
	}

	log.Debug("sales aggregated",
		slog.String("owner_id", ownerID.String()),
		slog.String("scope", string(scope)),
		slog.String("period", string(period)),
		slog.Int("entries", len(entries)),
		slog.Int("counted", report.TotalCount))
	return report, nil
}

// findAll pages through every entry matching filter.
func findAll(ctx context.Context, ledger store.LedgerStore, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	var all []*domain.Transaction
	filter.Limit = pageSize
	for filter.Offset = 0; ; filter.Offset += pageSize {
		batch, err := ledger.Find(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			return all, nil
		}
	}
}

func (a *Aggregator) buckets(now time.Time, period domain.Period) ([]domain.SalesBucket, error) {
	y, m, d := now.Date()
	var out []domain.SalesBucket

	switch period {
	case domain.PeriodWeekly:
		today := time.Date(y, m, d, 0, 0, 0, 0, a.loc)
		for i := 6; i >= 0; i-- {
			out = append(out, dayBucket(today.AddDate(0, 0, -i)))
		}
	case domain.PeriodMonthly:
		first := time.Date(y, m, 1, 0, 0, 0, 0, a.loc)
		days := first.AddDate(0, 1, -1).Day()
		for i := 0; i < days; i++ {
			out = append(out, dayBucket(first.AddDate(0, 0, i)))
		}
	case domain.PeriodYearly:
		for month := time.January; month <= time.December; month++ {
			start := time.Date(y, month, 1, 0, 0, 0, 0, a.loc)
			out = append(out, domain.SalesBucket{
				Label:  month.String(),
				Start:  start,
				End:    start.AddDate(0, 1, 0),
				Amount: decimal.Zero,
			})
		}
	default:
		return nil, domain.NewValidationError("period", fmt.Sprintf("unsupported period %q", period), domain.ErrInvalidFormat)
	}
	return out, nil
}

func dayBucket(start time.Time) domain.SalesBucket {
	return domain.SalesBucket{
		Label:  start.Format(dayLabel),
		Start:  start,
		End:    start.AddDate(0, 0, 1),
		Amount: decimal.Zero,
	}
}

// bucketIndex returns the bucket containing t, or -1.
func bucketIndex(buckets []domain.SalesBucket, t time.Time) int {
	for i, b := range buckets {
		if !t.Before(b.Start) && t.Before(b.End) {
			return i
		}
	}
	return -1
}
