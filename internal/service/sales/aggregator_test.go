package sales

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/memory"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

type fixture struct {
	uow        *memory.UnitOfWork
	instructor *domain.User
	student    *domain.User
	course     *domain.Course
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	uow := memory.NewUnitOfWork(slog.New(slog.NewTextHandler(io.Discard, nil)))
	f := &fixture{uow: uow}
	f.instructor = f.user(t, "teacher@example.com")
	f.student = f.user(t, "student@example.com")
	f.course = f.courseOf(t, f.instructor.ID)
	return f
}

func (f *fixture) user(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser("Someone", email, "password123")
	require.NoError(t, err)
	u.Password, u.HashedPassword = "", "hash"
	require.NoError(t, f.uow.Repositories().Users.Create(context.Background(), u))
	return u
}

func (f *fixture) courseOf(t *testing.T, instructorID uuid.UUID) *domain.Course {
	t.Helper()
	c, err := domain.NewCourse(instructorID, "Course", decimal.RequireFromString("49.99"))
	require.NoError(t, err)
	c.Status = domain.CourseStatusApproved
	require.NoError(t, f.uow.Repositories().Courses.Create(context.Background(), c))
	return c
}

func (f *fixture) pay(t *testing.T, userID, courseID uuid.UUID, amountMinor int64, at time.Time) {
	t.Helper()
	tx, err := domain.NewPaidTransaction(userID, courseID, "pi_"+uuid.NewString(), amountMinor, "usd", at)
	require.NoError(t, err)
	created, err := f.uow.Repositories().Ledger.Create(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, created)
}

func (f *fixture) aggregator(loc *time.Location, now time.Time) *Aggregator {
	return NewAggregator(f.uow, loc, nil, WithClock(func() time.Time { return now }))
}

func amounts(r *domain.SalesReport) []string {
	out := make([]string, len(r.Buckets))
	for i, b := range r.Buckets {
		out[i] = b.Amount.StringFixed(2)
	}
	return out
}

func TestAggregate_WeeklyTodayBucket(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, time.May, 15, 18, 0, 0, 0, time.UTC)
	f.pay(t, f.student.ID, f.course.ID, 4999, now.Add(-time.Hour))

	report, err := f.aggregator(time.UTC, now).Aggregate(context.Background(), f.instructor.ID, domain.ScopeInstructor, domain.PeriodWeekly)
	require.NoError(t, err)

	require.Len(t, report.Buckets, 7)
	assert.Equal(t, "2024-05-09", report.Buckets[0].Label)
	assert.Equal(t, "2024-05-15", report.Buckets[6].Label)
	assert.Equal(t, []string{"0.00", "0.00", "0.00", "0.00", "0.00", "0.00", "49.99"}, amounts(report))
	assert.Equal(t, 1, report.Buckets[6].Count)
	assert.True(t, report.TotalAmount.Equal(decimal.RequireFromString("49.99")))
	assert.Equal(t, 1, report.TotalCount)

	for i := 1; i < len(report.Buckets); i++ {
		assert.True(t, report.Buckets[i-1].End.Equal(report.Buckets[i].Start))
	}
}

func TestAggregate_YearlyBuckets(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, time.August, 1, 9, 0, 0, 0, time.UTC)
	f.pay(t, f.student.ID, f.course.ID, 1000, time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC))
	f.pay(t, f.student.ID, f.course.ID, 2500, time.Date(2024, time.February, 29, 23, 0, 0, 0, time.UTC))
	f.pay(t, f.student.ID, f.course.ID, 700, time.Date(2024, time.July, 31, 12, 0, 0, 0, time.UTC))
	// Last year, and later than now: both ignored.
	f.pay(t, f.student.ID, f.course.ID, 9900, time.Date(2023, time.December, 31, 12, 0, 0, 0, time.UTC))
	f.pay(t, f.student.ID, f.course.ID, 9900, time.Date(2024, time.August, 20, 12, 0, 0, 0, time.UTC))

	report, err := f.aggregator(time.UTC, now).Aggregate(context.Background(), f.instructor.ID, domain.ScopeInstructor, domain.PeriodYearly)
	require.NoError(t, err)

	require.Len(t, report.Buckets, 12)
	labels := make([]string, 12)
	for i, b := range report.Buckets {
		labels[i] = b.Label
	}
	assert.Equal(t, []string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}, labels)
	assert.Equal(t, []string{
		"0.00", "35.00", "0.00", "0.00", "0.00", "0.00",
		"7.00", "0.00", "0.00", "0.00", "0.00", "0.00",
	}, amounts(report))
	assert.Equal(t, 3, report.TotalCount)
}

func TestAggregate_MonthlyBucketCount(t *testing.T) {
	tests := []struct {
		now  time.Time
		days int
	}{
		{now: time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC), days: 29},
		{now: time.Date(2023, time.February, 3, 0, 0, 0, 0, time.UTC), days: 28},
		{now: time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC), days: 30},
		{now: time.Date(2024, time.December, 31, 23, 59, 0, 0, time.UTC), days: 31},
	}

	for _, tc := range tests {
		t.Run(tc.now.Format("2006-01"), func(t *testing.T) {
			f := newFixture(t)
			report, err := f.aggregator(time.UTC, tc.now).Aggregate(context.Background(), f.instructor.ID, domain.ScopeInstructor, domain.PeriodMonthly)
			require.NoError(t, err)
			require.Len(t, report.Buckets, tc.days)
			assert.Equal(t, tc.now.Format("2006-01")+"-01", report.Buckets[0].Label)
			assert.True(t, report.TotalAmount.IsZero())
		})
	}
}

func TestAggregate_UsesConfiguredLocation(t *testing.T) {
	f := newFixture(t)
	tokyo := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC on the 14th is 05:00 on the 15th in Tokyo.
	f.pay(t, f.student.ID, f.course.ID, 1500, time.Date(2024, time.May, 14, 20, 0, 0, 0, time.UTC))
	now := time.Date(2024, time.May, 15, 3, 0, 0, 0, time.UTC)

	report, err := f.aggregator(tokyo, now).Aggregate(context.Background(), f.instructor.ID, domain.ScopeInstructor, domain.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-15", report.Buckets[6].Label)
	assert.Equal(t, "15.00", report.Buckets[6].Amount.StringFixed(2))

	utcReport, err := f.aggregator(time.UTC, now).Aggregate(context.Background(), f.instructor.ID, domain.ScopeInstructor, domain.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, "15.00", utcReport.Buckets[5].Amount.StringFixed(2))
	assert.True(t, utcReport.Buckets[6].Amount.IsZero())
}

func TestAggregate_Scopes(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, time.May, 15, 18, 0, 0, 0, time.UTC)
	other := f.user(t, "other@example.com")
	otherCourse := f.courseOf(t, other.ID)

	f.pay(t, f.student.ID, f.course.ID, 1000, now.Add(-time.Hour))
	f.pay(t, f.student.ID, otherCourse.ID, 2000, now.Add(-time.Hour))
	f.pay(t, other.ID, f.course.ID, 4000, now.Add(-time.Hour))

	agg := f.aggregator(time.UTC, now)
	ctx := context.Background()

	taught, err := agg.Aggregate(ctx, f.instructor.ID, domain.ScopeInstructor, domain.PeriodMonthly)
	require.NoError(t, err)
	assert.Equal(t, "50.00", taught.TotalAmount.StringFixed(2))

	bought, err := agg.Aggregate(ctx, f.student.ID, domain.ScopeUser, domain.PeriodMonthly)
	require.NoError(t, err)
	assert.Equal(t, "30.00", bought.TotalAmount.StringFixed(2))
	assert.Equal(t, 2, bought.TotalCount)

	nothing, err := agg.Aggregate(ctx, f.student.ID, domain.ScopeInstructor, domain.PeriodMonthly)
	require.NoError(t, err)
	assert.True(t, nothing.TotalAmount.IsZero())
}

func TestAggregate_OnlyPaidEntries(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, time.May, 15, 18, 0, 0, 0, time.UTC)
	tx, err := domain.NewPaidTransaction(f.student.ID, f.course.ID, "pi_failed", 1000, "usd", now.Add(-time.Hour))
	require.NoError(t, err)
	tx.Status = domain.TransactionFailed
	_, err = f.uow.Repositories().Ledger.Create(context.Background(), tx)
	require.NoError(t, err)

	report, err := f.aggregator(time.UTC, now).Aggregate(context.Background(), f.instructor.ID, domain.ScopeInstructor, domain.PeriodWeekly)
	require.NoError(t, err)
	assert.Zero(t, report.TotalCount)
}

func TestAggregate_ManyEntries(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, time.May, 15, 18, 0, 0, 0, time.UTC)
	for i := 0; i < pageSize+25; i++ {
		f.pay(t, f.student.ID, f.course.ID, 100, now.Add(-time.Duration(i)*time.Second))
	}

	report, err := f.aggregator(time.UTC, now).Aggregate(context.Background(), f.instructor.ID, domain.ScopeInstructor, domain.PeriodYearly)
	require.NoError(t, err)
	assert.Equal(t, pageSize+25, report.TotalCount)
}

func TestAggregate_Errors(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator(time.UTC, time.Now())
	ctx := context.Background()

	_, err := agg.Aggregate(ctx, uuid.New(), domain.ScopeInstructor, domain.PeriodWeekly)
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = agg.Aggregate(ctx, f.instructor.ID, domain.ScopeInstructor, domain.Period("daily"))
	assert.True(t, domain.IsValidationError(err))

	_, err = agg.Aggregate(ctx, f.instructor.ID, domain.SalesScope("admin"), domain.PeriodWeekly)
	assert.True(t, domain.IsValidationError(err))

	_, err = agg.Aggregate(ctx, uuid.Nil, domain.ScopeInstructor, domain.PeriodWeekly)
	assert.True(t, domain.IsValidationError(err))
}
