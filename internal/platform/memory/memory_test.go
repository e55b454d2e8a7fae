package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/memory"
	"github.com/phrazzld/pantognostis-api/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, uow *memory.UnitOfWork) (*domain.User, *domain.Course) {
	t.Helper()
	ctx := context.Background()
	repos := uow.Repositories()

	user, err := domain.NewUser("Grace", "grace@example.com", "password123")
	require.NoError(t, err)
	user.HashedPassword = "hashed"
	require.NoError(t, repos.Users.Create(ctx, user))

	course, err := domain.NewCourse(user.ID, "Compilers", decimal.RequireFromString("19.99"))
	require.NoError(t, err)
	course.Slug = "compilers"
	require.NoError(t, repos.Courses.Create(ctx, course))
	return user, course
}

func TestUnitOfWork_RollsBackOnError(t *testing.T) {
	uow := memory.NewUnitOfWork(nil)
	user, course := seed(t, uow)
	ctx := context.Background()
	boom := errors.New("boom")

	err := uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		added, err := repos.Enrollments.AddCourseToUser(ctx, user.ID, course.ID)
		require.NoError(t, err)
		require.True(t, added)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	enrolled, err := uow.Repositories().Enrollments.IsUserEnrolled(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)
}

func TestUnitOfWork_CommitsOnSuccess(t *testing.T) {
	uow := memory.NewUnitOfWork(nil)
	user, course := seed(t, uow)
	ctx := context.Background()

	err := uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		if _, err := repos.Enrollments.AddCourseToUser(ctx, user.ID, course.ID); err != nil {
			return err
		}
		_, err := repos.Enrollments.AddStudentToCourse(ctx, course.ID, user.ID)
		return err
	})
	require.NoError(t, err)

	courses, err := uow.Repositories().Enrollments.ListCourseIDsForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{course.ID}, courses)
	students, err := uow.Repositories().Enrollments.ListStudentIDsForCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{user.ID}, students)
}

func TestUnitOfWork_InjectError(t *testing.T) {
	uow := memory.NewUnitOfWork(nil)
	user, course := seed(t, uow)
	ctx := context.Background()

	uow.InjectError(memory.OpLedgerCreate, store.ErrTransient)
	entry, err := domain.NewPaidTransaction(user.ID, course.ID, "pi_1", 1999, "usd", time.Now())
	require.NoError(t, err)

	_, err = uow.Repositories().Ledger.Create(ctx, entry)
	assert.ErrorIs(t, err, store.ErrTransient)

	created, err := uow.Repositories().Ledger.Create(ctx, entry)
	require.NoError(t, err)
	assert.True(t, created, "injected errors fire once")
}

func TestLedger_PaymentReferenceIsUnique(t *testing.T) {
	uow := memory.NewUnitOfWork(nil)
	user, course := seed(t, uow)
	ctx := context.Background()
	ledger := uow.Repositories().Ledger

	first, err := domain.NewPaidTransaction(user.ID, course.ID, "pi_same", 1999, "usd", time.Now())
	require.NoError(t, err)
	second, err := domain.NewPaidTransaction(user.ID, course.ID, "pi_same", 1999, "usd", time.Now())
	require.NoError(t, err)

	created, err := ledger.Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = ledger.Create(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)

	all, err := ledger.Find(ctx, store.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, first.ID, all[0].ID)

	none, err := ledger.Find(ctx, store.TransactionFilter{CourseIDs: []uuid.UUID{}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLedger_FindWindow(t *testing.T) {
	uow := memory.NewUnitOfWork(nil)
	user, course := seed(t, uow)
	ctx := context.Background()
	ledger := uow.Repositories().Ledger
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	for i, ref := range []string{"pi_a", "pi_b", "pi_c"} {
		e, err := domain.NewPaidTransaction(user.ID, course.ID, ref, 100, "usd", base.AddDate(0, 0, i))
		require.NoError(t, err)
		_, err = ledger.Create(ctx, e)
		require.NoError(t, err)
	}

	got, err := ledger.Find(ctx, store.TransactionFilter{
		CourseIDs: []uuid.UUID{course.ID},
		From:      base.AddDate(0, 0, 1),
		To:        base.AddDate(0, 0, 2),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "pi_b", got[0].PaymentReference)
}

func TestReviews_OneLivePerUser(t *testing.T) {
	uow := memory.NewUnitOfWork(nil)
	user, course := seed(t, uow)
	ctx := context.Background()
	reviews := uow.Repositories().Reviews

	first, err := domain.NewReview(course.ID, user.ID, 5, "great")
	require.NoError(t, err)
	require.NoError(t, reviews.Create(ctx, first))

	second, err := domain.NewReview(course.ID, user.ID, 3, "again")
	require.NoError(t, err)
	assert.ErrorIs(t, reviews.Create(ctx, second), store.ErrReviewExists)

	first.Deleted = true
	require.NoError(t, reviews.Update(ctx, first))
	require.NoError(t, reviews.Create(ctx, second))

	live, err := reviews.GetLive(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, live.ID)

	list, total, err := reviews.ListByCourse(ctx, course.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	list, total, err = reviews.ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)

	_, total, err = reviews.ListByUser(ctx, uuid.New(), 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUsers_List(t *testing.T) {
	uow := memory.NewUnitOfWork(nil)
	grace, _ := seed(t, uow)
	ctx := context.Background()
	users := uow.Repositories().Users

	linus, err := domain.NewUser("Linus", "linus@example.com", "password123")
	require.NoError(t, err)
	linus.HashedPassword = "hashed"
	linus.Roles = domain.MustRoleSet(domain.RoleUser, domain.RoleInstructor)
	linus.CreatedAt = grace.CreatedAt.Add(time.Minute)
	require.NoError(t, users.Create(ctx, linus))

	all, total, err := users.List(ctx, store.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, all, 2)
	assert.Equal(t, linus.ID, all[0].ID, "newest first")

	teachers, total, err := users.List(ctx, store.UserFilter{Role: domain.RoleInstructor})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, linus.ID, teachers[0].ID)

	found, _, err := users.List(ctx, store.UserFilter{Search: "GRACE@"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, grace.ID, found[0].ID)

	paged, total, err := users.List(ctx, store.UserFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, paged, 1)
	assert.Equal(t, grace.ID, paged[0].ID)

	_, _, err = users.List(ctx, store.UserFilter{Role: "wizard"})
	assert.Error(t, err)
}

func TestCourses_ListFilters(t *testing.T) {
	uow := memory.NewUnitOfWork(nil)
	user, course := seed(t, uow)
	ctx := context.Background()
	courses := uow.Repositories().Courses

	other, err := domain.NewCourse(user.ID, "Operating Systems", decimal.NewFromInt(10))
	require.NoError(t, err)
	other.Slug = "operating-systems"
	other.Disabled = true
	require.NoError(t, courses.Create(ctx, other))

	dup, err := domain.NewCourse(user.ID, "Compilers Again", decimal.Zero)
	require.NoError(t, err)
	dup.Slug = course.Slug
	assert.ErrorIs(t, courses.Create(ctx, dup), store.ErrSlugExists)

	list, total, err := courses.List(ctx, store.CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, course.ID, list[0].ID)

	_, total, err = courses.List(ctx, store.CourseFilter{IncludeDisabled: true})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	list, _, err = courses.List(ctx, store.CourseFilter{Search: "COMPIL"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, course.ID, list[0].ID)
}

func TestWebinars_WatchersAndReminders(t *testing.T) {
	uow := memory.NewUnitOfWork(nil)
	user, _ := seed(t, uow)
	ctx := context.Background()
	webinars := uow.Repositories().Webinars
	now := time.Now().UTC()

	w, err := domain.NewWebinar(user.ID, "Live Q&A", now.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, webinars.Create(ctx, w))

	added, err := webinars.AddWatcher(ctx, w.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = webinars.AddWatcher(ctx, w.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, added)

	due, err := webinars.ListDueForReminder(ctx, now, now.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].WatcherCount)

	require.NoError(t, webinars.MarkReminderSent(ctx, w.ID))
	due, err = webinars.ListDueForReminder(ctx, now, now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}
