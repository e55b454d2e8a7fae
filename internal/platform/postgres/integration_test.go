package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/postgres"
	"github.com/phrazzld/pantognostis-api/internal/store"
	"github.com/phrazzld/pantognostis-api/internal/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUserAndCourse(t *testing.T, tx *sql.Tx) (*domain.User, *domain.Course) {
	t.Helper()
	ctx := context.Background()

	user, err := domain.NewUser("Ada", "ada-"+uuid.NewString()[:8]+"@example.com", "password123")
	require.NoError(t, err)
	user.HashedPassword = "$2a$10$abcdefghijklmnopqrstuv"
	require.NoError(t, postgres.NewPostgresUserStore(tx, nil).Create(ctx, user))

	course, err := domain.NewCourse(user.ID, "Distributed Systems", decimal.RequireFromString("49.99"))
	require.NoError(t, err)
	course.Slug = "distributed-systems-" + uuid.NewString()[:8]
	require.NoError(t, postgres.NewPostgresCourseStore(tx, nil).Create(ctx, course))

	return user, course
}

func TestIntegration_LedgerExactlyOnce(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		user, course := seedUserAndCourse(t, tx)
		ledger := postgres.NewPostgresLedgerStore(tx, nil)

		entry, err := domain.NewPaidTransaction(user.ID, course.ID, "pi_integration", 4999, "usd", time.Now())
		require.NoError(t, err)

		created, err := ledger.Create(ctx, entry)
		require.NoError(t, err)
		assert.True(t, created)

		again, err := domain.NewPaidTransaction(user.ID, course.ID, "pi_integration", 4999, "usd", time.Now())
		require.NoError(t, err)
		created, err = ledger.Create(ctx, again)
		require.NoError(t, err)
		assert.False(t, created)

		stored, err := ledger.GetByPaymentReference(ctx, "pi_integration")
		require.NoError(t, err)
		assert.Equal(t, entry.ID, stored.ID)
		assert.True(t, stored.Amount.Equal(decimal.RequireFromString("49.99")))

		entries, err := ledger.Find(ctx, store.TransactionFilter{CourseIDs: []uuid.UUID{course.ID}})
		require.NoError(t, err)
		assert.Len(t, entries, 1)

		_, err = ledger.GetByPaymentReference(ctx, "pi_missing")
		assert.ErrorIs(t, err, store.ErrTransactionNotFound)
	})
}

func TestIntegration_EnrollmentSets(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		user, course := seedUserAndCourse(t, tx)
		enrollments := postgres.NewPostgresEnrollmentStore(tx, nil)

		added, err := enrollments.AddCourseToUser(ctx, user.ID, course.ID)
		require.NoError(t, err)
		assert.True(t, added)
		added, err = enrollments.AddStudentToCourse(ctx, course.ID, user.ID)
		require.NoError(t, err)
		assert.True(t, added)

		added, err = enrollments.AddCourseToUser(ctx, user.ID, course.ID)
		require.NoError(t, err)
		assert.False(t, added)

		enrolled, err := enrollments.IsUserEnrolled(ctx, user.ID, course.ID)
		require.NoError(t, err)
		assert.True(t, enrolled)

		students, err := enrollments.ListStudentIDsForCourse(ctx, course.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{user.ID}, students)
	})
}

func TestIntegration_ReviewAndRating(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		user, course := seedUserAndCourse(t, tx)
		reviews := postgres.NewPostgresReviewStore(tx, nil)
		courses := postgres.NewPostgresCourseStore(tx, nil)

		review, err := domain.NewReview(course.ID, user.ID, 4, "solid")
		require.NoError(t, err)
		require.NoError(t, reviews.Create(ctx, review))

		require.NoError(t, courses.UpdateRating(ctx, course.ID, domain.RatingAggregate{Sum: 4, Count: 1}))
		got, err := courses.GetByID(ctx, course.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Rating.Sum)
		assert.Equal(t, 1, got.Rating.Count)

		// A unique violation aborts the transaction, so it is checked last.
		duplicate, err := domain.NewReview(course.ID, user.ID, 5, "again")
		require.NoError(t, err)
		assert.ErrorIs(t, reviews.Create(ctx, duplicate), store.ErrReviewExists)
	})
}

func TestIntegration_UserDirectoryAndProfile(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		users := postgres.NewPostgresUserStore(tx, nil)
		tag := uuid.NewString()[:8]

		student, err := domain.NewUser("Grace "+tag, "grace-"+tag+"@example.com", "password123")
		require.NoError(t, err)
		student.HashedPassword = "$2a$10$abcdefghijklmnopqrstuv"
		require.NoError(t, users.Create(ctx, student))

		teacher, err := domain.NewUser("Linus "+tag, "linus-"+tag+"@example.com", "password123")
		require.NoError(t, err)
		teacher.HashedPassword = "$2a$10$abcdefghijklmnopqrstuv"
		teacher.Roles = domain.MustRoleSet(domain.RoleUser, domain.RoleInstructor)
		require.NoError(t, users.Create(ctx, teacher))

		require.NoError(t, teacher.ApplyProfile(domain.Profile{Profession: "Kernel hacker", Company: "Example Corp"}))
		require.NoError(t, users.Update(ctx, teacher))
		stored, err := users.GetByID(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Equal(t, "Kernel hacker", stored.Profession)
		assert.Equal(t, "Example Corp", stored.Company)

		found, total, err := users.List(ctx, store.UserFilter{Search: tag})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, found, 2)

		found, total, err = users.List(ctx, store.UserFilter{Search: tag, Role: domain.RoleInstructor})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, found, 1)
		assert.Equal(t, teacher.ID, found[0].ID)

		found, _, err = users.List(ctx, store.UserFilter{Search: "GRACE-" + tag})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, student.ID, found[0].ID)
	})
}
