package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/memory"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (n *recordingNotifier) NotifyUsers(_ context.Context, recipients []uuid.UUID, _ domain.NotificationType, _ string, _, _, _ *uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recipients...)
}

type fixture struct {
	svc        *Service
	uow        *memory.UnitOfWork
	notifier   *recordingNotifier
	instructor *domain.User
	course     *domain.Course
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{uow: memory.NewUnitOfWork(logger), notifier: &recordingNotifier{}}
	f.svc = NewService(f.uow, f.notifier, logger)
	f.instructor = f.user(t)

	c, err := domain.NewCourse(f.instructor.ID, "Go", decimal.RequireFromString("10"))
	require.NoError(t, err)
	require.NoError(t, f.uow.Repositories().Courses.Create(context.Background(), c))
	f.course = c
	return f
}

func (f *fixture) user(t *testing.T) *domain.User {
	t.Helper()
	u, err := domain.NewUser("Reviewer", uuid.NewString()+"@example.com", "password123")
	require.NoError(t, err)
	u.Password, u.HashedPassword = "", "hash"
	require.NoError(t, f.uow.Repositories().Users.Create(context.Background(), u))
	return u
}

func (f *fixture) rating(t *testing.T) domain.RatingAggregate {
	t.Helper()
	c, err := f.uow.Repositories().Courses.GetByID(context.Background(), f.course.ID)
	require.NoError(t, err)
	return c.Rating
}

func intPtr(i int) *int { return &i }

func TestAddReview_RunningAverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.AddReview(ctx, f.user(t).ID, f.course.ID, 5, "great")
	require.NoError(t, err)
	assert.Equal(t, domain.RatingAggregate{Sum: 5, Count: 1}, out.Rating)
	assert.Equal(t, 5.0, out.Rating.Average())

	out, err = f.svc.AddReview(ctx, f.user(t).ID, f.course.ID, 3, "fine")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Rating.Count)
	assert.Equal(t, 4.0, out.Rating.Average())

	assert.Equal(t, out.Rating, f.rating(t))
	assert.Len(t, f.notifier.calls, 2)
	assert.Equal(t, f.instructor.ID, f.notifier.calls[0])
}

func TestAddReview_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t)

	_, err := f.svc.AddReview(ctx, author.ID, f.course.ID, 6, "too good")
	assert.True(t, domain.IsValidationError(err))
	_, err = f.svc.AddReview(ctx, author.ID, f.course.ID, 0, "")
	assert.True(t, domain.IsValidationError(err))

	_, err = f.svc.AddReview(ctx, author.ID, f.course.ID, 4, "")
	require.NoError(t, err)
	_, err = f.svc.AddReview(ctx, author.ID, f.course.ID, 2, "again")
	assert.ErrorIs(t, err, ErrDuplicateReview)
	assert.True(t, store.IsDuplicateError(err))

	_, err = f.svc.AddReview(ctx, author.ID, uuid.New(), 4, "")
	assert.ErrorIs(t, err, store.ErrCourseNotFound)
	_, err = f.svc.AddReview(ctx, uuid.New(), f.course.ID, 4, "")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	assert.Equal(t, domain.RatingAggregate{Sum: 4, Count: 1}, f.rating(t))
}

func TestAddReview_AggregateFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t)
	boom := errors.New("write failed")
	f.uow.InjectError(memory.OpCourseRating, boom)

	_, err := f.svc.AddReview(ctx, author.ID, f.course.ID, 5, "")
	assert.ErrorIs(t, err, boom)

	_, err = f.uow.Repositories().Reviews.GetLive(ctx, author.ID, f.course.ID)
	assert.ErrorIs(t, err, store.ErrReviewNotFound)
	assert.Equal(t, domain.RatingAggregate{}, f.rating(t))

	_, err = f.svc.AddReview(ctx, author.ID, f.course.ID, 5, "")
	require.NoError(t, err)
}

func TestEditReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t)

	_, err := f.svc.AddReview(ctx, f.user(t).ID, f.course.ID, 4, "")
	require.NoError(t, err)
	added, err := f.svc.AddReview(ctx, author.ID, f.course.ID, 2, "meh")
	require.NoError(t, err)

	comment := "  better on second look "
	out, err := f.svc.EditReview(ctx, author.ID, added.Review.ID, EditInput{Rating: intPtr(5), Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, domain.RatingAggregate{Sum: 9, Count: 2}, out.Rating)
	assert.Equal(t, 4.5, out.Rating.Average())
	assert.Equal(t, "better on second look", out.Review.Comment)

	// Same rating: aggregate untouched even if the course write would fail.
	f.uow.InjectError(memory.OpCourseRating, errors.New("should not be called"))
	out, err = f.svc.EditReview(ctx, author.ID, added.Review.ID, EditInput{Rating: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, domain.RatingAggregate{Sum: 9, Count: 2}, out.Rating)

	_, err = f.svc.EditReview(ctx, f.user(t).ID, added.Review.ID, EditInput{Rating: intPtr(1)})
	assert.ErrorIs(t, err, ErrNotAuthor)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.EditReview(ctx, author.ID, added.Review.ID, EditInput{Rating: intPtr(9)})
	assert.True(t, domain.IsValidationError(err))

	_, err = f.svc.EditReview(ctx, author.ID, uuid.New(), EditInput{})
	assert.ErrorIs(t, err, store.ErrReviewNotFound)
}

func TestDeleteReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t)
	admin := domain.NewActor(uuid.New(), domain.MustRoleSet(domain.RoleUser, domain.RoleAdmin))

	first, err := f.svc.AddReview(ctx, author.ID, f.course.ID, 5, "")
	require.NoError(t, err)
	otherAuthor := f.user(t)
	second, err := f.svc.AddReview(ctx, otherAuthor.ID, f.course.ID, 2, "")
	require.NoError(t, err)

	stranger := domain.NewActor(f.user(t).ID, domain.MustRoleSet(domain.RoleUser))
	_, err = f.svc.DeleteReview(ctx, stranger, first.Review.ID)
	assert.ErrorIs(t, err, ErrNotAuthor)

	agg, err := f.svc.DeleteReview(ctx, domain.NewActor(author.ID, domain.MustRoleSet(domain.RoleUser)), first.Review.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RatingAggregate{Sum: 2, Count: 1}, agg)

	_, err = f.svc.DeleteReview(ctx, admin, first.Review.ID)
	assert.ErrorIs(t, err, store.ErrReviewNotFound, "already deleted")

	agg, err = f.svc.DeleteReview(ctx, admin, second.Review.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RatingAggregate{}, agg)
	assert.Equal(t, 0.0, agg.Average())

	// The author may review again once the old review is gone.
	_, err = f.svc.AddReview(ctx, author.ID, f.course.ID, 3, "")
	require.NoError(t, err)
	assert.Equal(t, domain.RatingAggregate{Sum: 3, Count: 1}, f.rating(t))
}

func TestReviewSequencesKeepAggregateInRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ratings := []int{1, 5, 3, 4, 2, 5, 1}
	var ids []uuid.UUID
	var authors []uuid.UUID

	for _, r := range ratings {
		u := f.user(t)
		out, err := f.svc.AddReview(ctx, u.ID, f.course.ID, r, "")
		require.NoError(t, err)
		ids = append(ids, out.Review.ID)
		authors = append(authors, u.ID)
	}
	for i, id := range ids {
		if i%2 == 0 {
			_, err := f.svc.EditReview(ctx, authors[i], id, EditInput{Rating: intPtr(6 - ratings[i])})
			require.NoError(t, err)
		}
		agg := f.rating(t)
		assert.GreaterOrEqual(t, agg.Average(), 0.0)
		assert.LessOrEqual(t, agg.Average(), 5.0)
	}
	for i, id := range ids {
		agg, err := f.svc.DeleteReview(ctx, domain.NewActor(authors[i], domain.MustRoleSet(domain.RoleUser)), id)
		require.NoError(t, err, fmt.Sprintf("delete %d", i))
		assert.GreaterOrEqual(t, agg.Count, 0)
		assert.GreaterOrEqual(t, agg.Average(), 0.0)
		assert.LessOrEqual(t, agg.Average(), 5.0)
	}
	assert.Equal(t, domain.RatingAggregate{}, f.rating(t))
}

func TestListReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.AddReview(ctx, f.user(t).ID, f.course.ID, 4, "")
		require.NoError(t, err)
	}

	page, err := f.svc.ListReviews(ctx, f.course.ID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	_, err = f.svc.ListReviews(ctx, uuid.New(), 1, 10)
	assert.ErrorIs(t, err, store.ErrCourseNotFound)
}

func TestReviewLookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t)

	other, err := domain.NewCourse(f.instructor.ID, "Rust", decimal.RequireFromString("12"))
	require.NoError(t, err)
	require.NoError(t, f.uow.Repositories().Courses.Create(ctx, other))

	first, err := f.svc.AddReview(ctx, author.ID, f.course.ID, 4, "solid")
	require.NoError(t, err)
	second, err := f.svc.AddReview(ctx, author.ID, other.ID, 2, "")
	require.NoError(t, err)
	_, err = f.svc.AddReview(ctx, f.user(t).ID, f.course.ID, 5, "")
	require.NoError(t, err)

	got, err := f.svc.GetReview(ctx, first.Review.ID)
	require.NoError(t, err)
	assert.Equal(t, "solid", got.Comment)

	mine, err := f.svc.ListUserReviews(ctx, author.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Total)
	for _, r := range mine.Items {
		assert.Equal(t, author.ID, r.UserID)
	}

	_, err = f.svc.DeleteReview(ctx, domain.NewActor(author.ID, domain.MustRoleSet(domain.RoleUser)), second.Review.ID)
	require.NoError(t, err)
	mine, err = f.svc.ListUserReviews(ctx, author.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, first.Review.ID, mine.Items[0].ID)

	_, err = f.svc.GetReview(ctx, second.Review.ID)
	assert.ErrorIs(t, err, store.ErrReviewNotFound)
	_, err = f.svc.ListUserReviews(ctx, uuid.New(), 1, 10)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}
