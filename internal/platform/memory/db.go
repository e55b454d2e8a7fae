package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

// Operation names accepted by InjectError.
const (
	OpUserCreate        = "users.create"
	OpUserUpdate        = "users.update"
	OpCourseUpdate      = "courses.update"
	OpCourseRating      = "courses.update_rating"
	OpReviewCreate      = "reviews.create"
	OpReviewUpdate      = "reviews.update"
	OpLedgerCreate      = "ledger.create"
	OpEnrollmentAdd     = "enrollments.add"
	OpNotificationWrite = "notifications.create"
)

// Listing bounds, matching the PostgreSQL stores.
const (
	defaultListLimit = 20
	maxListLimit     = 500
)

type edge struct {
	id uuid.UUID
	at time.Time
}

// data is the full dataset. Entities are stored by value so callers never
// share memory with the store.
type data struct {
	users         map[uuid.UUID]domain.User
	courses       map[uuid.UUID]domain.Course
	sections      map[uuid.UUID]domain.Section
	lectures      map[uuid.UUID]domain.Lecture
	reviews       map[uuid.UUID]domain.Review
	transactions  map[uuid.UUID]domain.Transaction
	notifications map[uuid.UUID]domain.Notification
	webinars      map[uuid.UUID]domain.Webinar

	userCourses    map[uuid.UUID][]edge
	courseStudents map[uuid.UUID][]edge
	watchers       map[uuid.UUID][]edge
}

func newData() *data {
	return &data{
		users:          map[uuid.UUID]domain.User{},
		courses:        map[uuid.UUID]domain.Course{},
		sections:       map[uuid.UUID]domain.Section{},
		lectures:       map[uuid.UUID]domain.Lecture{},
		reviews:        map[uuid.UUID]domain.Review{},
		transactions:   map[uuid.UUID]domain.Transaction{},
		notifications:  map[uuid.UUID]domain.Notification{},
		webinars:       map[uuid.UUID]domain.Webinar{},
		userCourses:    map[uuid.UUID][]edge{},
		courseStudents: map[uuid.UUID][]edge{},
		watchers:       map[uuid.UUID][]edge{},
	}
}

func (d *data) clone() *data {
	c := newData()
	copyMap(c.users, d.users)
	copyMap(c.courses, d.courses)
	copyMap(c.sections, d.sections)
	copyMap(c.lectures, d.lectures)
	copyMap(c.reviews, d.reviews)
	copyMap(c.transactions, d.transactions)
	copyMap(c.notifications, d.notifications)
	copyMap(c.webinars, d.webinars)
	copyEdges(c.userCourses, d.userCourses)
	copyEdges(c.courseStudents, d.courseStudents)
	copyEdges(c.watchers, d.watchers)
	return c
}

func copyMap[V any](dst, src map[uuid.UUID]V) {
	for k, v := range src {
		dst[k] = v
	}
}

func copyEdges(dst, src map[uuid.UUID][]edge) {
	for k, v := range src {
		dst[k] = append([]edge(nil), v...)
	}
}

// UnitOfWork implements store.UnitOfWork in memory.
//
// Transactions are serialized. Repositories returned by Repositories must not
// be used from inside a WithinTx closure; use the ones passed to it.
type UnitOfWork struct {
	mu     sync.Mutex
	state  *data
	logger *slog.Logger

	faultMu sync.Mutex
	faults  map[string]error
}

var _ store.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork creates an empty in-memory dataset.
func NewUnitOfWork(logger *slog.Logger) *UnitOfWork {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnitOfWork{
		state:  newData(),
		logger: logger.With(slog.String("component", "memory_store")),
		faults: map[string]error{},
	}
}

// InjectError makes the next call of the named operation fail with err.
func (u *UnitOfWork) InjectError(op string, err error) {
	u.faultMu.Lock()
	defer u.faultMu.Unlock()
	u.faults[op] = err
}

func (u *UnitOfWork) fault(op string) error {
	u.faultMu.Lock()
	defer u.faultMu.Unlock()
	err, ok := u.faults[op]
	if !ok {
		return nil
	}
	delete(u.faults, op)
	return err
}

// Repositories implements store.UnitOfWork.Repositories
func (u *UnitOfWork) Repositories() store.Repositories {
	return u.bind(nil)
}

func (u *UnitOfWork) bind(tx *data) store.Repositories {
	b := base{uow: u, tx: tx}
	return store.Repositories{
		Users:         &userStore{b},
		Courses:       &courseStore{b},
		Sections:      &sectionStore{b},
		Lectures:      &lectureStore{b},
		Reviews:       &reviewStore{b},
		Ledger:        &ledgerStore{b},
		Enrollments:   &enrollmentStore{b},
		Notifications: &notificationStore{b},
		Webinars:      &webinarStore{b},
	}
}

// WithinTx implements store.UnitOfWork.WithinTx
func (u *UnitOfWork) WithinTx(ctx context.Context, fn store.RepoFn) error {
	log := logger.FromContextOrDefault(ctx, u.logger)

	u.mu.Lock()
	defer u.mu.Unlock()

	working := u.state.clone()
	defer func() {
		if p := recover(); p != nil {
			log.Error("rolled back transaction after panic", slog.Any("panic", p))
			// ALLOW-PANIC: Propagating caught panic from transaction
			panic(p)
		}
	}()

	if err := fn(ctx, u.bind(working)); err != nil {
		log.Debug("rolled back transaction due to error", slog.String("error", err.Error()))
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.state = working
	return nil
}

// base routes every store call either to a transaction's working copy or,
// under the lock, to the live data.
type base struct {
	uow *UnitOfWork
	tx  *data
}

func (b base) read(fn func(d *data) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	b.uow.mu.Lock()
	defer b.uow.mu.Unlock()
	return fn(b.uow.state)
}

func (b base) write(op string, fn func(d *data) error) error {
	if err := b.uow.fault(op); err != nil {
		return err
	}
	return b.read(fn)
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func edgeIDs(edges []edge) []uuid.UUID {
	ids := make([]uuid.UUID, len(edges))
	for i, e := range edges {
		ids[i] = e.id
	}
	return ids
}

func hasEdge(edges []edge, id uuid.UUID) bool {
	for _, e := range edges {
		if e.id == id {
			return true
		}
	}
	return false
}

func removeEdge(edges []edge, id uuid.UUID) ([]edge, bool) {
	for i, e := range edges {
		if e.id == id {
			return append(edges[:i:i], edges[i+1:]...), true
		}
	}
	return edges, false
}
