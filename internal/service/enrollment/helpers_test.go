package enrollment

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/events"
	"github.com/phrazzld/pantognostis-api/internal/payment"
	"github.com/phrazzld/pantognostis-api/internal/platform/memory"
)

// fakeGateway is an in-memory payment.Gateway.
type fakeGateway struct {
	mu        sync.Mutex
	intents   map[string]*payment.Intent
	customers map[string][]string
	err       error
	created   []payment.CreateIntentParams
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*payment.Intent{}, customers: map[string][]string{}}
}

func (g *fakeGateway) next(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

func (g *fakeGateway) addIntent(id string, amountMinor int64, status payment.IntentStatus, metadata map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id] = &payment.Intent{ID: id, AmountMinor: amountMinor, Currency: "usd", Status: status, Metadata: metadata}
}

func (g *fakeGateway) CreateIntent(_ context.Context, p payment.CreateIntentParams) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, p)
	in := &payment.Intent{
		ID: g.next("pi"), AmountMinor: p.AmountMinor, Currency: p.Currency,
		Status: payment.IntentRequiresPaymentMethod, Metadata: p.Metadata, CustomerID: p.CustomerID,
	}
	g.intents[in.ID] = in
	return in, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, ref string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	in, ok := g.intents[ref]
	if !ok {
		return nil, payment.ErrIntentNotFound
	}
	cp := *in
	return &cp, nil
}

func (g *fakeGateway) ListIntents(_ context.Context, limit int) ([]*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := []*payment.Intent{}
	for _, in := range g.intents {
		if len(out) == limit {
			break
		}
		out = append(out, in)
	}
	return out, nil
}

func (g *fakeGateway) CreateCustomer(_ context.Context, email string) (*payment.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	c := &payment.Customer{ID: g.next("cus"), Email: email}
	g.customers[c.ID] = nil
	return c, nil
}

func (g *fakeGateway) AttachPaymentSource(_ context.Context, customerID, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.customers[customerID]; !ok {
		return payment.NewGatewayError(404, "resource_missing", "No such customer", nil)
	}
	g.customers[customerID] = append(g.customers[customerID], token)
	return nil
}

func (g *fakeGateway) ConfirmWithSavedCustomer(_ context.Context, customerID string, amountMinor int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.customers[customerID]) == 0 {
		return nil, payment.NewGatewayError(402, "card_declined", "Customer has no source", nil)
	}
	in := &payment.Intent{
		ID: g.next("pi"), AmountMinor: amountMinor, Currency: currency,
		Status: payment.IntentSucceeded, Metadata: metadata, CustomerID: customerID,
	}
	g.intents[in.ID] = in
	return in, nil
}

// eventRecorder captures emitted events.
type eventRecorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *eventRecorder) HandleEvent(_ context.Context, e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

var fixedNow = time.Date(2024, time.March, 14, 15, 9, 26, 0, time.UTC)

type fixture struct {
	svc        *Service
	uow        *memory.UnitOfWork
	gateway    *fakeGateway
	recorder   *eventRecorder
	student    *domain.User
	instructor *domain.User
	course     *domain.Course
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uow := memory.NewUnitOfWork(logger)
	emitter := events.NewInMemoryEventEmitter(logger)
	recorder := &eventRecorder{}
	emitter.RegisterHandler(recorder)

	f := &fixture{uow: uow, gateway: newFakeGateway(), recorder: recorder}
	f.svc = NewService(uow, f.gateway, emitter, "USD", logger, WithClock(func() time.Time { return fixedNow }))

	f.student = seedUser(t, uow, "Student", "student@example.com")
	f.instructor = seedUser(t, uow, "Teacher", "teacher@example.com")
	f.course = seedCourse(t, uow, f.instructor.ID, "Go in Practice", "49.99")
	return f
}

func seedUser(t *testing.T, uow *memory.UnitOfWork, name, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(name, email, "password123")
	require.NoError(t, err)
	u.Password = ""
	u.HashedPassword = "$2a$04$hash"
	u.EmailVerified = true
	require.NoError(t, uow.Repositories().Users.Create(context.Background(), u))
	return u
}

func seedCourse(t *testing.T, uow *memory.UnitOfWork, instructorID uuid.UUID, title, price string) *domain.Course {
	t.Helper()
	c, err := domain.NewCourse(instructorID, title, decimal.RequireFromString(price))
	require.NoError(t, err)
	c.Status = domain.CourseStatusApproved
	require.NoError(t, uow.Repositories().Courses.Create(context.Background(), c))
	return c
}

func (f *fixture) paidIntent(ref string, amountMinor int64) {
	f.paidIntentFor(ref, amountMinor, f.student.ID, f.course.ID)
}

func (f *fixture) paidIntentFor(ref string, amountMinor int64, userID, courseID uuid.UUID) {
	f.gateway.addIntent(ref, amountMinor, payment.IntentSucceeded, map[string]string{
		MetadataUserID:   userID.String(),
		MetadataCourseID: courseID.String(),
	})
}

func (f *fixture) enrolled(t *testing.T) (bool, bool) {
	t.Helper()
	ctx := context.Background()
	repos := f.uow.Repositories()
	userSide, err := repos.Enrollments.IsUserEnrolled(ctx, f.student.ID, f.course.ID)
	require.NoError(t, err)
	courseSide, err := repos.Enrollments.IsStudentOfCourse(ctx, f.course.ID, f.student.ID)
	require.NoError(t, err)
	return userSide, courseSide
}
