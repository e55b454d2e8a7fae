package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apiMiddleware "github.com/phrazzld/pantognostis-api/internal/api/middleware"
	"github.com/phrazzld/pantognostis-api/internal/config"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/events"
	"github.com/phrazzld/pantognostis-api/internal/notify"
	"github.com/phrazzld/pantognostis-api/internal/payment"
	"github.com/phrazzld/pantognostis-api/internal/platform/memory"
	"github.com/phrazzld/pantognostis-api/internal/realtime"
	"github.com/phrazzld/pantognostis-api/internal/service/account"
	"github.com/phrazzld/pantognostis-api/internal/service/auth"
	"github.com/phrazzld/pantognostis-api/internal/service/catalog"
	"github.com/phrazzld/pantognostis-api/internal/service/enrollment"
	"github.com/phrazzld/pantognostis-api/internal/service/notification"
	"github.com/phrazzld/pantognostis-api/internal/service/review"
	"github.com/phrazzld/pantognostis-api/internal/service/sales"
	"github.com/phrazzld/pantognostis-api/internal/service/webinar"
)

const testPassword = "correct-horse-battery"

// stubGateway is an in-memory payment.Gateway.
type stubGateway struct {
	mu        sync.Mutex
	intents   map[string]*payment.Intent
	customers map[string]bool
	err       error
}

func newStubGateway() *stubGateway {
	return &stubGateway{intents: map[string]*payment.Intent{}, customers: map[string]bool{}}
}

func (g *stubGateway) nextID(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

func (g *stubGateway) CreateIntent(_ context.Context, p payment.CreateIntentParams) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	in := &payment.Intent{
		ID: g.nextID("pi"), AmountMinor: p.AmountMinor, Currency: p.Currency,
		Status: payment.IntentRequiresPaymentMethod, Metadata: p.Metadata, ClientSecret: "secret",
	}
	g.intents[in.ID] = in
	cp := *in
	return &cp, nil
}

func (g *stubGateway) RetrieveIntent(_ context.Context, ref string) (*payment.Intent, error) {
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

func (g *stubGateway) ListIntents(_ context.Context, limit int) ([]*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := []*payment.Intent{}
	for _, in := range g.intents {
		if len(out) == limit {
			break
		}
		cp := *in
		out = append(out, &cp)
	}
	return out, nil
}

func (g *stubGateway) CreateCustomer(_ context.Context, email string) (*payment.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := &payment.Customer{ID: g.nextID("cus"), Email: email}
	g.customers[c.ID] = false
	return c, nil
}

func (g *stubGateway) AttachPaymentSource(_ context.Context, customerID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customers[customerID] = true
	return nil
}

func (g *stubGateway) ConfirmWithSavedCustomer(_ context.Context, customerID string, amountMinor int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.customers[customerID] {
		return nil, payment.NewGatewayError(402, "card_declined", "Customer has no source", nil)
	}
	in := &payment.Intent{
		ID: g.nextID("pi"), AmountMinor: amountMinor, Currency: currency,
		Status: payment.IntentSucceeded, Metadata: metadata,
	}
	g.intents[in.ID] = in
	cp := *in
	return &cp, nil
}

// succeed marks an intent as paid, as the client-side confirmation would.
func (g *stubGateway) succeed(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id].Status = payment.IntentSucceeded
}

type sentMail struct {
	to, subject, body, replyTo string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (s *recordingSender) Send(_ context.Context, to, subject, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: html})
}

func (s *recordingSender) SendMessage(_ context.Context, msg notify.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMail{to: msg.To, subject: msg.Subject, body: msg.HTML, replyTo: msg.ReplyTo})
}

func (s *recordingSender) to(address string) []sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentMail
	for _, m := range s.sent {
		if m.to == address {
			out = append(out, m)
		}
	}
	return out
}

var codePattern = regexp.MustCompile(`<strong>(\d{4})</strong>`)

// lastCode returns the one-time code in the latest mail sent to address.
func (s *recordingSender) lastCode(t *testing.T, address string) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].to != address {
			continue
		}
		m := codePattern.FindStringSubmatch(s.sent[i].body)
		require.Len(t, m, 2, "mail to %s carries no code", address)
		return m[1]
	}
	t.Fatalf("no mail sent to %s", address)
	return ""
}

const supportInbox = "support@pantognostis.test"

type testServer struct {
	handler http.Handler
	uow     *memory.UnitOfWork
	gateway *stubGateway
	mail    *recordingSender
	jwt     auth.JWTService
	hasher  *auth.BcryptHasher
	hub     *realtime.Hub
}

type serverOption func(*RouterConfig)

func withLimiter(l apiMiddleware.Limiter, perMinute int) serverOption {
	return func(c *RouterConfig) {
		c.Limiter = l
		c.RateLimitPerMinute = perMinute
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   "test-secret-that-is-at-least-32-characters",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 1440,
	})
	require.NoError(t, err)

	ts := &testServer{
		uow:     memory.NewUnitOfWork(logger),
		gateway: newStubGateway(),
		mail:    &recordingSender{},
		jwt:     jwtService,
		hasher:  auth.NewBcryptHasher(bcrypt.MinCost),
	}

	hub := realtime.NewHub(logger)
	t.Cleanup(hub.Close)
	ts.hub = hub
	notifications := notification.NewService(ts.uow, hub, logger)
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.Subscribe(events.EnrollmentConfirmed, notifications.EnrollmentHandler())

	authService := auth.NewService(ts.uow, jwtService, ts.hasher, memory.NewCodeStore(),
		ts.mail, notifications, 10*time.Minute, logger)
	enrollments := enrollment.NewService(ts.uow, ts.gateway, emitter, "usd", logger)

	cfg := RouterConfig{
		Auth:           NewAuthHandler(authService, logger),
		Courses:        NewCourseHandler(catalog.NewService(ts.uow, notifications, logger), logger),
		Reviews:        NewReviewHandler(review.NewService(ts.uow, notifications, logger), logger),
		Payments:       NewPaymentHandler(enrollments, logger),
		Stats:          NewStatsHandler(sales.NewAggregator(ts.uow, time.UTC, logger), logger),
		Notifications:  NewNotificationHandler(notifications, hub, logger),
		Webinars:       NewWebinarHandler(webinar.NewService(ts.uow, ts.mail, notifications, 24*time.Hour, logger), logger),
		Users:          NewUserHandler(account.NewService(ts.uow, ts.mail, supportInbox, logger), logger),
		AuthMiddleware: apiMiddleware.NewAuthMiddleware(jwtService, logger),
		Logger:         logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	ts.handler = NewRouter(cfg)
	return ts
}

// seedUser stores a verified user with testPassword and returns it with an
// access token.
func (ts *testServer) seedUser(t *testing.T, email string, roles ...domain.Role) (*domain.User, string) {
	t.Helper()
	u, err := domain.NewUser("Test User", email, testPassword)
	require.NoError(t, err)
	hashed, err := ts.hasher.Hash(testPassword)
	require.NoError(t, err)
	u.Password, u.HashedPassword = "", hashed
	u.EmailVerified = true
	u.Roles = domain.MustRoleSet(append([]domain.Role{domain.RoleUser}, roles...)...)
	if u.Roles.Has(domain.RoleInstructor) {
		u.InstructorStatus = domain.InstructorApproved
	}
	require.NoError(t, ts.uow.Repositories().Users.Create(context.Background(), u))

	token, err := ts.jwt.GenerateToken(context.Background(), u.ID, u.Roles)
	require.NoError(t, err)
	return u, token
}

// seedCourse stores an approved course.
func (ts *testServer) seedCourse(t *testing.T, instructorID uuid.UUID, title, price string) *domain.Course {
	t.Helper()
	c, err := domain.NewCourse(instructorID, title, decimal.RequireFromString(price))
	require.NoError(t, err)
	c.Status = domain.CourseStatusApproved
	require.NoError(t, ts.uow.Repositories().Courses.Create(context.Background(), c))
	return c
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// errorBody decodes the error envelope every failure carries.
type errorBody struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id"`
}
