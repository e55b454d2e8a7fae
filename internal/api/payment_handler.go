package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/api/shared"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/service/enrollment"
)

// PaymentHandler handles checkout, payment confirmation and ledger requests.
type PaymentHandler struct {
	enrollments *enrollment.Service
	logger      *slog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(enrollmentService *enrollment.Service, logger *slog.Logger) *PaymentHandler {
	if enrollmentService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("enrollment service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentHandler{
		enrollments: enrollmentService,
		logger:      logger.With(slog.String("component", "payment_handler")),
	}
}

// CreateIntent handles POST /api/payments/intents. The client completes the
// payment with the returned client secret and then calls ConfirmPayment.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req CreateIntentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	intent, err := h.enrollments.CreateIntent(r.Context(), actor.ID, req.CourseID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start checkout")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, intent)
}

// GetIntent handles GET /api/payments/intents/{id}. Intents created for
// another user are reported as missing unless the caller is an admin.
func (h *PaymentHandler) GetIntent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	ref := chi.URLParam(r, "id")
	if ref == "" {
		HandleAPIError(w, r, domain.NewValidationError("id", "is required", domain.ErrValidation), "")
		return
	}

	intent, err := h.enrollments.GetIntent(r.Context(), ref)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get payment")
		return
	}
	if !actor.IsAdmin() && intent.Metadata[enrollment.MetadataUserID] != actor.ID.String() {
		HandleAPIError(w, r, enrollment.ErrPaymentNotFound, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, intent)
}

// ListIntents handles GET /api/payments/intents (admin).
func (h *PaymentHandler) ListIntents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", domain.DefaultPageSize)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	intents, err := h.enrollments.ListIntents(r.Context(), limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list payments")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, intents)
}

// ConfirmPayment handles POST /api/payments/confirm. Confirming the same
// payment again succeeds with already_recorded set and writes nothing.
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ConfirmPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.enrollments.ConfirmEnrollment(r.Context(), req.PaymentIntentID, actor.ID, req.CourseID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to confirm payment")
		return
	}
	h.respondResult(w, r, result)
}

// SaveCard handles POST /api/payments/cards.
func (h *PaymentHandler) SaveCard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req SaveCardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.enrollments.SaveCard(r.Context(), actor.ID, req.Token); err != nil {
		HandleAPIError(w, r, err, "Failed to save card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Card saved"})
}

// ConfirmSavedCard handles POST /api/payments/confirm-saved-card.
func (h *PaymentHandler) ConfirmSavedCard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ConfirmSavedCardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.enrollments.ConfirmWithSavedCard(r.Context(), actor.ID, req.CourseID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to charge saved card")
		return
	}
	h.respondResult(w, r, result)
}

func (h *PaymentHandler) respondResult(w http.ResponseWriter, r *http.Request, result *enrollment.Result) {
	status := http.StatusCreated
	if result.AlreadyRecorded {
		status = http.StatusOK
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("payment confirmed",
		slog.String("transaction_id", result.Transaction.ID.String()),
		slog.Bool("already_recorded", result.AlreadyRecorded),
		slog.Bool("newly_enrolled", result.NewlyEnrolled))
	shared.RespondWithJSON(w, r, status, result)
}

// ListTransactions handles GET /api/transactions (admin).
func (h *PaymentHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q, ok := ledgerQuery(w, r)
	if !ok {
		return
	}
	txs, err := h.enrollments.Transactions(r.Context(), q)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list transactions")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, txs)
}

// UserTransactions handles GET /api/users/{id}/transactions: the entries the
// user paid for. Users see their own; admins see anyone's.
func (h *PaymentHandler) UserTransactions(w http.ResponseWriter, r *http.Request) {
	h.ownedLedger(w, r, h.enrollments.UserTransactions)
}

// InstructorTransactions handles GET /api/instructors/{id}/transactions: the
// entries for courses the instructor teaches.
func (h *PaymentHandler) InstructorTransactions(w http.ResponseWriter, r *http.Request) {
	h.ownedLedger(w, r, h.enrollments.InstructorTransactions)
}

type ledgerLookup func(ctx context.Context, ownerID uuid.UUID, q enrollment.LedgerQuery) ([]*domain.Transaction, error)

func (h *PaymentHandler) ownedLedger(w http.ResponseWriter, r *http.Request, lookup ledgerLookup) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	ownerID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if !actor.CanManage(ownerID) {
		HandleAPIError(w, r, errForeignLedger, "")
		return
	}
	q, ok := ledgerQuery(w, r)
	if !ok {
		return
	}

	txs, err := lookup(r.Context(), ownerID, q)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list transactions")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, txs)
}

var errForeignLedger = fmt.Errorf("%w: ledger belongs to another user", domain.ErrUnauthorized)

// ledgerQuery reads the from, to, limit and offset query parameters.
func ledgerQuery(w http.ResponseWriter, r *http.Request) (enrollment.LedgerQuery, bool) {
	from, err := queryTime(r, "from")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return enrollment.LedgerQuery{}, false
	}
	to, err := queryTime(r, "to")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return enrollment.LedgerQuery{}, false
	}
	limit, err := queryInt(r, "limit", domain.DefaultPageSize)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return enrollment.LedgerQuery{}, false
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return enrollment.LedgerQuery{}, false
	}
	return enrollment.LedgerQuery{From: from, To: to, Limit: limit, Offset: offset}, true
}
