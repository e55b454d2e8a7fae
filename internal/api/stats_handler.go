package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/api/shared"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/service/sales"
)

var errForeignStats = fmt.Errorf("%w: only admins may query another owner's sales", domain.ErrUnauthorized)

// StatsHandler serves sales reports.
type StatsHandler struct {
	sales  *sales.Aggregator
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(aggregator *sales.Aggregator, logger *slog.Logger) *StatsHandler {
	if aggregator == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("sales aggregator cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandler{sales: aggregator, logger: logger.With(slog.String("component", "stats_handler"))}
}

// Sales handles GET /api/stats/sales?period=&scope=&owner_id=.
//
// The owner defaults to the caller. Scope instructor sums the sales of the
// owner's courses; scope user sums the owner's purchases.
func (h *StatsHandler) Sales(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	period, err := domain.ParsePeriod(q.Get("period"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	scope, err := domain.ParseSalesScope(q.Get("scope"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	ownerID, err := queryUUID(r, "owner_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if ownerID == uuid.Nil {
		ownerID = actor.ID
	}
	if !actor.CanManage(ownerID) {
		HandleAPIError(w, r, errForeignStats, "")
		return
	}

	report, err := h.sales.Aggregate(r.Context(), ownerID, scope, period)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to aggregate sales")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, report)
}
