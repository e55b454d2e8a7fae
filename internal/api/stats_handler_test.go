package api

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/pantognostis-api/internal/domain"
)

func TestSalesReport(t *testing.T) {
	t.Parallel()
	f := newPurchaseFixture(t)
	ts := f.ts
	f.buy(t)
	price := decimal.RequireFromString("49.99")

	rec := ts.do(t, http.MethodGet, "/api/stats/sales?period=weekly", f.instructorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[domain.SalesReport](t, rec)
	assert.Equal(t, f.instructor.ID, report.OwnerID)
	assert.Equal(t, domain.ScopeInstructor, report.Scope)
	require.Len(t, report.Buckets, 7)
	assert.True(t, price.Equal(report.Buckets[6].Amount), "today holds the sale")
	assert.Equal(t, 1, report.Buckets[6].Count)
	assert.True(t, price.Equal(report.TotalAmount))
	assert.Equal(t, 1, report.TotalCount)

	// The buyer's own spending
	rec = ts.do(t, http.MethodGet, "/api/stats/sales?period=yearly&scope=user", f.studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	spent := decode[domain.SalesReport](t, rec)
	assert.Len(t, spent.Buckets, 12)
	assert.Equal(t, 1, spent.TotalCount)

	path := "/api/stats/sales?owner_id=" + f.instructor.ID.String()
	rec = ts.do(t, http.MethodGet, path, f.studentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodGet, path, f.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[domain.SalesReport](t, rec).TotalCount)

	rec = ts.do(t, http.MethodGet, "/api/stats/sales?period=daily", f.instructorToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/stats/sales", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
