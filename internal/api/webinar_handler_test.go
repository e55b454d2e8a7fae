package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/pantognostis-api/internal/domain"
)

func TestWebinarLifecycle(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	_, hostToken := ts.seedUser(t, "host@example.com", domain.RoleInstructor)
	_, studentToken := ts.seedUser(t, "student@example.com")

	req := WebinarRequest{
		Title:    "Profiling Go services",
		StartsAt: time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second),
		HostName: "Rob",
		Link:     "https://meet.example.com/pprof",
	}

	rec := ts.do(t, http.MethodPost, "/api/webinars", studentToken, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	past := req
	past.StartsAt = time.Now().Add(-time.Hour)
	rec = ts.do(t, http.MethodPost, "/api/webinars", hostToken, past)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid starts_at: start time must be in the future", decode[errorBody](t, rec).Error)

	rec = ts.do(t, http.MethodPost, "/api/webinars", hostToken, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	webinar := decode[domain.Webinar](t, rec)
	assert.True(t, req.StartsAt.Equal(webinar.StartsAt))

	rec = ts.do(t, http.MethodGet, "/api/webinars", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Webinar](t, rec), 1)

	path := "/api/webinars/" + webinar.ID.String()
	rec = ts.do(t, http.MethodPost, path+"/register", studentToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, RegistrationResponse{Registered: true}, decode[RegistrationResponse](t, rec))

	rec = ts.do(t, http.MethodPost, path+"/register", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RegistrationResponse{Registered: true, AlreadyRegistered: true}, decode[RegistrationResponse](t, rec))

	rec = ts.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[domain.Webinar](t, rec).WatcherCount)

	// The host was told once
	rec = ts.do(t, http.MethodGet, "/api/notifications", hostToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[domain.Page[domain.Notification]](t, rec).Total)

	moved := req
	moved.Title = "Profiling Go services, part one"
	rec = ts.do(t, http.MethodPut, path, studentToken, moved)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodPut, path, hostToken, moved)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, moved.Title, decode[domain.Webinar](t, rec).Title)

	rec = ts.do(t, http.MethodDelete, path, hostToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, path+"/register", studentToken, nil).Code)
}
