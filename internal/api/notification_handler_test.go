package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/realtime"
)

func TestNotificationInbox(t *testing.T) {
	t.Parallel()
	f := newPurchaseFixture(t)
	ts := f.ts
	_, secondToken := ts.seedUser(t, "second@example.com")
	reviewsPath := "/api/courses/" + f.course.ID.String() + "/reviews"

	f.buy(t)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, reviewsPath, f.studentToken, ReviewRequest{Rating: 5}).Code)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, reviewsPath, secondToken, ReviewRequest{Rating: 4}).Code)

	rec := ts.do(t, http.MethodGet, "/api/notifications?unread=true", f.instructorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decode[domain.Page[domain.Notification]](t, rec)
	require.Equal(t, 3, inbox.Total)
	for _, n := range inbox.Items {
		assert.Equal(t, f.instructor.ID, n.RecipientID)
		assert.False(t, n.Read)
	}

	first := "/api/notifications/" + inbox.Items[0].ID.String() + "/read"
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPatch, first, f.studentToken, nil).Code)
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPatch, first, f.instructorToken, nil).Code)

	rec = ts.do(t, http.MethodGet, "/api/notifications?unread=true", f.instructorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[domain.Page[domain.Notification]](t, rec).Total)

	rec = ts.do(t, http.MethodPatch, "/api/notifications/read", f.instructorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MarkAllReadResponse{Updated: 2}, decode[MarkAllReadResponse](t, rec))

	rec = ts.do(t, http.MethodGet, "/api/notifications", f.instructorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[domain.Page[domain.Notification]](t, rec).Total, "read notifications stay listed")

	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/api/admin/notifications", f.instructorToken, nil).Code)
	rec = ts.do(t, http.MethodGet, "/api/admin/notifications?limit=2", f.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[domain.Page[domain.Notification]](t, rec)
	assert.Equal(t, 3, all.Total)
	assert.Len(t, all.Items, 2)

	rec = ts.do(t, http.MethodGet, "/api/notifications?page=-1", f.instructorToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationPush(t *testing.T) {
	t.Parallel()
	f := newPurchaseFixture(t)
	ts := f.ts

	server := httptest.NewServer(ts.handler)
	t.Cleanup(server.Close)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err, "a token is required")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+f.instructorToken, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer func() { _ = conn.Close() }()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello realtime.Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello.Type)
	require.Eventually(t, func() bool { return ts.hub.Connections(f.instructor.ID) == 1 },
		time.Second, 10*time.Millisecond)

	f.buy(t)

	var msg struct {
		Type string              `json:"type"`
		Data domain.Notification `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, domain.NotifyEnrollment, msg.Data.Type)
	assert.Equal(t, f.course.ID, *msg.Data.CourseID)
}
