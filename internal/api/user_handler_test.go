package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/pantognostis-api/internal/domain"
)

func TestUserDirectory(t *testing.T) {
	t.Parallel()
	f := newPurchaseFixture(t)
	ts := f.ts
	ts.seedUser(t, "second-teacher@example.com", domain.RoleInstructor)

	for _, path := range []string{"/api/admin/users", "/api/admin/instructors"} {
		assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, path, "", nil).Code, path)
		assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, path, f.studentToken, nil).Code, path)
		assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, path, f.instructorToken, nil).Code, path)
	}

	rec := ts.do(t, http.MethodGet, "/api/admin/users?limit=2", f.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[domain.Page[domain.User]](t, rec)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)

	rec = ts.do(t, http.MethodGet, "/api/admin/instructors", f.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	instructors := decode[domain.Page[domain.User]](t, rec)
	assert.Equal(t, 2, instructors.Total)
	for _, u := range instructors.Items {
		assert.True(t, u.Roles.Has(domain.RoleInstructor), u.Email)
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/users?search=STUDENT", f.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[domain.Page[domain.User]](t, rec)
	require.Len(t, found.Items, 1)
	assert.Equal(t, f.student.ID, found.Items[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/admin/users?page=-1", f.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUserVisibility(t *testing.T) {
	t.Parallel()
	f := newPurchaseFixture(t)
	ts := f.ts
	studentPath := "/api/users/" + f.student.ID.String()

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, studentPath, "", nil).Code)

	rec := ts.do(t, http.MethodGet, studentPath, f.studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, f.student.Email, decode[domain.User](t, rec).Email)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ts.do(t, http.MethodGet, studentPath, f.instructorToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "other accounts look absent")
	assert.Equal(t, "User not found", decode[errorBody](t, rec).Error)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, studentPath, f.adminToken, nil).Code)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()
	f := newPurchaseFixture(t)
	ts := f.ts

	rec := ts.do(t, http.MethodPut, "/api/me", "", ProfileRequest{Name: "Ada"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/me", f.studentToken, ProfileRequest{
		Name: "  Ada Lovelace ", Profession: "Engineer", CompanyName: "Analytical Engines",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.User](t, rec)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Equal(t, "Engineer", updated.Profession)
	assert.Equal(t, "Analytical Engines", updated.Company)

	rec = ts.do(t, http.MethodPut, "/api/me", f.studentToken, ProfileRequest{Phone: "+44 20 7946 0000"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada Lovelace", decode[domain.User](t, rec).Name, "blank fields keep their value")

	rec = ts.do(t, http.MethodGet, "/api/me", f.studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[domain.User](t, rec)
	assert.Equal(t, "+44 20 7946 0000", me.Phone)
	assert.Equal(t, "Engineer", me.Profession)

	rec = ts.do(t, http.MethodPut, "/api/me", f.studentToken, ProfileRequest{Profession: strings.Repeat("x", 121)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminUpdateUser(t *testing.T) {
	t.Parallel()
	f := newPurchaseFixture(t)
	ts := f.ts
	admin, adminToken := ts.seedUser(t, "root@example.com", domain.RoleAdmin)
	studentPath := "/api/admin/users/" + f.student.ID.String()
	locked := true

	rec := ts.do(t, http.MethodPatch, studentPath, f.instructorToken, AdminUpdateUserRequest{Locked: &locked})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	login := LoginRequest{Email: f.student.Email, Password: testPassword}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/auth/login", "", login).Code)

	rec = ts.do(t, http.MethodPatch, studentPath, adminToken, AdminUpdateUserRequest{
		ProfileRequest: ProfileRequest{Name: "Renamed Student"},
		Locked:         &locked,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[domain.User](t, rec)
	assert.True(t, got.Locked)
	assert.True(t, got.Active, "absent flags are left alone")
	assert.Equal(t, "Renamed Student", got.Name)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", login)
	assert.Equal(t, http.StatusForbidden, rec.Code, "locked accounts cannot sign in")

	unlocked := false
	rec = ts.do(t, http.MethodPatch, studentPath, adminToken, AdminUpdateUserRequest{Locked: &unlocked})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/auth/login", "", login).Code)

	inactive := false
	rec = ts.do(t, http.MethodPatch, "/api/admin/users/"+admin.ID.String(), adminToken, AdminUpdateUserRequest{Active: &inactive})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "admins cannot disable themselves")

	rec = ts.do(t, http.MethodPatch, "/api/admin/users/00000000-0000-0000-0000-000000000001", adminToken,
		AdminUpdateUserRequest{Locked: &locked})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContactSupport(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/support", "", ContactSupportRequest{
		Name:    "Grace",
		Email:   "Grace@Example.com",
		Phone:   "555-0100",
		Message: "I cannot find my <b>certificate</b>",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "Your message has been sent to support", decode[MessageResponse](t, rec).Message)

	sent := ts.mail.to(supportInbox)
	require.Len(t, sent, 1)
	assert.Equal(t, "Support Request from Grace", sent[0].subject)
	assert.Equal(t, "grace@example.com", sent[0].replyTo)
	assert.Contains(t, sent[0].body, "555-0100")
	assert.NotContains(t, sent[0].body, "<b>certificate</b>")

	tests := []struct {
		name string
		body any
	}{
		{name: "missing message", body: ContactSupportRequest{Name: "Grace", Email: "grace@example.com"}},
		{name: "bad email", body: ContactSupportRequest{Name: "Grace", Email: "grace", Message: "hi"}},
		{name: "missing name", body: ContactSupportRequest{Email: "grace@example.com", Message: "hi"}},
		{name: "message too long", body: ContactSupportRequest{
			Name: "Grace", Email: "grace@example.com", Message: strings.Repeat("a", 5001),
		}},
		{name: "empty body", body: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/support", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
	assert.Len(t, ts.mail.to(supportInbox), 1, "rejected requests send nothing")
}
