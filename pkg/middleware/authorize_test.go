package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend-refactor/pkg/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithUser(t *testing.T, user *models.AuthUser) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), UserContextKey, user))
	}
	return req
}

func envelopeMessage(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Response struct {
			ResponseStatus  int    `json:"responseStatus"`
			ResponseMessage string `json:"responseMessage"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Response.ResponseMessage
}

func TestAdminOnlyAllowsAdmin(t *testing.T) {
	rec := httptest.NewRecorder()
	req := requestWithUser(t, &models.AuthUser{ID: "u1", Role: models.RoleAdmin})

	AdminOnly(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminOnlyRejectsOtherRoles(t *testing.T) {
	for _, role := range []models.Role{models.RoleManager, models.RoleTeamMember, models.RoleOrgAdmin} {
		rec := httptest.NewRecorder()
		req := requestWithUser(t, &models.AuthUser{ID: "u1", Role: role})

		AdminOnly(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code, "role %s", role)
		assert.Equal(t, "Admin access required", envelopeMessage(t, rec.Body.Bytes()))
	}
}

func TestAdminOnlyWithoutUser(t *testing.T) {
	rec := httptest.NewRecorder()
	req := requestWithUser(t, nil)

	AdminOnly(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrgAdminOrAdmin(t *testing.T) {
	allowed := []models.Role{models.RoleAdmin, models.RoleOrgAdmin}
	for _, role := range allowed {
		rec := httptest.NewRecorder()
		req := requestWithUser(t, &models.AuthUser{ID: "u1", Role: role})

		OrgAdminOrAdmin(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "role %s", role)
	}

	denied := []models.Role{models.RoleManager, models.RoleTeamMember}
	for _, role := range denied {
		rec := httptest.NewRecorder()
		req := requestWithUser(t, &models.AuthUser{ID: "u1", Role: role})

		OrgAdminOrAdmin(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code, "role %s", role)
		assert.Equal(t, "Access denied", envelopeMessage(t, rec.Body.Bytes()))
	}
}

func TestSelfOrAdmin(t *testing.T) {
	router := chi.NewRouter()
	router.With(SelfOrAdmin("id")).Get("/members/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// 本人访问自己的资源
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/members/u1", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserContextKey, &models.AuthUser{ID: "u1", Role: models.RoleTeamMember}))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// admin 访问他人资源
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/members/u1", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserContextKey, &models.AuthUser{ID: "admin-1", Role: models.RoleAdmin}))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// 非 admin 访问他人资源
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/members/u1", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserContextKey, &models.AuthUser{ID: "u2", Role: models.RoleManager}))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You can only access your own resources", envelopeMessage(t, rec.Body.Bytes()))
}
