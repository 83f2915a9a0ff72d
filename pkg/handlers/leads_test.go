package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/middleware"
	"crm-backend-refactor/pkg/models"
)

func newLeadsFixture() (*LeadsHandler, *database.MemoryDatabase) {
	cfg := &config.Config{Environment: "development"}
	db := database.NewMemoryDatabase()
	return NewLeadsHandler(cfg, db), db
}

func postJSONAs(t *testing.T, h http.HandlerFunc, path string, body interface{}, user *models.AuthUser) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, user))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func seedLeads(t *testing.T, db *database.MemoryDatabase) {
	t.Helper()
	leads := []models.Lead{
		{ID: "l-1", Name: "Acme intake", Email: "a@acme.com", Status: models.LeadStatusNew, TeamID: "member-1"},
		{ID: "l-2", Name: "Globex intake", Email: "b@globex.com", Status: models.LeadStatusQualified, TeamID: "member-1"},
		{ID: "l-3", Name: "Initech intake", Email: "c@initech.com", Status: models.LeadStatusQualified, TeamID: "member-2"},
		{ID: "l-4", Name: "Umbrella intake", Email: "d@umbrella.com", Status: models.LeadStatusConverted, TeamID: "member-2"},
	}
	for i := range leads {
		require.NoError(t, db.CreateLead(&leads[i]))
	}
}

type leadListResponse struct {
	Data       []models.Lead `json:"data"`
	Pagination struct {
		Total int `json:"total"`
	} `json:"pagination"`
	DashboardData map[string]int `json:"dashboardData"`
}

func TestLeadListAdminSeesAll(t *testing.T) {
	handler, db := newLeadsFixture()
	seedLeads(t, db)

	admin := &models.AuthUser{ID: "admin-1", Role: models.RoleAdmin}
	rec := postJSONAs(t, handler.List, "/api/leads/list", map[string]interface{}{"page": 1, "limit": 10}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp leadListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Pagination.Total)
	assert.Equal(t, 4, resp.DashboardData["totalLeads"])
	assert.Equal(t, 1, resp.DashboardData["newLeads"])
	assert.Equal(t, 2, resp.DashboardData["qualifiedLeads"])
	assert.Equal(t, 1, resp.DashboardData["convertedLeads"])
}

func TestLeadListScopesNonAdminToOwnLeads(t *testing.T) {
	handler, db := newLeadsFixture()
	seedLeads(t, db)

	member := &models.AuthUser{ID: "member-1", Role: models.RoleOrgAdmin}
	rec := postJSONAs(t, handler.List, "/api/leads/list", map[string]interface{}{"page": 1, "limit": 10}, member)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp leadListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Pagination.Total)
	for _, lead := range resp.Data {
		assert.Equal(t, "member-1", lead.TeamID)
	}
	assert.Equal(t, 2, resp.DashboardData["totalLeads"])
}

func TestLeadListStatusFilter(t *testing.T) {
	handler, db := newLeadsFixture()
	seedLeads(t, db)

	admin := &models.AuthUser{ID: "admin-1", Role: models.RoleAdmin}
	rec := postJSONAs(t, handler.List, "/api/leads/list", map[string]interface{}{
		"page": 1, "limit": 10, "status": models.LeadStatusQualified,
	}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp leadListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Pagination.Total)

	// "all" 不过滤
	rec = postJSONAs(t, handler.List, "/api/leads/list", map[string]interface{}{
		"page": 1, "limit": 10, "status": "all",
	}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Pagination.Total)
}

func TestLeadListClampsLimit(t *testing.T) {
	handler, db := newLeadsFixture()
	for i := 0; i < 120; i++ {
		lead := models.Lead{
			ID:     fmt.Sprintf("lead-%d", i),
			Name:   "Bulk lead",
			Email:  fmt.Sprintf("bulk%d@acme.com", i),
			Status: models.LeadStatusNew,
		}
		require.NoError(t, db.CreateLead(&lead))
	}

	admin := &models.AuthUser{ID: "admin-1", Role: models.RoleAdmin}
	rec := postJSONAs(t, handler.List, "/api/leads/list", map[string]interface{}{"page": 1, "limit": 500}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp leadListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 100)
	assert.Equal(t, 120, resp.Pagination.Total)
}

func TestLeadStatusUpdate(t *testing.T) {
	handler, db := newLeadsFixture()
	seedLeads(t, db)

	rec := postJSONAs(t, handler.StatusUpdate, "/api/leads/status/update", map[string]interface{}{
		"leadId": "l-1",
		"status": models.LeadStatusQualified,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := db.GetLead("l-1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusQualified, stored.Status)
}

func TestLeadStatusUpdateNotFound(t *testing.T) {
	handler, _ := newLeadsFixture()

	rec := postJSONAs(t, handler.StatusUpdate, "/api/leads/status/update", map[string]interface{}{
		"leadId": "missing",
		"status": models.LeadStatusQualified,
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeadSaveRequiresNameAndEmail(t *testing.T) {
	handler, _ := newLeadsFixture()

	rec := postJSONAs(t, handler.Save, "/api/leads/save", map[string]interface{}{
		"name": "No email",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
