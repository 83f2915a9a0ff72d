package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/models"
)

func newTeamsFixture() (*TeamsHandler, *database.MemoryDatabase) {
	cfg := &config.Config{Environment: "development"}
	db := database.NewMemoryDatabase()
	return NewTeamsHandler(cfg, db), db
}

type teamEnvelope struct {
	Response struct {
		ResponseStatus  int    `json:"responseStatus"`
		ResponseMessage string `json:"responseMessage"`
	} `json:"response"`
	Data      models.TeamMember `json:"data"`
	EmailSent bool              `json:"emailSent"`
}

func TestTeamSaveDefaultsToAdminRole(t *testing.T) {
	handler, db := newTeamsFixture()

	rec := postJSON(t, handler.Save, "/api/team/save", map[string]interface{}{
		"name":        "Dana",
		"email":       "dana@example.com",
		"phoneNumber": "5550001234",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp teamEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.RoleAdmin, resp.Data.Role)
	assert.Equal(t, "ADM_001", resp.Data.CustomerID)
	// SMTP未配置，欢迎邮件降级为日志
	assert.False(t, resp.EmailSent)

	stored, err := db.GetTeamMemberByID(resp.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, stored.Role)
}

func TestTeamSaveSequencesCustomerIDPerRole(t *testing.T) {
	handler, _ := newTeamsFixture()

	save := func(email, phone string, role models.Role) teamEnvelope {
		rec := postJSON(t, handler.Save, "/api/team/save", map[string]interface{}{
			"name":        "Member",
			"email":       email,
			"phoneNumber": phone,
			"role":        string(role),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		var resp teamEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	first := save("a@example.com", "5550000001", models.RoleTeamMember)
	second := save("b@example.com", "5550000002", models.RoleTeamMember)
	other := save("c@example.com", "5550000003", models.RoleOrgAdmin)

	assert.Equal(t, "TM_001", first.Data.CustomerID)
	assert.Equal(t, "TM_002", second.Data.CustomerID)
	assert.Equal(t, "ORG_001", other.Data.CustomerID)
}

func TestTeamSaveRejectsUnknownRole(t *testing.T) {
	handler, _ := newTeamsFixture()

	rec := postJSON(t, handler.Save, "/api/team/save", map[string]interface{}{
		"name":        "Dana",
		"email":       "dana@example.com",
		"phoneNumber": "5550001234",
		"role":        "superuser",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTeamSaveRejectsDuplicateEmail(t *testing.T) {
	handler, db := newTeamsFixture()
	require.NoError(t, db.CreateTeamMember(&models.TeamMember{
		ID: "m-1", Name: "Dana", Email: "dana@example.com", PhoneNumber: "5550009999",
	}))

	rec := postJSON(t, handler.Save, "/api/team/save", map[string]interface{}{
		"name":        "Other",
		"email":       "dana@example.com",
		"phoneNumber": "5550001234",
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp teamEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Email already exists", resp.Response.ResponseMessage)
}
