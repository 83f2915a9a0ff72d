package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/pipeline"
)

type dealEnvelope struct {
	Response struct {
		ResponseStatus  int    `json:"responseStatus"`
		ResponseMessage string `json:"responseMessage"`
	} `json:"response"`
	Data models.Deal `json:"data"`
}

func newDealsFixture() (*DealsHandler, *database.MemoryDatabase) {
	cfg := &config.Config{Environment: "development"}
	db := database.NewMemoryDatabase()
	return NewDealsHandler(cfg, db), db
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestDealSaveSeedsStageHistory(t *testing.T) {
	handler, _ := newDealsFixture()

	rec := postJSON(t, handler.Save, "/api/deals/save", map[string]interface{}{
		"title": "Enterprise license",
		"value": 50000,
		"stage": "proposal",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dealEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Response.ResponseStatus)

	assert.Equal(t, "proposal", resp.Data.Stage)
	assert.Equal(t, 60, resp.Data.Probability)
	require.Len(t, resp.Data.StageHistory, 1)
	assert.Equal(t, "Stage created to Proposal", resp.Data.StageHistory[0].Message)
}

func TestDealSaveWithoutStageSkipsPipeline(t *testing.T) {
	handler, db := newDealsFixture()

	rec := postJSON(t, handler.Save, "/api/deals/save", map[string]interface{}{
		"title": "Starter plan",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dealEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "", resp.Data.Stage)
	assert.Equal(t, 0, resp.Data.Probability)
	assert.Empty(t, resp.Data.StageHistory)

	stored, err := db.GetDeal(resp.Data.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.StageHistory)
}

func TestDealSaveUnknownStageSkipsPipeline(t *testing.T) {
	handler, _ := newDealsFixture()

	rec := postJSON(t, handler.Save, "/api/deals/save", map[string]interface{}{
		"title": "Starter plan",
		"stage": "daydreaming",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dealEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "daydreaming", resp.Data.Stage)
	assert.Equal(t, 0, resp.Data.Probability)
	assert.Empty(t, resp.Data.StageHistory)
}

func seedDeal(t *testing.T, db *database.MemoryDatabase, stage string) *models.Deal {
	t.Helper()
	deal := &models.Deal{
		ID:    "d-1",
		Title: "Renewal",
		Value: 12000,
		Stage: stage,
	}
	pipeline.Initialize(deal, time.Now())
	require.NoError(t, db.CreateDeal(deal))
	return deal
}

func TestDealStageUpdateAppendsHistory(t *testing.T) {
	handler, db := newDealsFixture()
	seedDeal(t, db, "proposal")

	rec := postJSON(t, handler.StageUpdate, "/api/deals/stage/update", map[string]interface{}{
		"_id":   "d-1",
		"stage": "closed_won",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp dealEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Deal stage updated successfully", resp.Response.ResponseMessage)
	assert.Equal(t, "closed_won", resp.Data.Stage)
	assert.Equal(t, 100, resp.Data.Probability)
	require.Len(t, resp.Data.StageHistory, 2)
	assert.Equal(t, "Stage created to Proposal", resp.Data.StageHistory[0].Message)
	assert.Equal(t, "Stage updated to Closed Won", resp.Data.StageHistory[1].Message)

	// 持久化结果一致
	stored, err := db.GetDeal("d-1")
	require.NoError(t, err)
	assert.Len(t, stored.StageHistory, 2)
	assert.Equal(t, 100, stored.Probability)
}

func TestDealStageUpdateAcceptsPlainID(t *testing.T) {
	handler, db := newDealsFixture()
	seedDeal(t, db, "lead")

	rec := postJSON(t, handler.StageUpdate, "/api/deals/stage/update", map[string]interface{}{
		"id":    "d-1",
		"stage": "qualified",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := db.GetDeal("d-1")
	require.NoError(t, err)
	assert.Equal(t, "qualified", stored.Stage)
	assert.Equal(t, 40, stored.Probability)
}

func TestDealStageUpdateNotFound(t *testing.T) {
	handler, db := newDealsFixture()
	seedDeal(t, db, "proposal")

	rec := postJSON(t, handler.StageUpdate, "/api/deals/stage/update", map[string]interface{}{
		"_id":   "missing",
		"stage": "closed_won",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 已有交易不受影响
	stored, err := db.GetDeal("d-1")
	require.NoError(t, err)
	assert.Equal(t, "proposal", stored.Stage)
	assert.Len(t, stored.StageHistory, 1)
}

func TestDealStageUpdateRejectsUnknownStage(t *testing.T) {
	handler, db := newDealsFixture()
	seedDeal(t, db, "negotiation")

	rec := postJSON(t, handler.StageUpdate, "/api/deals/stage/update", map[string]interface{}{
		"_id":   "d-1",
		"stage": "imaginary",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stored, err := db.GetDeal("d-1")
	require.NoError(t, err)
	assert.Equal(t, "negotiation", stored.Stage)
	assert.Equal(t, 75, stored.Probability)
	assert.Len(t, stored.StageHistory, 1)
}

func TestDealStageUpdateRequiresIDAndStage(t *testing.T) {
	handler, _ := newDealsFixture()

	rec := postJSON(t, handler.StageUpdate, "/api/deals/stage/update", map[string]interface{}{
		"stage": "qualified",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, handler.StageUpdate, "/api/deals/stage/update", map[string]interface{}{
		"_id": "d-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDealListPagination(t *testing.T) {
	handler, db := newDealsFixture()
	for i := 0; i < 15; i++ {
		deal := &models.Deal{
			ID:    "deal-" + string(rune('a'+i)),
			Title: "Deal",
			Stage: "lead",
		}
		pipeline.Initialize(deal, time.Now())
		require.NoError(t, db.CreateDeal(deal))
	}

	rec := postJSON(t, handler.List, "/api/deals/list", map[string]interface{}{
		"page":  1,
		"limit": 10,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []models.Deal `json:"data"`
		Pagination struct {
			Total      int `json:"total"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 10)
	assert.Equal(t, 15, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
}

func TestDealListRejectsInvalidPage(t *testing.T) {
	handler, _ := newDealsFixture()

	rec := postJSON(t, handler.List, "/api/deals/list", map[string]interface{}{
		"page":  0,
		"limit": 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
