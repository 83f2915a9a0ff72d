package handlers

import (
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
	"crm-backend-refactor/pkg/reporting"
)

func newDashboardFixture() (*DashboardHandler, *database.MemoryDatabase) {
	cfg := &config.Config{Environment: "development"}
	db := database.NewMemoryDatabase()
	return NewDashboardHandler(cfg, db), db
}

func getJSON(t *testing.T, h http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRevenueOverviewAlwaysTwelveMonths(t *testing.T) {
	handler, db := newDashboardFixture()

	// 只有3月和7月有数据
	deals := []models.Deal{
		{ID: "d-1", Title: "A", Value: 1000, Stage: "closed_won", CreatedAt: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{ID: "d-2", Title: "B", Value: 500, Stage: "lead", CreatedAt: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)},
		{ID: "d-3", Title: "C", Value: 2500, Stage: "proposal", CreatedAt: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
	}
	for i := range deals {
		require.NoError(t, db.CreateDeal(&deals[i]))
	}

	rec := getJSON(t, handler.RevenueOverview, "/api/dashboard/revenue-overview?year=2024")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Year int                        `json:"year"`
		Data []reporting.MonthlyRevenue `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 2024, resp.Year)
	require.Len(t, resp.Data, 12)
	assert.Equal(t, "Jan", resp.Data[0].Month)
	assert.Equal(t, float64(0), resp.Data[0].Revenue)
	assert.Equal(t, "Mar", resp.Data[2].Month)
	assert.Equal(t, float64(1500), resp.Data[2].Revenue)
	assert.Equal(t, 2, resp.Data[2].Deals)
	assert.Equal(t, "Jul", resp.Data[6].Month)
	assert.Equal(t, float64(2500), resp.Data[6].Revenue)
	assert.Equal(t, "Dec", resp.Data[11].Month)
	assert.Equal(t, 0, resp.Data[11].Deals)
}

func TestRevenueOverviewRejectsBadYear(t *testing.T) {
	handler, _ := newDashboardFixture()

	rec := getJSON(t, handler.RevenueOverview, "/api/dashboard/revenue-overview?year=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeadSourceChartCanonicalSources(t *testing.T) {
	handler, db := newDashboardFixture()

	leads := []models.Lead{
		{ID: "l-1", Name: "A", Email: "a@x.com", Source: "Website", Status: models.LeadStatusNew},
		{ID: "l-2", Name: "B", Email: "b@x.com", Source: "Website", Status: models.LeadStatusNew},
		{ID: "l-3", Name: "C", Email: "c@x.com", Source: "Referral", Status: models.LeadStatusNew},
	}
	for i := range leads {
		require.NoError(t, db.CreateLead(&leads[i]))
	}

	rec := getJSON(t, handler.LeadSource, "/api/dashboard/lead-source")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []reporting.SourceCount `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Data, 5)
	bySource := map[string]reporting.SourceCount{}
	for _, s := range resp.Data {
		bySource[s.Source] = s
	}
	assert.Equal(t, 2, bySource["Website"].Count)
	assert.Equal(t, 67, bySource["Website"].Percentage)
	assert.Equal(t, 1, bySource["Referral"].Count)
	assert.Equal(t, 33, bySource["Referral"].Percentage)
	assert.Equal(t, 0, bySource["LinkedIn"].Count)
	assert.Equal(t, 0, bySource["Trade Show"].Count)
	assert.Equal(t, 0, bySource["Cold Call"].Count)
}

type countMetric struct {
	Count      int    `json:"count"`
	Change     string `json:"change"`
	ChangeType string `json:"changeType"`
}

type countResponse struct {
	Data struct {
		TotalLeads     countMetric `json:"totalLeads"`
		ActiveDeals    countMetric `json:"activeDeals"`
		ConversionRate countMetric `json:"conversionRate"`
		Revenue        struct {
			TotalRevenue float64 `json:"totalRevenue"`
			Change       string  `json:"change"`
			ChangeType   string  `json:"changeType"`
		} `json:"revenue"`
		TotalWon  int `json:"totalWon"`
		TotalLost int `json:"totalLost"`
	} `json:"data"`
}

func TestDashboardCountScopesMetricsToCurrentMonth(t *testing.T) {
	handler, db := newDashboardFixture()

	now := time.Now()
	prevMonth, _ := reporting.PreviousMonthRange(now)

	// 上月：1条已转化线索；本月：2条线索，其中1条已转化
	leads := []models.Lead{
		{ID: "l-1", Name: "A", Email: "a@x.com", Status: models.LeadStatusConverted, CreatedAt: prevMonth},
		{ID: "l-2", Name: "B", Email: "b@x.com", Status: models.LeadStatusNew, CreatedAt: now},
		{ID: "l-3", Name: "C", Email: "c@x.com", Status: models.LeadStatusConverted, CreatedAt: now},
	}
	for i := range leads {
		require.NoError(t, db.CreateLead(&leads[i]))
	}

	// 赢单在上月创建，本月收入不计入；进行中的交易在本月创建
	require.NoError(t, db.CreateDeal(&models.Deal{
		ID: "d-1", Title: "Won", Value: 100, Stage: "closed_won", CreatedAt: prevMonth,
	}))
	require.NoError(t, db.CreateDeal(&models.Deal{
		ID: "d-2", Title: "Open", Value: 500, Stage: "proposal", CreatedAt: now,
	}))

	rec := getJSON(t, handler.Count, "/api/dashboard/count")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp countResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 2, resp.Data.TotalLeads.Count)
	assert.Equal(t, "+100%", resp.Data.TotalLeads.Change)
	assert.Equal(t, "positive", resp.Data.TotalLeads.ChangeType)

	assert.Equal(t, 1, resp.Data.ActiveDeals.Count)
	assert.Equal(t, "+100%", resp.Data.ActiveDeals.Change)

	// 本月 1/2 = 50%，上月 1/1 = 100%，环比按比率计算
	assert.Equal(t, 50, resp.Data.ConversionRate.Count)
	assert.Equal(t, "-50%", resp.Data.ConversionRate.Change)
	assert.Equal(t, "negative", resp.Data.ConversionRate.ChangeType)

	assert.Equal(t, float64(0), resp.Data.Revenue.TotalRevenue)
	assert.Equal(t, "-100%", resp.Data.Revenue.Change)
	assert.Equal(t, "negative", resp.Data.Revenue.ChangeType)

	// 赢单/丢单总数不受月份窗口影响
	assert.Equal(t, 1, resp.Data.TotalWon)
	assert.Equal(t, 0, resp.Data.TotalLost)
}

func TestWonRevenueScopedByCreationMonth(t *testing.T) {
	_, db := newDashboardFixture()

	now := time.Now()
	prevStart, prevEnd := reporting.PreviousMonthRange(now)
	monthStart, monthEnd := reporting.MonthRange(now)

	require.NoError(t, db.CreateDeal(&models.Deal{
		ID: "d-1", Title: "Won early", Value: 100, Stage: "closed_won", CreatedAt: prevStart.Add(time.Hour),
	}))

	current, err := db.SumWonDealValueBetween(monthStart, monthEnd)
	require.NoError(t, err)
	assert.Equal(t, float64(0), current)

	previous, err := db.SumWonDealValueBetween(prevStart, prevEnd)
	require.NoError(t, err)
	assert.Equal(t, float64(100), previous)
}

func TestReportDataAggregates(t *testing.T) {
	handler, db := newDashboardFixture()

	require.NoError(t, db.CreateLead(&models.Lead{ID: "l-1", Name: "A", Email: "a@x.com", Status: models.LeadStatusConverted, Source: "Website"}))
	require.NoError(t, db.CreateLead(&models.Lead{ID: "l-2", Name: "B", Email: "b@x.com", Status: models.LeadStatusNew, Source: "Referral"}))
	require.NoError(t, db.CreateDeal(&models.Deal{ID: "d-1", Title: "A", Value: 100, Stage: "closed_won"}))
	require.NoError(t, db.CreateTask(&models.Task{ID: "t-1", Title: "T", Status: models.TaskStatusPending, DueDate: time.Now()}))

	rec := getJSON(t, handler.ReportData, "/api/dashboard/report-data")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Leads struct {
				Total          int            `json:"total"`
				ByStatus       map[string]int `json:"byStatus"`
				ConversionRate int            `json:"conversionRate"`
			} `json:"leads"`
			Deals struct {
				ByStage map[string]int `json:"byStage"`
			} `json:"deals"`
			Tasks struct {
				ByStatus map[string]int `json:"byStatus"`
			} `json:"tasks"`
			RevenueOverview []reporting.MonthlyRevenue `json:"revenueOverview"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 2, resp.Data.Leads.Total)
	assert.Equal(t, 50, resp.Data.Leads.ConversionRate)
	assert.Equal(t, 1, resp.Data.Deals.ByStage["closed_won"])
	assert.Equal(t, 1, resp.Data.Tasks.ByStatus["pending"])
	assert.Len(t, resp.Data.RevenueOverview, 12)
}
