package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/pipeline"
	"crm-backend-refactor/pkg/reporting"
	"crm-backend-refactor/pkg/utils"
)

// DashboardHandler 看板与报表处理器
type DashboardHandler struct {
	config *config.Config
	db     database.CRMDatabase
}

// NewDashboardHandler 创建看板处理器
func NewDashboardHandler(cfg *config.Config, db database.CRMDatabase) *DashboardHandler {
	return &DashboardHandler{config: cfg, db: db}
}

// metric 带环比的统计块
func metric(count interface{}, change reporting.Change) utils.Payload {
	return utils.Payload{
		"count":      count,
		"change":     change.Change,
		"changeType": change.ChangeType,
	}
}

// revenueMetric 收入统计块，历史接口用 totalRevenue 而不是 count
func revenueMetric(total float64, change reporting.Change) utils.Payload {
	return utils.Payload{
		"totalRevenue": total,
		"change":       change.Change,
		"changeType":   change.ChangeType,
	}
}

// Count 首页看板：每项指标取本自然月的值，环比上个自然月
func (h *DashboardHandler) Count(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	monthStart, monthEnd := reporting.MonthRange(now)
	prevStart, prevEnd := reporting.PreviousMonthRange(now)

	// 线索
	leadsThisMonth, err := h.db.CountLeadsCreatedBetween("", monthStart, monthEnd)
	if err != nil {
		h.fail(w, "count leads this month", err)
		return
	}
	leadsPrevMonth, err := h.db.CountLeadsCreatedBetween("", prevStart, prevEnd)
	if err != nil {
		h.fail(w, "count leads previous month", err)
		return
	}

	// 进行中的交易
	dealsThisMonth, err := h.db.CountActiveDealsBetween(monthStart, monthEnd)
	if err != nil {
		h.fail(w, "count active deals this month", err)
		return
	}
	dealsPrevMonth, err := h.db.CountActiveDealsBetween(prevStart, prevEnd)
	if err != nil {
		h.fail(w, "count active deals previous month", err)
		return
	}

	// 赢单收入
	revenueThisMonth, err := h.db.SumWonDealValueBetween(monthStart, monthEnd)
	if err != nil {
		h.fail(w, "sum revenue this month", err)
		return
	}
	revenuePrevMonth, err := h.db.SumWonDealValueBetween(prevStart, prevEnd)
	if err != nil {
		h.fail(w, "sum revenue previous month", err)
		return
	}

	// 转化率：环比比较的是两个月各自的比率，不是原始转化数
	convertedThisMonth, err := h.db.CountLeadsCreatedBetween(models.LeadStatusConverted, monthStart, monthEnd)
	if err != nil {
		h.fail(w, "count converted leads this month", err)
		return
	}
	convertedPrevMonth, err := h.db.CountLeadsCreatedBetween(models.LeadStatusConverted, prevStart, prevEnd)
	if err != nil {
		h.fail(w, "count converted leads previous month", err)
		return
	}
	conversionRate := reporting.ConversionRate(convertedThisMonth, leadsThisMonth)
	conversionRatePrev := reporting.ConversionRate(convertedPrevMonth, leadsPrevMonth)

	totalWon, err := h.db.CountDealsByStage(string(pipeline.StageClosedWon))
	if err != nil {
		h.fail(w, "count won deals", err)
		return
	}
	totalLost, err := h.db.CountDealsByStage(string(pipeline.StageClosedLost))
	if err != nil {
		h.fail(w, "count lost deals", err)
		return
	}

	data := utils.Payload{
		"totalLeads":  metric(leadsThisMonth, reporting.PercentChange(float64(leadsThisMonth), float64(leadsPrevMonth))),
		"activeDeals": metric(dealsThisMonth, reporting.PercentChange(float64(dealsThisMonth), float64(dealsPrevMonth))),
		"revenue":     revenueMetric(revenueThisMonth, reporting.PercentChange(revenueThisMonth, revenuePrevMonth)),
		"conversionRate": metric(
			conversionRate,
			reporting.PercentChange(float64(conversionRate), float64(conversionRatePrev)),
		),
		"totalWon":  totalWon,
		"totalLost": totalLost,
	}

	utils.WriteOK(w, "Dashboard data fetched successfully", utils.Payload{"data": data})
}

// RevenueOverview 指定年份的逐月收入曲线（12个月全量返回）
func (h *DashboardHandler) RevenueOverview(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if raw := utils.GetQueryParam(r, "year", ""); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.WriteBadRequest(w, "Invalid year value")
			return
		}
		year = parsed
	}

	totals, err := h.db.RevenueByMonth(year)
	if err != nil {
		h.fail(w, "aggregate revenue by month", err)
		return
	}

	utils.WriteOK(w, "Revenue overview fetched successfully", utils.Payload{
		"year": year,
		"data": reporting.RevenueOverview(totals),
	})
}

// LeadSource 线索来源分布（固定五个来源）
func (h *DashboardHandler) LeadSource(w http.ResponseWriter, r *http.Request) {
	counts, err := h.db.GroupLeadsBySource()
	if err != nil {
		h.fail(w, "group leads by source", err)
		return
	}

	utils.WriteOK(w, "Lead source data fetched successfully", utils.Payload{
		"data": reporting.LeadSourceChart(counts),
	})
}

// ReportData 报表页的汇总数据
func (h *DashboardHandler) ReportData(w http.ResponseWriter, r *http.Request) {
	// 线索
	totalLeads, err := h.db.CountLeads(database.LeadFilter{})
	if err != nil {
		h.fail(w, "count leads", err)
		return
	}
	leadsByStatus := utils.Payload{}
	for _, status := range []string{models.LeadStatusNew, models.LeadStatusQualified, models.LeadStatusConverted} {
		n, err := h.db.CountLeadsByStatus(status)
		if err != nil {
			h.fail(w, "count leads by status", err)
			return
		}
		leadsByStatus[status] = n
	}
	converted, _ := leadsByStatus[models.LeadStatusConverted].(int)

	// 交易
	dealsByStage := utils.Payload{}
	for _, stage := range pipeline.Stages() {
		n, err := h.db.CountDealsByStage(string(stage))
		if err != nil {
			h.fail(w, "count deals by stage", err)
			return
		}
		dealsByStage[string(stage)] = n
	}

	// 任务
	tasksByStatus := utils.Payload{}
	for _, status := range []string{
		models.TaskStatusPending, models.TaskStatusInProgress,
		models.TaskStatusCompleted, models.TaskStatusOverdue,
	} {
		n, err := h.db.CountTasksByStatus(status)
		if err != nil {
			h.fail(w, "count tasks by status", err)
			return
		}
		tasksByStatus[status] = n
	}

	// 今年收入曲线与线索来源
	totals, err := h.db.RevenueByMonth(time.Now().Year())
	if err != nil {
		h.fail(w, "aggregate revenue by month", err)
		return
	}
	sources, err := h.db.GroupLeadsBySource()
	if err != nil {
		h.fail(w, "group leads by source", err)
		return
	}

	data := utils.Payload{
		"leads": utils.Payload{
			"total":          totalLeads,
			"byStatus":       leadsByStatus,
			"conversionRate": reporting.ConversionRate(converted, totalLeads),
		},
		"deals": utils.Payload{
			"byStage": dealsByStage,
		},
		"tasks": utils.Payload{
			"byStatus": tasksByStatus,
		},
		"revenueOverview": reporting.RevenueOverview(totals),
		"leadSources":     reporting.LeadSourceChart(sources),
	}

	utils.WriteOK(w, "Report data fetched successfully", utils.Payload{"data": data})
}

// fail 记录错误并返回统一的服务器错误
func (h *DashboardHandler) fail(w http.ResponseWriter, op string, err error) {
	fmt.Printf("❌ Dashboard: failed to %s: %v\n", op, err)
	utils.WriteServerError(w)
}
