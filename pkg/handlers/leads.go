package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/middleware"
	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/utils"
)

// LeadsHandler 线索处理器
type LeadsHandler struct {
	config *config.Config
	db     database.CRMDatabase
}

// NewLeadsHandler 创建线索处理器
func NewLeadsHandler(cfg *config.Config, db database.CRMDatabase) *LeadsHandler {
	return &LeadsHandler{config: cfg, db: db}
}

// Save 创建线索
func (h *LeadsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var lead models.Lead
	if err := utils.ParseJSONBody(r, &lead); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	if lead.Name == "" || lead.Email == "" {
		utils.WriteBadRequest(w, "Name and email are required")
		return
	}

	lead.ID = uuid.New().String()
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}

	if err := h.db.CreateLead(&lead); err != nil {
		fmt.Printf("❌ Failed to create lead: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteCreated(w, "Lead created successfully", utils.Payload{"data": lead})
}

// scopedTeamID returns the team filter for the caller: non-admin members only
// see leads assigned to them.
func scopedTeamID(user *models.AuthUser) string {
	if user == nil || user.Role == models.RoleAdmin {
		return ""
	}
	return user.ID
}

// List 分页查询线索，附带看板统计
func (h *LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUserFromContext(r.Context())

	var req models.ListRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	page, err := utils.ParsePage(req.PageOrDefault(), req.LimitOrDefault())
	if err != nil {
		utils.WriteBadRequest(w, "Invalid page or limit value")
		return
	}

	// "all" 等价于不过滤状态
	status := req.Status
	if status == "all" {
		status = ""
	}

	teamID := scopedTeamID(user)
	filter := database.LeadFilter{Search: req.Search, Status: status, TeamID: teamID}

	total, err := h.db.CountLeads(filter)
	if err != nil {
		fmt.Printf("❌ Failed to count leads: %v\n", err)
		utils.WriteServerError(w)
		return
	}
	leads, err := h.db.ListLeads(filter, page.Limit, page.Offset())
	if err != nil {
		fmt.Printf("❌ Failed to list leads: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	h.decorateLeads(leads)

	dashboard, err := h.leadDashboard(teamID)
	if err != nil {
		fmt.Printf("❌ Failed to build lead dashboard: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Leads fetched successfully", utils.Payload{
		"data":          leads,
		"pagination":    utils.NewPageInfo(total, page),
		"dashboardData": dashboard,
	})
}

// leadDashboard 线索看板统计（与列表同样的角色范围）
func (h *LeadsHandler) leadDashboard(teamID string) (utils.Payload, error) {
	counts := map[string]int{}
	for name, status := range map[string]string{
		"totalLeads":     "",
		"newLeads":       models.LeadStatusNew,
		"qualifiedLeads": models.LeadStatusQualified,
		"convertedLeads": models.LeadStatusConverted,
	} {
		n, err := h.db.CountLeads(database.LeadFilter{Status: status, TeamID: teamID})
		if err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return utils.Payload{
		"totalLeads":     counts["totalLeads"],
		"newLeads":       counts["newLeads"],
		"qualifiedLeads": counts["qualifiedLeads"],
		"convertedLeads": counts["convertedLeads"],
	}, nil
}

// decorateLeads 装配公司与负责成员的展示字段
func (h *LeadsHandler) decorateLeads(leads []models.Lead) {
	companies := map[string]*models.Company{}
	members := map[string]*models.TeamMember{}

	for i := range leads {
		leads[i].CreatedDate = leads[i].CreatedAt.Format("2006-01-02")
		if id := leads[i].CompanyID; id != "" {
			company, ok := companies[id]
			if !ok {
				company, _ = h.db.GetCompany(id)
				companies[id] = company
			}
			if company != nil {
				leads[i].CompanyName = company.CompanyName
			}
		}
		if id := leads[i].TeamID; id != "" {
			member, ok := members[id]
			if !ok {
				member, _ = h.db.GetTeamMemberByID(id)
				members[id] = member
			}
			if member != nil {
				leads[i].TeamName = member.Name
				leads[i].TeamImage = member.Image
			}
		}
	}
}

// Get 根据ID获取线索
func (h *LeadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lead, err := h.db.GetLead(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Lead not found")
			return
		}
		fmt.Printf("❌ Failed to get lead %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	leads := []models.Lead{*lead}
	h.decorateLeads(leads)

	utils.WriteOK(w, "Lead fetched successfully", utils.Payload{"data": leads[0]})
}

// Update 更新线索
func (h *LeadsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.db.GetLead(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Lead not found")
			return
		}
		fmt.Printf("❌ Failed to get lead %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	var lead models.Lead
	if err := utils.ParseJSONBody(r, &lead); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	lead.ID = existing.ID
	lead.CreatedAt = existing.CreatedAt
	if err := h.db.UpdateLead(&lead); err != nil {
		fmt.Printf("❌ Failed to update lead %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Lead updated successfully", utils.Payload{"data": lead})
}

// Delete 删除线索
func (h *LeadsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.db.DeleteLead(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Lead not found")
			return
		}
		fmt.Printf("❌ Failed to delete lead %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Lead deleted successfully", nil)
}

// StatusUpdate 更新线索状态
func (h *LeadsHandler) StatusUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.LeadStatusUpdateRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.LeadID == "" || req.Status == "" {
		utils.WriteBadRequest(w, "Lead ID and status are required")
		return
	}

	lead, err := h.db.GetLead(req.LeadID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Lead not found")
			return
		}
		fmt.Printf("❌ Failed to get lead %s: %v\n", req.LeadID, err)
		utils.WriteServerError(w)
		return
	}

	lead.Status = req.Status
	if err := h.db.UpdateLead(lead); err != nil {
		fmt.Printf("❌ Failed to update lead status %s: %v\n", req.LeadID, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Lead status updated successfully", utils.Payload{"data": lead})
}
