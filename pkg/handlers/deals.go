package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/pipeline"
	"crm-backend-refactor/pkg/utils"
)

// DealsHandler 交易处理器
type DealsHandler struct {
	config *config.Config
	db     database.CRMDatabase
}

// NewDealsHandler 创建交易处理器
func NewDealsHandler(cfg *config.Config, db database.CRMDatabase) *DealsHandler {
	return &DealsHandler{config: cfg, db: db}
}

// Save 创建交易，阶段流转账本从第一条记录开始
func (h *DealsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var deal models.Deal
	if err := utils.ParseJSONBody(r, &deal); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	if deal.Title == "" {
		utils.WriteBadRequest(w, "Title is required")
		return
	}

	deal.ID = uuid.New().String()
	// 阶段缺失或无法识别时不派生概率、不写历史
	deal.StageHistory = []models.StageHistory{}
	pipeline.Initialize(&deal, time.Now())

	if err := h.db.CreateDeal(&deal); err != nil {
		fmt.Printf("❌ Failed to create deal: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteCreated(w, "Deal created successfully", utils.Payload{"data": deal})
}

// List 分页查询交易
func (h *DealsHandler) List(w http.ResponseWriter, r *http.Request) {
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

	filter := database.SearchFilter{Search: req.Search}
	total, err := h.db.CountDeals(filter)
	if err != nil {
		fmt.Printf("❌ Failed to count deals: %v\n", err)
		utils.WriteServerError(w)
		return
	}
	deals, err := h.db.ListDeals(filter, page.Limit, page.Offset())
	if err != nil {
		fmt.Printf("❌ Failed to list deals: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	h.decorateDeals(deals)

	utils.WriteOK(w, "Deals fetched successfully", utils.Payload{
		"data":       deals,
		"pagination": utils.NewPageInfo(total, page),
	})
}

// decorateDeals 装配团队成员/联系人/公司的展示字段
func (h *DealsHandler) decorateDeals(deals []models.Deal) {
	members := map[string]*models.TeamMember{}
	contacts := map[string]*models.Contact{}
	companies := map[string]*models.Company{}

	for i := range deals {
		if id := deals[i].TeamID; id != "" {
			member, ok := members[id]
			if !ok {
				member, _ = h.db.GetTeamMemberByID(id)
				members[id] = member
			}
			if member != nil {
				deals[i].TeamName = member.Name
				deals[i].TeamImage = member.Image
			}
		}
		if id := deals[i].ContactID; id != "" {
			contact, ok := contacts[id]
			if !ok {
				contact, _ = h.db.GetContact(id)
				contacts[id] = contact
			}
			if contact != nil {
				deals[i].ContactName = contact.Name
				// 公司经由联系人关联
				if contact.CompanyID != "" {
					company, ok := companies[contact.CompanyID]
					if !ok {
						company, _ = h.db.GetCompany(contact.CompanyID)
						companies[contact.CompanyID] = company
					}
					if company != nil {
						deals[i].CompanyID = company.ID
						deals[i].CompanyName = company.CompanyName
					}
				}
			}
		}
	}
}

// Get 根据ID获取交易，附带负责人详情
func (h *DealsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deal, err := h.db.GetDeal(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Deal not found")
			return
		}
		fmt.Printf("❌ Failed to get deal %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	deals := []models.Deal{*deal}
	h.decorateDeals(deals)
	result := deals[0]

	if result.AssignBy != "" {
		if owner, err := h.db.GetTeamMemberByID(result.AssignBy); err == nil {
			result.OwnerDetails = &models.OwnerDetails{
				Name:  owner.Name,
				Image: owner.Image,
				Email: owner.Email,
				Phone: owner.PhoneNumber,
			}
		}
	}

	utils.WriteOK(w, "Deal fetched successfully", utils.Payload{"data": result})
}

// Update 更新交易基础字段（阶段流转走 StageUpdate）
func (h *DealsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.db.GetDeal(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Deal not found")
			return
		}
		fmt.Printf("❌ Failed to get deal %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	var deal models.Deal
	if err := utils.ParseJSONBody(r, &deal); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	// 账本与阶段字段以现有记录为准，普通更新不得绕过阶段流转
	deal.ID = existing.ID
	deal.Stage = existing.Stage
	deal.Probability = existing.Probability
	deal.StageHistory = existing.StageHistory
	deal.CreatedAt = existing.CreatedAt

	if err := h.db.UpdateDeal(&deal); err != nil {
		fmt.Printf("❌ Failed to update deal %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Deal updated successfully", utils.Payload{"data": deal})
}

// Delete 删除交易
func (h *DealsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.db.DeleteDeal(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Deal not found")
			return
		}
		fmt.Printf("❌ Failed to delete deal %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Deal deleted successfully", nil)
}

// StageUpdate 推进交易阶段并追加账本记录
func (h *DealsHandler) StageUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.DealStageUpdateRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	dealID := req.DealID()
	if dealID == "" || req.Stage == "" {
		utils.WriteBadRequest(w, "Deal ID and stage are required")
		return
	}

	deal, err := h.db.GetDeal(dealID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Deal not found")
			return
		}
		fmt.Printf("❌ Failed to get deal %s: %v\n", dealID, err)
		utils.WriteServerError(w)
		return
	}

	if err := pipeline.Advance(deal, pipeline.Stage(req.Stage), time.Now()); err != nil {
		if errors.Is(err, pipeline.ErrUnknownStage) {
			utils.WriteBadRequest(w, "Invalid stage value")
			return
		}
		fmt.Printf("❌ Failed to advance deal %s: %v\n", dealID, err)
		utils.WriteServerError(w)
		return
	}

	if err := h.db.UpdateDeal(deal); err != nil {
		fmt.Printf("❌ Failed to persist deal stage %s: %v\n", dealID, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Deal stage updated successfully", utils.Payload{"data": deal})
}
