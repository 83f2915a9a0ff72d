package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/utils"
)

// CompaniesHandler 公司处理器
type CompaniesHandler struct {
	config *config.Config
	db     database.CRMDatabase
}

// NewCompaniesHandler 创建公司处理器
func NewCompaniesHandler(cfg *config.Config, db database.CRMDatabase) *CompaniesHandler {
	return &CompaniesHandler{config: cfg, db: db}
}

// Save 创建公司
func (h *CompaniesHandler) Save(w http.ResponseWriter, r *http.Request) {
	var company models.Company
	if err := utils.ParseJSONBody(r, &company); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	if company.CompanyName == "" {
		utils.WriteBadRequest(w, "Company name is required")
		return
	}

	company.ID = uuid.New().String()

	if err := h.db.CreateCompany(&company); err != nil {
		fmt.Printf("❌ Failed to create company: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteCreated(w, "Company created successfully", utils.Payload{"data": company})
}

// List 分页查询公司，附带联系人数
func (h *CompaniesHandler) List(w http.ResponseWriter, r *http.Request) {
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
	total, err := h.db.CountCompanies(filter)
	if err != nil {
		fmt.Printf("❌ Failed to count companies: %v\n", err)
		utils.WriteServerError(w)
		return
	}
	companies, err := h.db.ListCompanies(filter, page.Limit, page.Offset())
	if err != nil {
		fmt.Printf("❌ Failed to list companies: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	for i := range companies {
		count, err := h.db.CountContactsByCompany(companies[i].ID)
		if err != nil {
			fmt.Printf("❌ Failed to count contacts for company %s: %v\n", companies[i].ID, err)
			utils.WriteServerError(w)
			return
		}
		companies[i].ContactCount = count
	}

	utils.WriteOK(w, "Companies fetched successfully", utils.Payload{
		"data":       companies,
		"pagination": utils.NewPageInfo(total, page),
	})
}

// Get 根据ID获取公司
func (h *CompaniesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	company, err := h.db.GetCompany(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Company not found")
			return
		}
		fmt.Printf("❌ Failed to get company %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	count, err := h.db.CountContactsByCompany(company.ID)
	if err == nil {
		company.ContactCount = count
	}

	utils.WriteOK(w, "Company fetched successfully", utils.Payload{"data": company})
}

// Update 更新公司
func (h *CompaniesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.db.GetCompany(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Company not found")
			return
		}
		fmt.Printf("❌ Failed to get company %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	var company models.Company
	if err := utils.ParseJSONBody(r, &company); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	company.ID = existing.ID
	company.CreatedAt = existing.CreatedAt
	if err := h.db.UpdateCompany(&company); err != nil {
		fmt.Printf("❌ Failed to update company %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Company updated successfully", utils.Payload{"data": company})
}

// Delete 删除公司
func (h *CompaniesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.db.DeleteCompany(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Company not found")
			return
		}
		fmt.Printf("❌ Failed to delete company %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Company deleted successfully", nil)
}
