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

// ContactsHandler 联系人处理器
type ContactsHandler struct {
	config *config.Config
	db     database.CRMDatabase
}

// NewContactsHandler 创建联系人处理器
func NewContactsHandler(cfg *config.Config, db database.CRMDatabase) *ContactsHandler {
	return &ContactsHandler{config: cfg, db: db}
}

// Save 创建联系人
func (h *ContactsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var contact models.Contact
	if err := utils.ParseJSONBody(r, &contact); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	if contact.Name == "" || contact.Email == "" {
		utils.WriteBadRequest(w, "Name and email are required")
		return
	}

	contact.ID = uuid.New().String()

	if err := h.db.CreateContact(&contact); err != nil {
		fmt.Printf("❌ Failed to create contact: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteCreated(w, "Contact created successfully", utils.Payload{"data": contact})
}

// List 分页查询联系人，附带看板统计
func (h *ContactsHandler) List(w http.ResponseWriter, r *http.Request) {
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

	// "0" 表示不按公司过滤
	companyID := req.CompanyID
	if companyID == "0" {
		companyID = ""
	}

	filter := database.ContactFilter{Search: req.Search, CompanyID: companyID}
	total, err := h.db.CountContacts(filter)
	if err != nil {
		fmt.Printf("❌ Failed to count contacts: %v\n", err)
		utils.WriteServerError(w)
		return
	}
	contacts, err := h.db.ListContacts(filter, page.Limit, page.Offset())
	if err != nil {
		fmt.Printf("❌ Failed to list contacts: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	h.decorateContacts(contacts)

	totalContacts, err := h.db.CountContacts(database.ContactFilter{})
	if err != nil {
		fmt.Printf("❌ Failed to count all contacts: %v\n", err)
		utils.WriteServerError(w)
		return
	}
	totalCompanies, err := h.db.CountDistinctContactCompanies()
	if err != nil {
		fmt.Printf("❌ Failed to count contact companies: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Contacts fetched successfully", utils.Payload{
		"data":       contacts,
		"pagination": utils.NewPageInfo(total, page),
		"dashboardData": utils.Payload{
			"totalContacts":  totalContacts,
			"totalCompanies": totalCompanies,
		},
	})
}

// decorateContacts 装配公司展示字段
func (h *ContactsHandler) decorateContacts(contacts []models.Contact) {
	companies := map[string]*models.Company{}

	for i := range contacts {
		if !contacts[i].LastContact.IsZero() {
			contacts[i].LastContactDate = contacts[i].LastContact.Format("2006-01-02")
		}
		if id := contacts[i].CompanyID; id != "" {
			company, ok := companies[id]
			if !ok {
				company, _ = h.db.GetCompany(id)
				companies[id] = company
			}
			if company != nil {
				contacts[i].CompanyName = company.CompanyName
			}
		}
	}
}

// Get 根据ID获取联系人
func (h *ContactsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	contact, err := h.db.GetContact(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Contact not found")
			return
		}
		fmt.Printf("❌ Failed to get contact %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	contacts := []models.Contact{*contact}
	h.decorateContacts(contacts)

	utils.WriteOK(w, "Contact fetched successfully", utils.Payload{"data": contacts[0]})
}

// Update 更新联系人
func (h *ContactsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.db.GetContact(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Contact not found")
			return
		}
		fmt.Printf("❌ Failed to get contact %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	var contact models.Contact
	if err := utils.ParseJSONBody(r, &contact); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	contact.ID = existing.ID
	contact.CreatedAt = existing.CreatedAt
	if err := h.db.UpdateContact(&contact); err != nil {
		fmt.Printf("❌ Failed to update contact %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Contact updated successfully", utils.Payload{"data": contact})
}

// Delete 删除联系人
func (h *ContactsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.db.DeleteContact(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Contact not found")
			return
		}
		fmt.Printf("❌ Failed to delete contact %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Contact deleted successfully", nil)
}
