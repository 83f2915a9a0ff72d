package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/utils"
)

// MailTemplateHandler 邮件模板处理器
type MailTemplateHandler struct {
	config *config.Config
	db     database.CRMDatabase
}

// NewMailTemplateHandler 创建邮件模板处理器
func NewMailTemplateHandler(cfg *config.Config, db database.CRMDatabase) *MailTemplateHandler {
	return &MailTemplateHandler{config: cfg, db: db}
}

// Create 注册邮件模板，type 相同的模板以最新一条为准
func (h *MailTemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var tpl models.MailTemplate
	if err := utils.ParseJSONBody(r, &tpl); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	if tpl.Subject == "" || tpl.Template == "" || tpl.Type == "" {
		utils.WriteBadRequest(w, "Subject, template and type are required")
		return
	}

	tpl.ID = uuid.New().String()

	if err := h.db.CreateMailTemplate(&tpl); err != nil {
		fmt.Printf("❌ Failed to create mail template: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteCreated(w, "Mail template created successfully", utils.Payload{"data": tpl})
}
