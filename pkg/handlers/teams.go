package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/mailer"
	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/utils"
)

// 注册欢迎邮件使用的模板类型
const registerTemplateType = "REGISTER"

// TeamsHandler 团队成员处理器
type TeamsHandler struct {
	config *config.Config
	db     database.CRMDatabase
	mailer *mailer.Mailer
}

// NewTeamsHandler 创建团队成员处理器
func NewTeamsHandler(cfg *config.Config, db database.CRMDatabase) *TeamsHandler {
	return &TeamsHandler{
		config: cfg,
		db:     db,
		mailer: mailer.NewMailer(cfg, db),
	}
}

// Save 注册团队成员
func (h *TeamsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req models.TeamSaveRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.Name == "" || req.Email == "" || req.PhoneNumber == "" {
		utils.WriteBadRequest(w, "Name, email and phone number are required")
		return
	}

	// 未指定角色时按 admin 注册
	role := req.Role
	if role == "" {
		role = models.RoleAdmin
	}
	if !role.Valid() {
		utils.WriteBadRequest(w, "Invalid role")
		return
	}

	// 邮箱与手机号唯一性检查
	if _, err := h.db.GetTeamMemberByEmail(req.Email); err == nil {
		utils.WriteConflict(w, "Email already exists")
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		fmt.Printf("❌ Failed to check email uniqueness: %v\n", err)
		utils.WriteServerError(w)
		return
	}
	if _, err := h.db.GetTeamMemberByPhone(req.PhoneNumber); err == nil {
		utils.WriteConflict(w, "Phone number already exists")
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		fmt.Printf("❌ Failed to check phone uniqueness: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	// 未提供密码时按邮箱前缀+手机号后4位生成
	password := req.Password
	if password == "" {
		password = utils.GenerateAutoPassword(req.Email, req.PhoneNumber)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		fmt.Printf("❌ Failed to hash password: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	// 按角色递增序号生成 customerID
	seq, err := h.db.NextSequence(string(role))
	if err != nil {
		fmt.Printf("❌ Failed to advance customer sequence: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	member := &models.TeamMember{
		ID:          uuid.New().String(),
		CustomerID:  models.FormatCustomerID(role, seq),
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Image:       req.Image,
		Role:        role,
		Password:    hash,
		IsActive:    true,
	}

	if err := h.db.CreateTeamMember(member); err != nil {
		fmt.Printf("❌ Failed to create team member: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	// 欢迎邮件尽力发送，失败不影响注册结果
	emailSent := false
	if err := h.mailer.SendTemplate(registerTemplateType, member.Email, map[string]interface{}{
		"name":       member.Name,
		"email":      member.Email,
		"password":   password,
		"role":       member.Role.Display(),
		"customerID": member.CustomerID,
	}); err != nil {
		fmt.Printf("⚠️  Welcome email not sent to %s: %v\n", member.Email, err)
	} else {
		emailSent = true
	}

	fmt.Printf("✅ Team member created: %s (%s)\n", member.Email, member.CustomerID)
	utils.WriteCreated(w, "Team member created successfully", utils.Payload{
		"data":      member,
		"emailSent": emailSent,
	})
}

// List 分页查询团队成员
func (h *TeamsHandler) List(w http.ResponseWriter, r *http.Request) {
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
	total, err := h.db.CountTeamMembers(filter)
	if err != nil {
		fmt.Printf("❌ Failed to count team members: %v\n", err)
		utils.WriteServerError(w)
		return
	}
	members, err := h.db.ListTeamMembers(filter, page.Limit, page.Offset())
	if err != nil {
		fmt.Printf("❌ Failed to list team members: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Team members fetched successfully", utils.Payload{
		"data":       members,
		"pagination": utils.NewPageInfo(total, page),
	})
}

// Get 根据ID获取团队成员
func (h *TeamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	member, err := h.db.GetTeamMemberByID(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Team member not found")
			return
		}
		fmt.Printf("❌ Failed to get team member %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Team member fetched successfully", utils.Payload{"data": member})
}

// Update 更新团队成员资料
func (h *TeamsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.TeamSaveRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	member, err := h.db.GetTeamMemberByID(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Team member not found")
			return
		}
		fmt.Printf("❌ Failed to get team member %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	if req.Name != "" {
		member.Name = req.Name
	}
	if req.Email != "" {
		member.Email = req.Email
	}
	if req.PhoneNumber != "" {
		member.PhoneNumber = req.PhoneNumber
	}
	if req.Image != "" {
		member.Image = req.Image
	}
	if req.Role != "" {
		if !req.Role.Valid() {
			utils.WriteBadRequest(w, "Invalid role")
			return
		}
		member.Role = req.Role
	}
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			fmt.Printf("❌ Failed to hash password: %v\n", err)
			utils.WriteServerError(w)
			return
		}
		member.Password = hash
	}

	if err := h.db.UpdateTeamMember(member); err != nil {
		fmt.Printf("❌ Failed to update team member %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Team member updated successfully", utils.Payload{"data": member})
}

// Delete 删除团队成员
func (h *TeamsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.db.DeleteTeamMember(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFound(w, "Team member not found")
			return
		}
		fmt.Printf("❌ Failed to delete team member %s: %v\n", id, err)
		utils.WriteServerError(w)
		return
	}

	utils.WriteOK(w, "Team member deleted successfully", nil)
}
