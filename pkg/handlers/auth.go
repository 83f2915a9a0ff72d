package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/utils"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	config     *config.Config
	db         database.CRMDatabase
	jwtService *utils.JWTService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, db database.CRMDatabase) *AuthHandler {
	return &AuthHandler{
		config:     cfg,
		db:         db,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// Login 邮箱密码登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		utils.WriteMsg(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	member, err := h.db.GetTeamMemberByEmail(req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteMsg(w, http.StatusBadRequest, "Invalid email or password")
			return
		}
		fmt.Printf("❌ Login failed for %s: %v\n", req.Email, err)
		utils.WriteServerError(w)
		return
	}

	if !utils.CheckPassword(req.Password, member.Password) {
		utils.WriteMsg(w, http.StatusBadRequest, "Invalid email or password")
		return
	}

	user := &models.AuthUser{
		ID:    member.ID,
		Email: member.Email,
		Name:  member.Name,
		Role:  member.Role,
	}

	token, expiresAt, err := h.jwtService.GenerateAccessToken(user)
	if err != nil {
		fmt.Printf("❌ Failed to generate token for %s: %v\n", req.Email, err)
		utils.WriteServerError(w)
		return
	}

	fmt.Printf("✅ Login successful: %s (%s)\n", member.Email, member.Role)
	utils.WriteOK(w, "Login successful", utils.Payload{
		"token":     token,
		"expiresAt": expiresAt,
		"user":      user,
	})
}

// Logout 登出（无服务端会话，客户端丢弃令牌即可）
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	utils.WriteOK(w, "Logged out successfully", nil)
}
