package middleware

import (
	"net/http"

	"crm-backend-refactor/pkg/models"
	"crm-backend-refactor/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// AdminOnly 仅允许 admin 角色访问
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok {
			utils.WriteUnauthorized(w, "No token provided")
			return
		}
		if user.Role != models.RoleAdmin {
			utils.WriteForbidden(w, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OrgAdminOrAdmin 允许 orgadmin 或 admin 角色访问
func OrgAdminOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok {
			utils.WriteUnauthorized(w, "No token provided")
			return
		}
		if user.Role != models.RoleOrgAdmin && user.Role != models.RoleAdmin {
			utils.WriteForbidden(w, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SelfOrAdmin 仅允许本人或 admin 访问，目标ID取自URL参数
func SelfOrAdmin(paramName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUserFromContext(r.Context())
			if !ok {
				utils.WriteUnauthorized(w, "No token provided")
				return
			}
			targetID := chi.URLParam(r, paramName)
			if user.Role != models.RoleAdmin && user.ID != targetID {
				utils.WriteForbidden(w, "You can only access your own resources")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
