package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role 团队成员角色（封闭枚举）
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTeamMember Role = "teammember"
	RoleOrgAdmin   Role = "orgadmin"
)

// rolePrefixes maps each role to its customerID prefix.
var rolePrefixes = map[Role]string{
	RoleAdmin:      "ADM",
	RoleTeamMember: "TM",
	RoleOrgAdmin:   "ORG",
	RoleManager:    "MAN",
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	_, ok := rolePrefixes[r]
	return ok
}

// Prefix returns the customerID prefix for the role ("ADM" for unknown roles,
// matching the registration fallback).
func (r Role) Prefix() string {
	if p, ok := rolePrefixes[r]; ok {
		return p
	}
	return "ADM"
}

// Display returns the human readable role name used in welcome emails.
func (r Role) Display() string {
	switch r {
	case RoleTeamMember:
		return "Team Member"
	case RoleOrgAdmin:
		return "Organization Admin"
	case RoleManager:
		return "Manager"
	case RoleAdmin:
		return "Admin"
	default:
		return string(r)
	}
}

// FormatCustomerID 根据角色前缀与序号生成 customerID，例如 ADM_001
func FormatCustomerID(role Role, seq int64) string {
	return fmt.Sprintf("%s_%03d", role.Prefix(), seq)
}

// TeamMember 团队成员（同时也是系统的身份主体）
type TeamMember struct {
	ID          string    `json:"id" db:"id"`
	CustomerID  string    `json:"customerID,omitempty" db:"customer_id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	PhoneNumber string    `json:"phoneNumber" db:"phone_number"`
	Image       string    `json:"image,omitempty" db:"image"`
	Role        Role      `json:"role" db:"role"`
	Password    string    `json:"-" db:"password_hash"` // Never return password in JSON
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// AuthUser 从令牌中解析出来的调用者身份
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`
}

// TeamSaveRequest represents the request payload for member registration
type TeamSaveRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password,omitempty"`
	PhoneNumber string `json:"phoneNumber"`
	Image       string `json:"image,omitempty"`
	Role        Role   `json:"role,omitempty"`
}

// LoginRequest represents the request payload for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenClaims represents the JWT token claims
type TokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   Role   `json:"role"`
	Type   string `json:"type"` // "access" or "refresh"
	Exp    int64  `json:"exp"`
	Iat    int64  `json:"iat"`
}

// GetExpirationTime implements jwt.Claims interface
func (c *TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

// GetIssuedAt implements jwt.Claims interface
func (c *TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

// GetNotBefore implements jwt.Claims interface
func (c *TokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims interface
func (c *TokenClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims interface
func (c *TokenClaims) GetSubject() (string, error) {
	return c.UserID, nil
}

// GetAudience implements jwt.Claims interface
func (c *TokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
