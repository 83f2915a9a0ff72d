package models

import "time"

// 线索状态的特殊取值，驱动看板统计
const (
	LeadStatusNew       = "new"
	LeadStatusQualified = "qualified"
	LeadStatusConverted = "converted"
)

// Lead 销售线索
type Lead struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	Phone       string    `json:"phone" db:"phone"`
	Source      string    `json:"source" db:"source"`
	Status      string    `json:"status" db:"status"`
	Value       float64   `json:"value" db:"value"`
	Notes       string    `json:"notes,omitempty" db:"notes"`
	CompanyID   string    `json:"companyId,omitempty" db:"company_id"`
	CompanyName string    `json:"companyName,omitempty"`
	TeamID      string    `json:"teamId,omitempty" db:"team_id"`
	TeamName    string    `json:"teamName,omitempty"`
	TeamImage   string    `json:"teamImage,omitempty"`
	CreatedDate string    `json:"createdDate,omitempty"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// LeadStatusUpdateRequest represents the status update payload
type LeadStatusUpdateRequest struct {
	LeadID string `json:"leadId"`
	Status string `json:"status"`
}
