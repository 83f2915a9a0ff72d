package models

import "time"

// Deal 管道中的一笔交易
// TeamName/ContactName/CompanyName 等展示字段在读取时装配，不作为事实来源存储
type Deal struct {
	ID                string         `json:"id" db:"id"`
	Title             string         `json:"title" db:"title"`
	Value             float64        `json:"value" db:"value"`
	Stage             string         `json:"stage" db:"stage"`
	Probability       int            `json:"probability" db:"probability"`
	ExpectedCloseDate string         `json:"expectedCloseDate,omitempty" db:"expected_close_date"`
	Notes             string         `json:"notes,omitempty" db:"notes"`
	TeamID            string         `json:"teamId,omitempty" db:"team_id"`
	TeamName          string         `json:"teamName,omitempty"`
	TeamImage         string         `json:"teamImage,omitempty"`
	ContactID         string         `json:"contactId,omitempty" db:"contact_id"`
	ContactName       string         `json:"contactName,omitempty"`
	CompanyID         string         `json:"companyId,omitempty"`
	CompanyName       string         `json:"companyName,omitempty"`
	AssignBy          string         `json:"assignBy,omitempty" db:"assign_by"`
	OwnerDetails      *OwnerDetails  `json:"ownerDetails,omitempty"`
	StageHistory      []StageHistory `json:"stageHistory" db:"stage_history"`
	CreatedAt         time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time      `json:"updatedAt" db:"updated_at"`
}

// StageHistory 阶段流转账本中的一条记录（只增不改）
type StageHistory struct {
	Stage     string    `json:"stage"`
	StageDate time.Time `json:"stageDate"`
	Message   string    `json:"message"`
}

// OwnerDetails 负责人的展示信息（由 assignBy 读取时装配）
type OwnerDetails struct {
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// DealStageUpdateRequest represents the stage update payload.
// The legacy client sends the identifier as "_id".
type DealStageUpdateRequest struct {
	ID       string `json:"id,omitempty"`
	LegacyID string `json:"_id,omitempty"`
	Stage    string `json:"stage"`
}

// DealID returns whichever identifier field the client populated.
func (r DealStageUpdateRequest) DealID() string {
	if r.ID != "" {
		return r.ID
	}
	return r.LegacyID
}
