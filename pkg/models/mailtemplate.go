package models

import "time"

// MailTemplate 事务邮件模板，按 type 查找（如 REGISTER）
type MailTemplate struct {
	ID        string    `json:"id" db:"id"`
	Subject   string    `json:"subject" db:"subject"`
	Template  string    `json:"template" db:"template"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
