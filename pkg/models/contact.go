package models

import "time"

// Contact 联系人
type Contact struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Email           string    `json:"email" db:"email"`
	Phone           string    `json:"phone" db:"phone"`
	Position        string    `json:"position,omitempty" db:"position"`
	CompanyID       string    `json:"companyId,omitempty" db:"company_id"`
	CompanyName     string    `json:"companyName,omitempty"`
	LastContactDate string    `json:"lastContactDate,omitempty"`
	LastContact     time.Time `json:"lastContact" db:"last_contact"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}
