package models

import "time"

// Company 公司（参考数据，线索/联系人/交易按 ID 关联）
type Company struct {
	ID             string    `json:"id" db:"id"`
	CompanyName    string    `json:"companyName" db:"company_name"`
	Industry       string    `json:"industry,omitempty" db:"industry"`
	CompanySize    string    `json:"companySize,omitempty" db:"company_size"`
	Revenue        string    `json:"revenue,omitempty" db:"revenue"`
	Website        string    `json:"website,omitempty" db:"website"`
	Address        string    `json:"address,omitempty" db:"address"`
	City           string    `json:"city,omitempty" db:"city"`
	State          string    `json:"state,omitempty" db:"state"`
	PinCode        string    `json:"pinCode,omitempty" db:"pin_code"`
	Country        string    `json:"country,omitempty" db:"country"`
	ContactCountry string    `json:"contactCountry,omitempty" db:"contact_country"`
	ContactCount   int       `json:"contactCount,omitempty"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}
