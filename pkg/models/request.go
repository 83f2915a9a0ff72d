package models

// ListRequest 列表查询的通用请求体
// Page/Limit 用指针区分"未提供"（取默认值）与显式传 0（非法值）
type ListRequest struct {
	Page      *int   `json:"page,omitempty"`
	Limit     *int   `json:"limit,omitempty"`
	Search    string `json:"search,omitempty"`
	Status    string `json:"status,omitempty"`
	CompanyID string `json:"companyId,omitempty"`
	AssignTo  string `json:"assignTo,omitempty"`
	DueToday  bool   `json:"dueToday,omitempty"`
}

// PageOrDefault 未提供时默认第1页
func (r ListRequest) PageOrDefault() int {
	if r.Page == nil {
		return 1
	}
	return *r.Page
}

// LimitOrDefault 未提供时默认每页10条
func (r ListRequest) LimitOrDefault() int {
	if r.Limit == nil {
		return 10
	}
	return *r.Limit
}
