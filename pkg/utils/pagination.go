package utils

import (
	"fmt"
	"time"
)

// MaxPageSize 单页上限，超出的 limit 会被收紧到该值
const MaxPageSize = 100

// PageRequest 通过合法性校验后的分页参数
type PageRequest struct {
	Page  int
	Limit int
}

// ParsePage validates raw page/limit values from a list request body.
// limit is clamped to MaxPageSize before validation, mirroring the
// Math.min-then-check order of the legacy API.
func ParsePage(page, limit int) (PageRequest, error) {
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page < 1 || limit < 1 {
		return PageRequest{}, fmt.Errorf("invalid page or limit value")
	}
	return PageRequest{Page: page, Limit: limit}, nil
}

// Offset 跳过的记录数 = (page-1)*limit
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageInfo 列表响应附带的分页信息
type PageInfo struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPageInfo builds pagination metadata from a separately-counted total, so
// totalPages stays accurate regardless of how many rows the page returned.
func NewPageInfo(total int, p PageRequest) PageInfo {
	return PageInfo{
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: (total + p.Limit - 1) / p.Limit, // 向上取整
	}
}

// DayBounds returns the inclusive [00:00:00.000, 23:59:59.999] range of the
// local day containing t, used by the due-today task filter.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := start.Add(24*time.Hour - time.Millisecond)
	return start, end
}
