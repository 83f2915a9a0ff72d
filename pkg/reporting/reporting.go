package reporting

import (
	"fmt"
	"math"
	"time"
)

// Change 指标环比，change 为带符号百分比文本
type Change struct {
	Change     string `json:"change"`
	ChangeType string `json:"changeType"` // positive, negative, neutral
}

// PercentChange 计算当前值相对上期的变化。
// 上期为 0 时：当前 > 0 记 +100%，否则 0% 中性。
func PercentChange(current, previous float64) Change {
	if previous == 0 {
		if current > 0 {
			return Change{Change: "+100%", ChangeType: "positive"}
		}
		return Change{Change: "0%", ChangeType: "neutral"}
	}
	rounded := int(math.Round((current - previous) / previous * 100))
	switch {
	case rounded > 0:
		return Change{Change: fmt.Sprintf("+%d%%", rounded), ChangeType: "positive"}
	case rounded < 0:
		return Change{Change: fmt.Sprintf("%d%%", rounded), ChangeType: "negative"}
	default:
		return Change{Change: "0%", ChangeType: "neutral"}
	}
}

// ConversionRate converted/total 取整百分比，分母为 0 时记 0
func ConversionRate(converted, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(converted) / float64(total) * 100))
}

// MonthRange returns the inclusive range of the calendar month containing t,
// [1st 00:00:00.000, last day 23:59:59.999] in t's location.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

// PreviousMonthRange returns the inclusive range of the month before t's.
func PreviousMonthRange(t time.Time) (time.Time, time.Time) {
	return MonthRange(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, -1, 0))
}

var monthNames = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// MonthTotal 某个自然月的营收与交易数
type MonthTotal struct {
	Revenue float64
	Deals   int
}

// MonthlyRevenue 营收概览图表中的一行
type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Deals   int     `json:"deals"`
}

// RevenueOverview 把稀疏的按月聚合补齐成 Jan..Dec 的 12 行，缺失月份补零。
func RevenueOverview(totals map[int]MonthTotal) []MonthlyRevenue {
	out := make([]MonthlyRevenue, 0, 12)
	for i, name := range monthNames {
		row := MonthlyRevenue{Month: name}
		if t, ok := totals[i+1]; ok {
			row.Revenue = t.Revenue
			row.Deals = t.Deals
		}
		out = append(out, row)
	}
	return out
}

// CanonicalSources 线索来源报表使用的固定清单
var CanonicalSources = []string{"Website", "Referral", "LinkedIn", "Trade Show", "Cold Call"}

// SourceCount 线索来源图表中的一行
type SourceCount struct {
	Source     string `json:"source"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// LeadSourceChart normalizes raw per-source counts against the canonical
// source list. Off-list sources stay in the denominator but get no row, so
// percentages may legitimately sum below 100.
func LeadSourceChart(counts map[string]int) []SourceCount {
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make([]SourceCount, 0, len(CanonicalSources))
	for _, source := range CanonicalSources {
		count := counts[source]
		percentage := 0
		if total > 0 && count > 0 {
			percentage = int(math.Round(float64(count) / float64(total) * 100))
		}
		out = append(out, SourceCount{Source: source, Count: count, Percentage: percentage})
	}
	return out
}
