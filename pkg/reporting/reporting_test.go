package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentChange(t *testing.T) {
	cases := []struct {
		name               string
		current, previous  float64
		change, changeType string
	}{
		{"both zero", 0, 0, "0%", "neutral"},
		{"from zero", 5, 0, "+100%", "positive"},
		{"halved", 5, 10, "-50%", "negative"},
		{"unchanged", 10, 10, "0%", "neutral"},
		{"up", 15, 10, "+50%", "positive"},
		{"rounded up", 101, 100, "+1%", "positive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PercentChange(tc.current, tc.previous)
			assert.Equal(t, tc.change, got.Change)
			assert.Equal(t, tc.changeType, got.ChangeType)
		})
	}
}

func TestConversionRate(t *testing.T) {
	assert.Equal(t, 0, ConversionRate(0, 0))
	assert.Equal(t, 0, ConversionRate(5, 0))
	assert.Equal(t, 50, ConversionRate(1, 2))
	assert.Equal(t, 67, ConversionRate(2, 3))
	assert.Equal(t, 100, ConversionRate(3, 3))
}

func TestMonthRange(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC)

	start, end := MonthRange(now)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 8, 31, 23, 59, 59, 999000000, time.UTC), end)

	prevStart, prevEnd := PreviousMonthRange(now)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), prevStart)
	assert.Equal(t, time.Date(2026, 7, 31, 23, 59, 59, 999000000, time.UTC), prevEnd)

	// year boundary
	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	prevStart, prevEnd = PreviousMonthRange(jan)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), prevStart)
	assert.Equal(t, 2025, prevEnd.Year())
	assert.Equal(t, time.December, prevEnd.Month())
}

func TestRevenueOverviewIsNeverSparse(t *testing.T) {
	rows := RevenueOverview(nil)
	require.Len(t, rows, 12)
	assert.Equal(t, "Jan", rows[0].Month)
	assert.Equal(t, "Dec", rows[11].Month)
	for _, row := range rows {
		assert.Zero(t, row.Revenue)
		assert.Zero(t, row.Deals)
	}

	rows = RevenueOverview(map[int]MonthTotal{
		3:  {Revenue: 1200, Deals: 2},
		12: {Revenue: 300, Deals: 1},
	})
	require.Len(t, rows, 12)
	assert.Equal(t, MonthlyRevenue{Month: "Mar", Revenue: 1200, Deals: 2}, rows[2])
	assert.Equal(t, MonthlyRevenue{Month: "Dec", Revenue: 300, Deals: 1}, rows[11])
	assert.Zero(t, rows[0].Revenue)
}

func TestLeadSourceChart(t *testing.T) {
	rows := LeadSourceChart(map[string]int{"Website": 2, "Unknown": 1})
	require.Len(t, rows, 5)

	byName := map[string]SourceCount{}
	for _, r := range rows {
		byName[r.Source] = r
	}
	assert.Equal(t, 2, byName["Website"].Count)
	assert.Equal(t, 67, byName["Website"].Percentage, "Unknown stays in the denominator")
	for _, other := range []string{"Referral", "LinkedIn", "Trade Show", "Cold Call"} {
		assert.Zero(t, byName[other].Count)
		assert.Zero(t, byName[other].Percentage)
	}
	// the off-list source never gets a row of its own
	_, present := byName["Unknown"]
	assert.False(t, present)
}

func TestLeadSourceChartEmpty(t *testing.T) {
	rows := LeadSourceChart(map[string]int{})
	require.Len(t, rows, 5)
	for _, r := range rows {
		assert.Zero(t, r.Count)
		assert.Zero(t, r.Percentage)
	}
}
