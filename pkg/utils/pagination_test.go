package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageClampsLimit(t *testing.T) {
	p, err := ParsePage(1, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Limit)
}

func TestParsePageRejectsNonPositive(t *testing.T) {
	_, err := ParsePage(0, 10)
	assert.Error(t, err)

	_, err = ParsePage(1, 0)
	assert.Error(t, err)

	_, err = ParsePage(-3, -5)
	assert.Error(t, err)
}

func TestParsePageOffset(t *testing.T) {
	p, err := ParsePage(3, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, p.Offset())

	p, err = ParsePage(1, 25)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Offset())
}

func TestNewPageInfoTotalPages(t *testing.T) {
	p := PageRequest{Page: 1, Limit: 10}

	info := NewPageInfo(101, p)
	assert.Equal(t, 11, info.TotalPages)

	info = NewPageInfo(100, p)
	assert.Equal(t, 10, info.TotalPages)

	info = NewPageInfo(0, p)
	assert.Equal(t, 0, info.TotalPages)
	assert.Equal(t, 0, info.Total)
}

func TestDayBounds(t *testing.T) {
	now := time.Date(2024, 5, 17, 13, 45, 12, 0, time.UTC)
	start, end := DayBounds(now)

	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 5, 17, 23, 59, 59, 999000000, time.UTC), end)
}
