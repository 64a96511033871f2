package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercentage(t *testing.T) {
	cases := []struct {
		name             string
		completed, total int
		want             int
	}{
		{"half", 2, 4, 50},
		{"none", 0, 4, 0},
		{"all", 4, 4, 100},
		{"zero total", 3, 0, 0},
		{"zero total nothing done", 0, 0, 0},
		{"one third rounds down", 1, 3, 33},
		{"two thirds rounds up", 2, 3, 67},
		{"exact half rounds up", 1, 8, 13},
		{"one of seven", 1, 7, 14},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Percentage(tc.completed, tc.total))
		})
	}
}

func TestPercentageMonotonic(t *testing.T) {
	const total = 9
	prev := 0
	for done := 0; done <= total; done++ {
		p := Percentage(done, total)
		assert.GreaterOrEqual(t, p, prev, "completed=%d", done)
		prev = p
	}
	assert.Equal(t, 100, prev)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(50000), MinorUnits(decimal.NewFromInt(500)))
	assert.Equal(t, int64(49999), MinorUnits(decimal.RequireFromString("499.99")))
	assert.Equal(t, int64(0), MinorUnits(decimal.Zero))
}

func TestCourseFilterNormalize(t *testing.T) {
	f := CourseFilter{}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageLimit, f.Limit)
	assert.Equal(t, 0, f.Offset())

	f = CourseFilter{Page: 3, Limit: 1000}.Normalize()
	assert.Equal(t, MaxPageLimit, f.Limit)
	assert.Equal(t, 200, f.Offset())
}
