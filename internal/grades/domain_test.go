package grades

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBandBoundaries(t *testing.T) {
	cases := []struct {
		marks int
		want  Band
	}{
		{100, "A"},
		{80, "A"},
		{79, "B+"},
		{75, "B+"},
		{74, "B"},
		{70, "B"},
		{69, "B-"},
		{65, "B-"},
		{64, "C+"},
		{60, "C+"},
		{59, "C"},
		{55, "C"},
		{54, "C-"},
		{50, "C-"},
		{49, "D+"},
		{45, "D+"},
		{44, "D"},
		{40, "D"},
		{39, "E"},
		{0, "E"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BandFor(tc.marks), "marks=%d", tc.marks)
	}
}

func TestBandPoints(t *testing.T) {
	cases := []struct {
		band Band
		want float64
	}{
		{"A", 4.0},
		{"B+", 3.5},
		{"B", 3.0},
		{"B-", 2.5},
		{"C+", 2.0},
		{"C", 1.5},
		{"C-", 1.0},
		{"D+", 0.5},
		{"D", 0.25},
		{"E", 0.0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.band.Points(), "band=%s", tc.band)
	}
	assert.Zero(t, Band("F").Points())
}

func TestTermReportGPA(t *testing.T) {
	report := TermReport{Grades: []Grade{
		{Marks: 85, Band: BandFor(85)},
		{Marks: 72, Band: BandFor(72)},
		{Marks: 38, Band: BandFor(38)},
	}}
	assert.InDelta(t, (4.0+3.0+0.0)/3, report.GPA(), 0.0001)
	assert.InDelta(t, 65.0, report.MeanMarks(), 0.0001)
}

func TestTermReportEmpty(t *testing.T) {
	var report TermReport
	assert.Zero(t, report.GPA())
	assert.Zero(t, report.MeanMarks())
}
