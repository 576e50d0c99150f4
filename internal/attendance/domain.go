// Package attendance records daily student attendance.
package attendance

import (
	"errors"
	"time"
)

// Attendance marks.
type Mark string

const (
	MarkPresent Mark = "present"
	MarkAbsent  Mark = "absent"
	MarkLate    Mark = "late"
	MarkExcused Mark = "excused"
)

// Valid reports whether the mark is a known value.
func (m Mark) Valid() bool {
	switch m {
	case MarkPresent, MarkAbsent, MarkLate, MarkExcused:
		return true
	}
	return false
}

// Entry is one attendance mark for a student on a date. Subject is empty for
// whole-day registers. One entry exists per (student, date, subject).
type Entry struct {
	ID           int64
	StudentID    int64
	ClassLevelID int64
	Date         time.Time
	Subject      string
	Mark         Mark
	Remarks      string
	RecordedBy   int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary aggregates a student's attendance over a period.
type Summary struct {
	StudentID int64
	Present   int
	Absent    int
	Late      int
	Excused   int
}

// Total returns the number of marks in the summary.
func (s Summary) Total() int {
	return s.Present + s.Absent + s.Late + s.Excused
}

// Rate returns attendance as a fraction of recorded days. Late counts as
// attended. Returns 0 when nothing is recorded.
func (s Summary) Rate() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Present+s.Late) / float64(total)
}

var (
	// ErrNotFound indicates the entry does not exist.
	ErrNotFound = errors.New("attendance: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("attendance: invalid input")
)
