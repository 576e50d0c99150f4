// Package grades records exam marks and computes grade bands.
package grades

import (
	"errors"
	"time"
)

// Exam types within a term.
type ExamType string

const (
	ExamCAT     ExamType = "cat"
	ExamMidterm ExamType = "midterm"
	ExamEndterm ExamType = "endterm"
)

// Valid reports whether the exam type is a known value.
func (e ExamType) Valid() bool {
	switch e {
	case ExamCAT, ExamMidterm, ExamEndterm:
		return true
	}
	return false
}

// Band is a letter grade derived from a mark.
type Band string

// BandFor maps a mark out of 100 to its letter grade.
func BandFor(marks int) Band {
	switch {
	case marks >= 80:
		return "A"
	case marks >= 75:
		return "B+"
	case marks >= 70:
		return "B"
	case marks >= 65:
		return "B-"
	case marks >= 60:
		return "C+"
	case marks >= 55:
		return "C"
	case marks >= 50:
		return "C-"
	case marks >= 45:
		return "D+"
	case marks >= 40:
		return "D"
	default:
		return "E"
	}
}

// bandPoints maps letter grades to grade points on a 4.0 scale.
var bandPoints = map[Band]float64{
	"A":  4.0,
	"B+": 3.5,
	"B":  3.0,
	"B-": 2.5,
	"C+": 2.0,
	"C":  1.5,
	"C-": 1.0,
	"D+": 0.5,
	"D":  0.25,
	"E":  0.0,
}

// Points returns the grade points for the band.
func (b Band) Points() float64 {
	return bandPoints[b]
}

// Grade is one exam result. Band and points are derived from the mark at
// record time. One grade exists per (student, subject, exam, term, year).
type Grade struct {
	ID         int64
	StudentID  int64
	Subject    string
	ExamType   ExamType
	Term       int
	Year       int
	Marks      int
	Band       Band
	RecordedBy int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Points returns the grade points for this grade's band.
func (g Grade) Points() float64 {
	return g.Band.Points()
}

// TermReport aggregates a student's grades for a term.
type TermReport struct {
	StudentID int64
	Term      int
	Year      int
	Grades    []Grade
}

// GPA returns the mean grade points across the report's grades. Returns 0
// when no grades are recorded.
func (r TermReport) GPA() float64 {
	if len(r.Grades) == 0 {
		return 0
	}
	var sum float64
	for _, g := range r.Grades {
		sum += g.Points()
	}
	return sum / float64(len(r.Grades))
}

// MeanMarks returns the average mark across the report's grades.
func (r TermReport) MeanMarks() float64 {
	if len(r.Grades) == 0 {
		return 0
	}
	var sum int
	for _, g := range r.Grades {
		sum += g.Marks
	}
	return float64(sum) / float64(len(r.Grades))
}

var (
	// ErrNotFound indicates the grade does not exist.
	ErrNotFound = errors.New("grades: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("grades: invalid input")
)
