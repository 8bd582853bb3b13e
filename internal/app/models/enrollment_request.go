package models

import "time"

// EnrollmentRequest is a student's ranked course preferences for a term.
// A request is immutable once submitted; resubmitting stores a new version
// with a newer timestamp and sequence which supersedes the old one at run
// time.
type EnrollmentRequest struct {
	ID                int64     `json:"id" db:"id"`
	StudentIdentifier string    `json:"studentIdentifier" db:"student_identifier"`
	AcademicYear      int       `json:"academicYear" db:"academic_year"`
	Term              Term      `json:"term" db:"term"`
	SubmittedAt       time.Time `json:"submittedAt" db:"submitted_at"`
	Sequence          int64     `json:"sequence" db:"sequence"`

	// Preferences in priority order, highest first
	Preferences []string `json:"preferences"`
}
