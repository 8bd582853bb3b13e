package models

import "time"

// AllocationRun records one committed allocation pass for a term. The
// decision sequence of a run is immutable once written; later runs or
// promotion events supersede it, never mutate it.
type AllocationRun struct {
	ID           string    `json:"id" db:"id"` // UUID
	AcademicYear int       `json:"academicYear" db:"academic_year"`
	Term         Term      `json:"term" db:"term"`
	Status       RunStatus `json:"status" db:"status"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// AllocationDecision is one persisted (student, course) outcome of a run or
// promotion event, in processing order.
type AllocationDecision struct {
	ID                int64  `json:"id" db:"id"`
	RunID             string `json:"runId" db:"run_id"`
	Ordinal           int    `json:"ordinal" db:"ordinal"` // position in the decision sequence
	StudentIdentifier string `json:"studentIdentifier" db:"student_identifier"`
	CourseCode        string `json:"courseCode" db:"course_code"`
	Status            string `json:"status" db:"status"`
	Reason            string `json:"reason,omitempty" db:"reason"`
	Rank              int    `json:"rank,omitempty" db:"rank"`
}
