package dto

import "time"

// SubmitRequestRequest is a student's (re)submission of ranked preferences
type SubmitRequestRequest struct {
	StudentIdentifier string   `json:"studentIdentifier" binding:"required"`
	AcademicYear      int      `json:"academicYear" binding:"required,gt=0"`
	Term              string   `json:"term" binding:"required,oneof=FALL SPRING"`
	Preferences       []string `json:"preferences" binding:"required,min=1,max=20"`
}

// RunAllocationRequest triggers an allocation pass. Year and term fall back
// to the deployment's configured enrollment window when omitted.
type RunAllocationRequest struct {
	AcademicYear int    `json:"academicYear" binding:"omitempty,gt=0"`
	Term         string `json:"term" binding:"omitempty,oneof=FALL SPRING"`
}

// WithdrawRequest removes a student's assignment from a course, freeing a
// seat and triggering waitlist promotion
type WithdrawRequest struct {
	StudentIdentifier string `json:"studentIdentifier" binding:"required"`
	CourseCode        string `json:"courseCode" binding:"required"`
	AcademicYear      int    `json:"academicYear" binding:"required,gt=0"`
	Term              string `json:"term" binding:"required,oneof=FALL SPRING"`
}

// DecisionResponse is one (student, course) outcome
type DecisionResponse struct {
	StudentIdentifier string `json:"studentIdentifier" example:"20260042"`
	CourseCode        string `json:"courseCode" example:"CS101"`
	Status            string `json:"status" example:"ASSIGNED" enums:"ASSIGNED,WAITLISTED,REJECTED"`
	Reason            string `json:"reason,omitempty" example:"prerequisite_not_met"`
	Rank              int    `json:"rank,omitempty" example:"1"`
}

// ValidationErrorResponse reports input excluded from a run
type ValidationErrorResponse struct {
	StudentIdentifier string `json:"studentIdentifier,omitempty"`
	CourseCode        string `json:"courseCode,omitempty"`
	Detail            string `json:"detail"`
}

// RunResponse is the outcome of one allocation pass
type RunResponse struct {
	RunID            string                    `json:"runId" example:"7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"`
	AcademicYear     int                       `json:"academicYear" example:"2026"`
	Term             string                    `json:"term" example:"FALL"`
	Status           string                    `json:"status" example:"COMMITTED"`
	Decisions        []DecisionResponse        `json:"decisions"`
	ValidationErrors []ValidationErrorResponse `json:"validationErrors,omitempty"`
	CreatedAt        time.Time                 `json:"createdAt"`
}

// EnrollmentRequestResponse echoes a stored enrollment request
type EnrollmentRequestResponse struct {
	ID                int64     `json:"id"`
	StudentIdentifier string    `json:"studentIdentifier"`
	AcademicYear      int       `json:"academicYear"`
	Term              string    `json:"term"`
	SubmittedAt       time.Time `json:"submittedAt"`
	Sequence          int64     `json:"sequence"`
	Preferences       []string  `json:"preferences"`
}
