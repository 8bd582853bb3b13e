package dto

// CreateCourseRequest represents a request to add a course to the catalog
type CreateCourseRequest struct {
	Code          string   `json:"code" binding:"required"`
	Title         string   `json:"title" binding:"required"`
	Description   *string  `json:"description,omitempty"`
	Credits       int      `json:"credits" binding:"required,gt=0"`
	Capacity      int      `json:"capacity" binding:"required,gt=0"`
	ConflictGroup *string  `json:"conflictGroup,omitempty"`
	Prerequisites []string `json:"prerequisites,omitempty"`
}

// UpdateCapacityRequest changes a course's total capacity. An increase frees
// seats and triggers waitlist promotion.
type UpdateCapacityRequest struct {
	Capacity     int    `json:"capacity" binding:"required,gt=0"`
	AcademicYear int    `json:"academicYear" binding:"required,gt=0"`
	Term         string `json:"term" binding:"required,oneof=FALL SPRING"`
}
