package models

// StudentProfile holds the per-student policy inputs for an allocation run:
// the credit cap, credits already committed this term and the set of
// completed courses used for prerequisite checks.
type StudentProfile struct {
	ID               int64  `json:"id" db:"id"`
	Identifier       string `json:"identifier" db:"identifier"` // Student number
	CreditLimit      int    `json:"creditLimit" db:"credit_limit"`
	CommittedCredits int    `json:"committedCredits" db:"committed_credits"`

	// Relations (populated when needed)
	CompletedCourses []string `json:"completedCourses,omitempty"`
}
