package allocation

import "math"

// Policy carries the caller-supplied predicates the engine evaluates. The
// engine never decides policy itself: what counts as a schedule conflict, a
// satisfied prerequisite or a credit cap is entirely up to the caller.
type Policy struct {
	// Conflicts reports whether two courses may not be held simultaneously
	Conflicts func(courseA, courseB string) bool
	// CreditLimit returns the credit cap for a student
	CreditLimit func(studentID string) int
	// Completed reports whether a student has completed a course, used for
	// prerequisite checks alongside courses assigned during the same pass
	Completed func(studentID, courseCode string) bool
}

// withDefaults fills unset predicates with permissive defaults so a partial
// policy is usable
func (p Policy) withDefaults() Policy {
	if p.Conflicts == nil {
		p.Conflicts = func(string, string) bool { return false }
	}
	if p.CreditLimit == nil {
		p.CreditLimit = func(string) int { return math.MaxInt32 }
	}
	if p.Completed == nil {
		p.Completed = func(string, string) bool { return false }
	}
	return p
}
