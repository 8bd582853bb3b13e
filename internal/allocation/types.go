package allocation

import (
	"sort"
	"time"
)

// Status is the outcome of one (student, course) decision
type Status string

const (
	StatusAssigned   Status = "ASSIGNED"
	StatusWaitlisted Status = "WAITLISTED"
	StatusRejected   Status = "REJECTED"
)

// RejectReason explains a REJECTED decision
type RejectReason string

const (
	ReasonPrerequisiteNotMet  RejectReason = "prerequisite_not_met"
	ReasonScheduleConflict    RejectReason = "schedule_conflict"
	ReasonCreditLimitExceeded RejectReason = "credit_limit_exceeded"
	ReasonUnknownCourse       RejectReason = "unknown_course"
	ReasonNoLongerEligible    RejectReason = "no_longer_eligible"
)

// StudentRequest is one student's ranked course preferences for a run.
// Immutable once submitted; a resubmission carries a newer timestamp and
// sequence and supersedes the old version during ordering.
type StudentRequest struct {
	StudentID        string
	Preferences      []string // course codes, priority order, no duplicates
	SubmittedAt      time.Time
	Sequence         int64
	CommittedCredits int
}

// WaitlistEntry is one student's place in a course waitlist
type WaitlistEntry struct {
	StudentID   string
	SubmittedAt time.Time
	Sequence    int64
}

// CourseSlot is the capacity and enrollment state of one course for a term
type CourseSlot struct {
	CourseCode    string
	Capacity      int
	Credits       int
	Prerequisites []string
	Assigned      map[string]struct{}
	Waitlist      []WaitlistEntry
}

// clone returns a deep copy so a pass can work all-or-nothing
func (s *CourseSlot) clone() *CourseSlot {
	c := &CourseSlot{
		CourseCode: s.CourseCode,
		Capacity:   s.Capacity,
		Credits:    s.Credits,
		Assigned:   make(map[string]struct{}, len(s.Assigned)),
	}
	c.Prerequisites = append(c.Prerequisites, s.Prerequisites...)
	for id := range s.Assigned {
		c.Assigned[id] = struct{}{}
	}
	c.Waitlist = append(c.Waitlist, s.Waitlist...)
	return c
}

func (s *CourseSlot) isAssigned(studentID string) bool {
	_, ok := s.Assigned[studentID]
	return ok
}

func (s *CourseSlot) isWaitlisted(studentID string) bool {
	for _, entry := range s.Waitlist {
		if entry.StudentID == studentID {
			return true
		}
	}
	return false
}

// insertWaitlist keeps the waitlist strictly ordered by
// (submission timestamp, submission sequence)
func (s *CourseSlot) insertWaitlist(entry WaitlistEntry) {
	idx := sort.Search(len(s.Waitlist), func(i int) bool {
		w := s.Waitlist[i]
		if !w.SubmittedAt.Equal(entry.SubmittedAt) {
			return w.SubmittedAt.After(entry.SubmittedAt)
		}
		return w.Sequence > entry.Sequence
	})
	s.Waitlist = append(s.Waitlist, WaitlistEntry{})
	copy(s.Waitlist[idx+1:], s.Waitlist[idx:])
	s.Waitlist[idx] = entry
}

// Decision is the outcome for one (student, course) pair
type Decision struct {
	StudentID  string
	CourseCode string
	Status     Status
	Reason     RejectReason // set only when Status is REJECTED
	Rank       int          // 1-based preference rank; 0 for promotion decisions
}

// ValidationError reports malformed or unknown input that was excluded from
// the run without halting it
type ValidationError struct {
	StudentID  string
	CourseCode string
	Detail     string
}

// PromotionEvent signals that seats freed up on a course
type PromotionEvent struct {
	CourseCode string
	FreedCount int
}

// StudentState is a student's current standing, used to re-validate waitlist
// candidates at promotion time
type StudentState struct {
	CommittedCredits int
	Enrolled         []string
}

// Input is one allocation pass worth of requests and course state
type Input struct {
	Requests []StudentRequest
	Courses  map[string]*CourseSlot
}

// Result is the immutable output of one allocation pass. Courses holds the
// post-pass state; the caller applies it only after the pass succeeds.
type Result struct {
	RunID     string
	Decisions []Decision
	Courses   map[string]*CourseSlot
	Errors    []ValidationError
}

// PromotionInput scopes promotion work to a single course
type PromotionInput struct {
	Event    PromotionEvent
	Course   *CourseSlot
	Students map[string]StudentState
}

// PromotionResult carries the promotion decisions and the updated course state
type PromotionResult struct {
	Decisions []Decision
	Course    *CourseSlot
}
