package allocation

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Engine runs allocation passes and waitlist promotions over in-memory course
// snapshots. It performs no I/O and owns no storage; one Engine value is
// typically built per run around the policy predicates for that run.
type Engine struct {
	policy     Policy
	abortRatio float64
}

// Option configures an Engine
type Option func(*Engine)

// WithValidationAbortRatio aborts a pass before any work when the fraction of
// requests failing validation exceeds ratio. Zero disables the check.
func WithValidationAbortRatio(ratio float64) Option {
	return func(e *Engine) {
		e.abortRatio = ratio
	}
}

// New creates an engine around the caller's policy predicates
func New(policy Policy, opts ...Option) *Engine {
	e := &Engine{policy: policy.withDefaults()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one full allocation pass. The pass is all-or-nothing: the
// engine works on a deep copy of the course snapshot, so an aborted pass
// leaves the caller's state untouched, and a successful Result carries the
// complete post-pass course state for the caller to apply.
//
// The algorithm is a greedy single pass in request order, not a stable
// matching: each student's entire preference list is processed, so a student
// may be assigned several ranked choices up to their credit cap.
func (e *Engine) Run(ctx context.Context, input Input) (*Result, error) {
	if err := checkSnapshot(input.Courses); err != nil {
		return nil, err
	}

	ordered, errs := OrderRequests(input.Requests)
	if e.abortRatio > 0 && len(input.Requests) > 0 {
		if ratio := float64(len(errs)) / float64(len(input.Requests)); ratio > e.abortRatio {
			return nil, fmt.Errorf("%w: %d of %d requests failed validation",
				ErrPassAborted, len(errs), len(input.Requests))
		}
	}

	courses := make(map[string]*CourseSlot, len(input.Courses))
	for code, slot := range input.Courses {
		courses[code] = slot.clone()
	}

	result := &Result{
		RunID:   uuid.New().String(),
		Courses: courses,
		Errors:  errs,
	}

	for _, req := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPassAborted, err)
		}
		e.processRequest(req, courses, result)
	}

	return result, nil
}

// processRequest walks one student's preference list in rank order
func (e *Engine) processRequest(req StudentRequest, courses map[string]*CourseSlot, result *Result) {
	held := enrolledCourses(courses, req.StudentID)
	credits := req.CommittedCredits
	limit := e.policy.CreditLimit(req.StudentID)

	for i, code := range req.Preferences {
		rank := i + 1
		slot, ok := courses[code]
		if !ok {
			result.Errors = append(result.Errors, ValidationError{
				StudentID:  req.StudentID,
				CourseCode: code,
				Detail:     "unknown course",
			})
			result.Decisions = append(result.Decisions,
				rejected(req.StudentID, code, rank, ReasonUnknownCourse))
			continue
		}

		// Idempotent re-request of a course the student already holds:
		// assigned again without consuming a seat.
		if slot.isAssigned(req.StudentID) {
			result.Decisions = append(result.Decisions, Decision{
				StudentID:  req.StudentID,
				CourseCode: code,
				Status:     StatusAssigned,
				Rank:       rank,
			})
			continue
		}

		if !e.prerequisitesMet(slot, req.StudentID, held) {
			result.Decisions = append(result.Decisions,
				rejected(req.StudentID, code, rank, ReasonPrerequisiteNotMet))
			continue
		}
		if e.conflicts(code, held) {
			result.Decisions = append(result.Decisions,
				rejected(req.StudentID, code, rank, ReasonScheduleConflict))
			continue
		}
		if credits+slot.Credits > limit {
			result.Decisions = append(result.Decisions,
				rejected(req.StudentID, code, rank, ReasonCreditLimitExceeded))
			continue
		}

		if len(slot.Assigned) < slot.Capacity {
			slot.Assigned[req.StudentID] = struct{}{}
			held = append(held, code)
			credits += slot.Credits
			result.Decisions = append(result.Decisions, Decision{
				StudentID:  req.StudentID,
				CourseCode: code,
				Status:     StatusAssigned,
				Rank:       rank,
			})
			continue
		}

		if !slot.isWaitlisted(req.StudentID) {
			slot.insertWaitlist(WaitlistEntry{
				StudentID:   req.StudentID,
				SubmittedAt: req.SubmittedAt,
				Sequence:    req.Sequence,
			})
		}
		result.Decisions = append(result.Decisions, Decision{
			StudentID:  req.StudentID,
			CourseCode: code,
			Status:     StatusWaitlisted,
			Rank:       rank,
		})
	}
}

// prerequisitesMet reports whether every prerequisite is either completed
// (policy predicate) or currently held by the student
func (e *Engine) prerequisitesMet(slot *CourseSlot, studentID string, held []string) bool {
	for _, prereq := range slot.Prerequisites {
		if e.policy.Completed(studentID, prereq) {
			continue
		}
		if containsCourse(held, prereq) {
			continue
		}
		return false
	}
	return true
}

func (e *Engine) conflicts(code string, held []string) bool {
	for _, other := range held {
		if e.policy.Conflicts(code, other) {
			return true
		}
	}
	return false
}

func rejected(studentID, courseCode string, rank int, reason RejectReason) Decision {
	return Decision{
		StudentID:  studentID,
		CourseCode: courseCode,
		Status:     StatusRejected,
		Reason:     reason,
		Rank:       rank,
	}
}

// enrolledCourses lists the courses a student currently holds in the working
// snapshot, sorted so the walk is deterministic
func enrolledCourses(courses map[string]*CourseSlot, studentID string) []string {
	var held []string
	for code, slot := range courses {
		if slot.isAssigned(studentID) {
			held = append(held, code)
		}
	}
	sort.Strings(held)
	return held
}

func containsCourse(courses []string, code string) bool {
	for _, c := range courses {
		if c == code {
			return true
		}
	}
	return false
}
