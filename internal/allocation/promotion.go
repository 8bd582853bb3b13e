package allocation

import (
	"context"
	"fmt"
)

// Promote reacts to seats freeing up on a single course by moving the
// earliest-eligible waitlisted students into assigned seats. Candidates are
// re-validated against their current state; a candidate that is no longer
// eligible is removed from the waitlist without consuming a seat.
//
// Seats consumed are bounded by the course's actual capacity headroom, not by
// the event alone, so replaying an already-consumed event is a no-op.
func (e *Engine) Promote(ctx context.Context, input PromotionInput) (*PromotionResult, error) {
	if input.Course == nil {
		return nil, &ConsistencyError{CourseCode: input.Event.CourseCode, Detail: "nil course slot"}
	}
	if err := checkSlot(input.Course.CourseCode, input.Course); err != nil {
		return nil, err
	}

	slot := input.Course.clone()
	result := &PromotionResult{Course: slot}

	seats := slot.Capacity - len(slot.Assigned)
	if input.Event.FreedCount < seats {
		seats = input.Event.FreedCount
	}

	for seats > 0 && len(slot.Waitlist) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("promotion cancelled: %w", err)
		}

		head := slot.Waitlist[0]
		slot.Waitlist = slot.Waitlist[1:]

		state, known := input.Students[head.StudentID]
		if !known || !e.eligible(slot, head.StudentID, state) {
			result.Decisions = append(result.Decisions,
				rejected(head.StudentID, slot.CourseCode, 0, ReasonNoLongerEligible))
			continue
		}

		slot.Assigned[head.StudentID] = struct{}{}
		seats--
		result.Decisions = append(result.Decisions, Decision{
			StudentID:  head.StudentID,
			CourseCode: slot.CourseCode,
			Status:     StatusAssigned,
		})
	}

	return result, nil
}

// eligible re-runs the pass validation steps against the student's current
// state, which may have changed since waitlisting
func (e *Engine) eligible(slot *CourseSlot, studentID string, state StudentState) bool {
	if !e.prerequisitesMet(slot, studentID, state.Enrolled) {
		return false
	}
	if e.conflicts(slot.CourseCode, state.Enrolled) {
		return false
	}
	return state.CommittedCredits+slot.Credits <= e.policy.CreditLimit(studentID)
}
