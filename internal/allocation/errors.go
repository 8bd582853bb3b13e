package allocation

import (
	"errors"
	"fmt"
)

// ErrPassAborted is returned when a pass is cancelled or fails its validation
// threshold before commit. No state from an aborted pass may be applied.
var ErrPassAborted = errors.New("allocation pass aborted")

// ConsistencyError reports caller-supplied course state that breaks an
// engine invariant (assigned count over capacity, a student both assigned
// and waitlisted, out-of-order waitlist). It is fatal to the pass.
type ConsistencyError struct {
	CourseCode string
	Detail     string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation on course %s: %s", e.CourseCode, e.Detail)
}

// checkSnapshot validates the incoming course state before any work starts
func checkSnapshot(courses map[string]*CourseSlot) error {
	for code, slot := range courses {
		if err := checkSlot(code, slot); err != nil {
			return err
		}
	}
	return nil
}

func checkSlot(code string, slot *CourseSlot) error {
	if slot == nil {
		return &ConsistencyError{CourseCode: code, Detail: "nil course slot"}
	}
	if slot.Capacity <= 0 {
		return &ConsistencyError{CourseCode: code, Detail: "capacity must be positive"}
	}
	if len(slot.Assigned) > slot.Capacity {
		return &ConsistencyError{
			CourseCode: code,
			Detail:     fmt.Sprintf("assigned count %d exceeds capacity %d", len(slot.Assigned), slot.Capacity),
		}
	}
	for i, entry := range slot.Waitlist {
		if slot.isAssigned(entry.StudentID) {
			return &ConsistencyError{
				CourseCode: code,
				Detail:     fmt.Sprintf("student %s is both assigned and waitlisted", entry.StudentID),
			}
		}
		if i == 0 {
			continue
		}
		prev := slot.Waitlist[i-1]
		if entry.SubmittedAt.Before(prev.SubmittedAt) ||
			(entry.SubmittedAt.Equal(prev.SubmittedAt) && entry.Sequence <= prev.Sequence) {
			return &ConsistencyError{CourseCode: code, Detail: "waitlist is not in submission order"}
		}
	}
	return nil
}
