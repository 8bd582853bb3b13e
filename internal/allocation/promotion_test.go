package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitlistedSlot(code string, capacity int, assigned []string, waitlist ...string) *CourseSlot {
	slot := testSlot(code, capacity, 3)
	for _, id := range assigned {
		slot.Assigned[id] = struct{}{}
	}
	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range waitlist {
		slot.Waitlist = append(slot.Waitlist, WaitlistEntry{
			StudentID:   id,
			SubmittedAt: base.Add(time.Duration(i) * time.Second),
			Sequence:    int64(i + 1),
		})
	}
	return slot
}

func TestPromoteFillsFreedSeat(t *testing.T) {
	// S1 withdrew from a capacity-2 course: S3 comes off the waitlist.
	slot := waitlistedSlot("CS101", 2, []string{"S2"}, "S3")

	result, err := New(Policy{}).Promote(context.Background(), PromotionInput{
		Event:    PromotionEvent{CourseCode: "CS101", FreedCount: 1},
		Course:   slot,
		Students: map[string]StudentState{"S3": {}},
	})
	require.NoError(t, err)

	require.Len(t, result.Decisions, 1)
	assert.Equal(t, StatusAssigned, result.Decisions[0].Status)
	assert.Equal(t, "S3", result.Decisions[0].StudentID)
	assert.True(t, result.Course.isAssigned("S3"))
	assert.Empty(t, result.Course.Waitlist)
}

func TestPromoteFIFOOrder(t *testing.T) {
	slot := waitlistedSlot("CS101", 3, []string{"S1"}, "A", "B")

	result, err := New(Policy{}).Promote(context.Background(), PromotionInput{
		Event:    PromotionEvent{CourseCode: "CS101", FreedCount: 1},
		Course:   slot,
		Students: map[string]StudentState{"A": {}, "B": {}},
	})
	require.NoError(t, err)

	require.Len(t, result.Decisions, 1)
	assert.Equal(t, "A", result.Decisions[0].StudentID)
	require.Len(t, result.Course.Waitlist, 1)
	assert.Equal(t, "B", result.Course.Waitlist[0].StudentID)
}

func TestPromoteSkipsIneligibleWithoutConsumingSeat(t *testing.T) {
	// A hit their credit cap since waitlisting: removed with
	// no_longer_eligible, B takes the seat instead.
	policy := Policy{CreditLimit: func(string) int { return 12 }}
	slot := waitlistedSlot("CS101", 2, []string{"S1"}, "A", "B")

	result, err := New(policy).Promote(context.Background(), PromotionInput{
		Event:  PromotionEvent{CourseCode: "CS101", FreedCount: 1},
		Course: slot,
		Students: map[string]StudentState{
			"A": {CommittedCredits: 12},
			"B": {CommittedCredits: 3},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Decisions, 2)
	assert.Equal(t, StatusRejected, result.Decisions[0].Status)
	assert.Equal(t, ReasonNoLongerEligible, result.Decisions[0].Reason)
	assert.Equal(t, "A", result.Decisions[0].StudentID)
	assert.Equal(t, StatusAssigned, result.Decisions[1].Status)
	assert.Equal(t, "B", result.Decisions[1].StudentID)
	assert.Empty(t, result.Course.Waitlist)
}

func TestPromoteUnknownStudentStateIneligible(t *testing.T) {
	slot := waitlistedSlot("CS101", 2, []string{"S1"}, "A")

	result, err := New(Policy{}).Promote(context.Background(), PromotionInput{
		Event:  PromotionEvent{CourseCode: "CS101", FreedCount: 1},
		Course: slot,
	})
	require.NoError(t, err)

	require.Len(t, result.Decisions, 1)
	assert.Equal(t, ReasonNoLongerEligible, result.Decisions[0].Reason)
	assert.False(t, result.Course.isAssigned("A"))
}

func TestPromoteReplayIsNoOp(t *testing.T) {
	// Course already full again: replaying the event consumes nothing.
	slot := waitlistedSlot("CS101", 2, []string{"S1", "S2"}, "S3")

	result, err := New(Policy{}).Promote(context.Background(), PromotionInput{
		Event:    PromotionEvent{CourseCode: "CS101", FreedCount: 1},
		Course:   slot,
		Students: map[string]StudentState{"S3": {}},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Decisions)
	require.Len(t, result.Course.Waitlist, 1)
	assert.Equal(t, "S3", result.Course.Waitlist[0].StudentID)
}

func TestPromoteBoundedByHeadroomNotEvent(t *testing.T) {
	// Event claims 5 freed seats but only one is actually open.
	slot := waitlistedSlot("CS101", 2, []string{"S1"}, "A", "B")

	result, err := New(Policy{}).Promote(context.Background(), PromotionInput{
		Event:    PromotionEvent{CourseCode: "CS101", FreedCount: 5},
		Course:   slot,
		Students: map[string]StudentState{"A": {}, "B": {}},
	})
	require.NoError(t, err)

	require.Len(t, result.Decisions, 1)
	assert.Equal(t, "A", result.Decisions[0].StudentID)
	assert.Len(t, result.Course.Assigned, 2)
}

func TestPromoteCapacityIncrease(t *testing.T) {
	slot := waitlistedSlot("CS101", 4, []string{"S1", "S2"}, "A", "B")

	result, err := New(Policy{}).Promote(context.Background(), PromotionInput{
		Event:    PromotionEvent{CourseCode: "CS101", FreedCount: 2},
		Course:   slot,
		Students: map[string]StudentState{"A": {}, "B": {}},
	})
	require.NoError(t, err)

	require.Len(t, result.Decisions, 2)
	assert.True(t, result.Course.isAssigned("A"))
	assert.True(t, result.Course.isAssigned("B"))
	assert.Empty(t, result.Course.Waitlist)
}

func TestPromoteConflictMakesIneligible(t *testing.T) {
	policy := Policy{
		Conflicts: func(a, b string) bool { return a != b },
	}
	slot := waitlistedSlot("CS101", 2, []string{"S1"}, "A")

	result, err := New(policy).Promote(context.Background(), PromotionInput{
		Event:  PromotionEvent{CourseCode: "CS101", FreedCount: 1},
		Course: slot,
		Students: map[string]StudentState{
			"A": {Enrolled: []string{"MATH101"}},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Decisions, 1)
	assert.Equal(t, ReasonNoLongerEligible, result.Decisions[0].Reason)
}

func TestPromoteDoesNotMutateInput(t *testing.T) {
	slot := waitlistedSlot("CS101", 2, []string{"S1"}, "A")

	_, err := New(Policy{}).Promote(context.Background(), PromotionInput{
		Event:    PromotionEvent{CourseCode: "CS101", FreedCount: 1},
		Course:   slot,
		Students: map[string]StudentState{"A": {}},
	})
	require.NoError(t, err)

	assert.Len(t, slot.Waitlist, 1)
	assert.False(t, slot.isAssigned("A"))
}
