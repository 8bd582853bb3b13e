package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliyavuz/registrar/internal/allocation"
	"github.com/aliyavuz/registrar/internal/app/models"
	"github.com/aliyavuz/registrar/internal/app/repositories"
	"github.com/aliyavuz/registrar/internal/pkg/apperrors"
)

type fakeCourseStore struct {
	snapshot map[string]*allocation.CourseSlot
	groups   map[string]string
}

func (f *fakeCourseStore) TermSnapshot(ctx context.Context, year int, term models.Term) (map[string]*allocation.CourseSlot, error) {
	return f.snapshot, nil
}

func (f *fakeCourseStore) CourseSnapshot(ctx context.Context, code string, year int, term models.Term) (*allocation.CourseSlot, error) {
	return f.snapshot[code], nil
}

func (f *fakeCourseStore) ConflictGroups(ctx context.Context) (map[string]string, error) {
	if f.groups == nil {
		return map[string]string{}, nil
	}
	return f.groups, nil
}

type fakeRequestStore struct {
	requests []allocation.StudentRequest
}

func (f *fakeRequestStore) ListByTerm(ctx context.Context, year int, term models.Term) ([]allocation.StudentRequest, error) {
	return f.requests, nil
}

type fakeStudentStore struct {
	profiles map[string]*models.StudentProfile
	states   map[string]allocation.StudentState
}

func (f *fakeStudentStore) GetProfiles(ctx context.Context, identifiers []string) (map[string]*models.StudentProfile, error) {
	out := make(map[string]*models.StudentProfile)
	for _, id := range identifiers {
		if profile, ok := f.profiles[id]; ok {
			out[id] = profile
		}
	}
	return out, nil
}

func (f *fakeStudentStore) GetStates(ctx context.Context, identifiers []string, year int, term models.Term) (map[string]allocation.StudentState, error) {
	out := make(map[string]allocation.StudentState)
	for _, id := range identifiers {
		if state, ok := f.states[id]; ok {
			out[id] = state
		}
	}
	return out, nil
}

type fakeRunStore struct {
	runs       map[string]*models.AllocationRun
	decisions  map[string][]models.AllocationDecision
	commits    int
	promotions int
	removed    bool
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{
		runs:      make(map[string]*models.AllocationRun),
		decisions: make(map[string][]models.AllocationDecision),
	}
}

func (f *fakeRunStore) CommitRun(ctx context.Context, run *models.AllocationRun, decisions []allocation.Decision, courses map[string]*allocation.CourseSlot) error {
	f.commits++
	f.runs[run.ID] = run
	f.decisions[run.ID] = storedDecisions(run.ID, decisions)
	return nil
}

func (f *fakeRunStore) CommitPromotion(ctx context.Context, run *models.AllocationRun, decisions []allocation.Decision, course *allocation.CourseSlot) error {
	f.promotions++
	f.runs[run.ID] = run
	f.decisions[run.ID] = storedDecisions(run.ID, decisions)
	return nil
}

func (f *fakeRunStore) GetRun(ctx context.Context, id string) (*models.AllocationRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, repositories.ErrRunNotFound
	}
	return run, nil
}

func (f *fakeRunStore) GetRunDecisions(ctx context.Context, runID string) ([]models.AllocationDecision, error) {
	return f.decisions[runID], nil
}

func (f *fakeRunStore) RemoveAssignment(ctx context.Context, courseCode, studentID string, year int, term models.Term) (bool, error) {
	return f.removed, nil
}

func storedDecisions(runID string, decisions []allocation.Decision) []models.AllocationDecision {
	out := make([]models.AllocationDecision, 0, len(decisions))
	for i, d := range decisions {
		out = append(out, models.AllocationDecision{
			RunID:             runID,
			Ordinal:           i,
			StudentIdentifier: d.StudentID,
			CourseCode:        d.CourseCode,
			Status:            string(d.Status),
			Reason:            string(d.Reason),
			Rank:              d.Rank,
		})
	}
	return out
}

func newTestService(courses *fakeCourseStore, requests *fakeRequestStore, students *fakeStudentStore, runs *fakeRunStore) *AllocationService {
	return NewAllocationService(courses, requests, students, runs, AllocationOptions{
		DefaultCreditLimit:   21,
		ValidationAbortRatio: 0.5,
	}, zerolog.Nop())
}

func serviceSlot(code string, capacity, credits int) *allocation.CourseSlot {
	return &allocation.CourseSlot{
		CourseCode: code,
		Capacity:   capacity,
		Credits:    credits,
		Assigned:   make(map[string]struct{}),
	}
}

func TestRunPassCommitsDecisions(t *testing.T) {
	courses := &fakeCourseStore{snapshot: map[string]*allocation.CourseSlot{
		"CS101": serviceSlot("CS101", 2, 4),
	}}
	requests := &fakeRequestStore{requests: []allocation.StudentRequest{
		{StudentID: "S1", Preferences: []string{"CS101"}, SubmittedAt: time.Unix(1000, 0), Sequence: 1},
		{StudentID: "S2", Preferences: []string{"CS101"}, SubmittedAt: time.Unix(1001, 0), Sequence: 2},
	}}
	students := &fakeStudentStore{profiles: map[string]*models.StudentProfile{
		"S1": {Identifier: "S1", CreditLimit: 21},
		"S2": {Identifier: "S2", CreditLimit: 21},
	}}
	runs := newFakeRunStore()

	svc := newTestService(courses, requests, students, runs)

	run, result, err := svc.RunPass(context.Background(), 2026, models.TermFall)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusCommitted, run.Status)
	assert.Equal(t, 1, runs.commits)
	require.Len(t, result.Decisions, 2)
	assert.Equal(t, allocation.StatusAssigned, result.Decisions[0].Status)
	assert.Equal(t, allocation.StatusAssigned, result.Decisions[1].Status)
}

func TestRunPassNothingCommittedOnAbort(t *testing.T) {
	// Assigned beyond capacity makes the snapshot inconsistent
	bad := serviceSlot("CS101", 1, 4)
	bad.Assigned["S8"] = struct{}{}
	bad.Assigned["S9"] = struct{}{}

	courses := &fakeCourseStore{snapshot: map[string]*allocation.CourseSlot{"CS101": bad}}
	requests := &fakeRequestStore{requests: []allocation.StudentRequest{
		{StudentID: "S1", Preferences: []string{"CS101"}, SubmittedAt: time.Unix(1000, 0), Sequence: 1},
	}}
	students := &fakeStudentStore{profiles: map[string]*models.StudentProfile{}}
	runs := newFakeRunStore()

	svc := newTestService(courses, requests, students, runs)

	_, _, err := svc.RunPass(context.Background(), 2026, models.TermFall)
	require.Error(t, err)
	var consistencyErr *allocation.ConsistencyError
	assert.ErrorAs(t, err, &consistencyErr)
	assert.Equal(t, 0, runs.commits)
}

func TestRunPassAppliesConflictGroups(t *testing.T) {
	courses := &fakeCourseStore{
		snapshot: map[string]*allocation.CourseSlot{
			"PHYS101": serviceSlot("PHYS101", 10, 4),
			"CHEM101": serviceSlot("CHEM101", 10, 4),
		},
		groups: map[string]string{"PHYS101": "LAB_MON_AM", "CHEM101": "LAB_MON_AM"},
	}
	requests := &fakeRequestStore{requests: []allocation.StudentRequest{
		{StudentID: "S1", Preferences: []string{"PHYS101", "CHEM101"}, SubmittedAt: time.Unix(1000, 0), Sequence: 1},
	}}
	students := &fakeStudentStore{profiles: map[string]*models.StudentProfile{
		"S1": {Identifier: "S1", CreditLimit: 21},
	}}
	runs := newFakeRunStore()

	svc := newTestService(courses, requests, students, runs)

	_, result, err := svc.RunPass(context.Background(), 2026, models.TermFall)
	require.NoError(t, err)
	require.Len(t, result.Decisions, 2)
	assert.Equal(t, allocation.StatusAssigned, result.Decisions[0].Status)
	assert.Equal(t, allocation.StatusRejected, result.Decisions[1].Status)
	assert.Equal(t, allocation.ReasonScheduleConflict, result.Decisions[1].Reason)
}

func TestRunPassUsesDefaultCreditLimit(t *testing.T) {
	courses := &fakeCourseStore{snapshot: map[string]*allocation.CourseSlot{
		"CS101": serviceSlot("CS101", 10, 22),
	}}
	requests := &fakeRequestStore{requests: []allocation.StudentRequest{
		// No stored profile, so the configured default of 21 applies
		{StudentID: "S1", Preferences: []string{"CS101"}, SubmittedAt: time.Unix(1000, 0), Sequence: 1},
	}}
	students := &fakeStudentStore{profiles: map[string]*models.StudentProfile{}}
	runs := newFakeRunStore()

	svc := newTestService(courses, requests, students, runs)

	_, result, err := svc.RunPass(context.Background(), 2026, models.TermFall)
	require.NoError(t, err)
	require.Len(t, result.Decisions, 1)
	assert.Equal(t, allocation.StatusRejected, result.Decisions[0].Status)
	assert.Equal(t, allocation.ReasonCreditLimitExceeded, result.Decisions[0].Reason)
}

func TestRunPassCountsStandingAssignments(t *testing.T) {
	// S1 already holds 4-credit CS101 from an earlier pass and has a cap of
	// 6, so a second 4-credit course must be rejected even though the base
	// committed total is still zero.
	held := serviceSlot("CS101", 2, 4)
	held.Assigned["S1"] = struct{}{}

	courses := &fakeCourseStore{snapshot: map[string]*allocation.CourseSlot{
		"CS101":   held,
		"MATH201": serviceSlot("MATH201", 10, 4),
	}}
	requests := &fakeRequestStore{requests: []allocation.StudentRequest{
		{StudentID: "S1", Preferences: []string{"CS101", "MATH201"}, SubmittedAt: time.Unix(1000, 0), Sequence: 1},
	}}
	students := &fakeStudentStore{
		profiles: map[string]*models.StudentProfile{
			"S1": {Identifier: "S1", CreditLimit: 6},
		},
		states: map[string]allocation.StudentState{
			"S1": {CommittedCredits: 4, Enrolled: []string{"CS101"}},
		},
	}
	runs := newFakeRunStore()

	svc := newTestService(courses, requests, students, runs)

	_, result, err := svc.RunPass(context.Background(), 2026, models.TermFall)
	require.NoError(t, err)
	require.Len(t, result.Decisions, 2)
	assert.Equal(t, allocation.StatusAssigned, result.Decisions[0].Status)
	assert.Equal(t, allocation.StatusRejected, result.Decisions[1].Status)
	assert.Equal(t, allocation.ReasonCreditLimitExceeded, result.Decisions[1].Reason)
}

func TestRunPassNotifiesSinksAfterCommit(t *testing.T) {
	courses := &fakeCourseStore{snapshot: map[string]*allocation.CourseSlot{
		"CS101": serviceSlot("CS101", 5, 4),
	}}
	requests := &fakeRequestStore{requests: []allocation.StudentRequest{
		{StudentID: "S1", Preferences: []string{"CS101"}, SubmittedAt: time.Unix(1000, 0), Sequence: 1},
	}}
	students := &fakeStudentStore{profiles: map[string]*models.StudentProfile{}}
	runs := newFakeRunStore()

	svc := newTestService(courses, requests, students, runs)

	var notified []allocation.Decision
	svc.AddDecisionSink(func(run *models.AllocationRun, decisions []allocation.Decision) {
		notified = decisions
	})

	_, _, err := svc.RunPass(context.Background(), 2026, models.TermFall)
	require.NoError(t, err)
	require.Len(t, notified, 1)
	assert.Equal(t, "S1", notified[0].StudentID)
}

func TestGetRunReturnsStoredDecisions(t *testing.T) {
	courses := &fakeCourseStore{snapshot: map[string]*allocation.CourseSlot{
		"CS101": serviceSlot("CS101", 5, 4),
	}}
	requests := &fakeRequestStore{requests: []allocation.StudentRequest{
		{StudentID: "S1", Preferences: []string{"CS101"}, SubmittedAt: time.Unix(1000, 0), Sequence: 1},
	}}
	students := &fakeStudentStore{profiles: map[string]*models.StudentProfile{}}
	runs := newFakeRunStore()

	svc := newTestService(courses, requests, students, runs)

	committed, _, err := svc.RunPass(context.Background(), 2026, models.TermFall)
	require.NoError(t, err)

	run, decisions, err := svc.GetRun(context.Background(), committed.ID)
	require.NoError(t, err)
	assert.Equal(t, committed.ID, run.ID)
	require.Len(t, decisions, 1)
	assert.Equal(t, "S1", decisions[0].StudentIdentifier)
}

func TestGetRunUnknownID(t *testing.T) {
	svc := newTestService(&fakeCourseStore{}, &fakeRequestStore{}, &fakeStudentStore{}, newFakeRunStore())

	_, _, err := svc.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrRunNotFound)
}

func TestWithdrawFreesSeat(t *testing.T) {
	runs := newFakeRunStore()
	runs.removed = true

	svc := newTestService(&fakeCourseStore{}, &fakeRequestStore{}, &fakeStudentStore{}, runs)

	event, err := svc.Withdraw(context.Background(), "CS101", "S1", 2026, models.TermFall)
	require.NoError(t, err)
	assert.Equal(t, "CS101", event.CourseCode)
	assert.Equal(t, 1, event.FreedCount)
}

func TestWithdrawUnknownAssignment(t *testing.T) {
	svc := newTestService(&fakeCourseStore{}, &fakeRequestStore{}, &fakeStudentStore{}, newFakeRunStore())

	_, err := svc.Withdraw(context.Background(), "CS101", "S1", 2026, models.TermFall)
	assert.ErrorIs(t, err, apperrors.ErrAssignmentNotFound)
}

func TestWithdrawWaitsForTermLock(t *testing.T) {
	runs := newFakeRunStore()
	runs.removed = true

	svc := newTestService(&fakeCourseStore{}, &fakeRequestStore{}, &fakeStudentStore{}, runs)

	unlock := svc.lockTerm(2026, models.TermFall)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Withdraw(context.Background(), "CS101", "S1", 2026, models.TermFall)
		assert.NoError(t, err)
	}()

	select {
	case <-done:
		t.Fatal("withdraw completed while the term lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("withdraw never completed after the lock was released")
	}
}

func TestHandlePromotionFillsFreedSeat(t *testing.T) {
	slot := serviceSlot("CS101", 2, 4)
	slot.Assigned["S1"] = struct{}{}
	slot.Waitlist = []allocation.WaitlistEntry{
		{StudentID: "S2", SubmittedAt: time.Unix(1000, 0), Sequence: 1},
	}

	courses := &fakeCourseStore{snapshot: map[string]*allocation.CourseSlot{"CS101": slot}}
	students := &fakeStudentStore{
		profiles: map[string]*models.StudentProfile{
			"S2": {Identifier: "S2", CreditLimit: 21},
		},
		states: map[string]allocation.StudentState{
			"S2": {},
		},
	}
	runs := newFakeRunStore()

	svc := newTestService(courses, &fakeRequestStore{}, students, runs)

	err := svc.HandlePromotion(context.Background(),
		allocation.PromotionEvent{CourseCode: "CS101", FreedCount: 1}, 2026, models.TermFall)
	require.NoError(t, err)
	assert.Equal(t, 1, runs.promotions)
}

func TestHandlePromotionEmptyWaitlistIsNoop(t *testing.T) {
	courses := &fakeCourseStore{snapshot: map[string]*allocation.CourseSlot{
		"CS101": serviceSlot("CS101", 2, 4),
	}}
	runs := newFakeRunStore()

	svc := newTestService(courses, &fakeRequestStore{}, &fakeStudentStore{}, runs)

	err := svc.HandlePromotion(context.Background(),
		allocation.PromotionEvent{CourseCode: "CS101", FreedCount: 1}, 2026, models.TermFall)
	require.NoError(t, err)
	assert.Equal(t, 0, runs.promotions)
}
