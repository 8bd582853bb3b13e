package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aliyavuz/registrar/internal/allocation"
	"github.com/aliyavuz/registrar/internal/app/models"
	"github.com/aliyavuz/registrar/internal/app/repositories"
	"github.com/aliyavuz/registrar/internal/metrics"
	"github.com/aliyavuz/registrar/internal/pkg/apperrors"
)

// CourseStore is the course data the allocation service reads and commits
type CourseStore interface {
	TermSnapshot(ctx context.Context, year int, term models.Term) (map[string]*allocation.CourseSlot, error)
	CourseSnapshot(ctx context.Context, code string, year int, term models.Term) (*allocation.CourseSlot, error)
	ConflictGroups(ctx context.Context) (map[string]string, error)
}

// RequestStore serves enrollment requests as engine input
type RequestStore interface {
	ListByTerm(ctx context.Context, year int, term models.Term) ([]allocation.StudentRequest, error)
}

// StudentStore serves student policy inputs
type StudentStore interface {
	GetProfiles(ctx context.Context, identifiers []string) (map[string]*models.StudentProfile, error)
	GetStates(ctx context.Context, identifiers []string, year int, term models.Term) (map[string]allocation.StudentState, error)
}

// RunStore persists run outcomes
type RunStore interface {
	CommitRun(ctx context.Context, run *models.AllocationRun, decisions []allocation.Decision, courses map[string]*allocation.CourseSlot) error
	CommitPromotion(ctx context.Context, run *models.AllocationRun, decisions []allocation.Decision, course *allocation.CourseSlot) error
	GetRun(ctx context.Context, id string) (*models.AllocationRun, error)
	GetRunDecisions(ctx context.Context, runID string) ([]models.AllocationDecision, error)
	RemoveAssignment(ctx context.Context, courseCode, studentID string, year int, term models.Term) (bool, error)
}

// DecisionSink is notified after a pass or promotion commits. Sinks run
// synchronously in registration order; a slow sink delays the response, not
// the commit.
type DecisionSink func(run *models.AllocationRun, decisions []allocation.Decision)

// AllocationOptions tunes engine behavior per deployment
type AllocationOptions struct {
	DefaultCreditLimit   int
	ValidationAbortRatio float64
}

// AllocationService orchestrates allocation passes and waitlist promotions.
// All I/O happens before the engine runs; the engine works on in-memory
// snapshots only, and passes for the same term are serialized.
type AllocationService struct {
	courses  CourseStore
	requests RequestStore
	students StudentStore
	runs     RunStore
	options  AllocationOptions
	logger   zerolog.Logger

	sinks []DecisionSink

	mu        sync.Mutex
	termLocks map[string]*sync.Mutex
}

// NewAllocationService creates a new allocation service instance
func NewAllocationService(
	courses CourseStore,
	requests RequestStore,
	students StudentStore,
	runs RunStore,
	options AllocationOptions,
	logger zerolog.Logger,
) *AllocationService {
	return &AllocationService{
		courses:   courses,
		requests:  requests,
		students:  students,
		runs:      runs,
		options:   options,
		logger:    logger,
		termLocks: make(map[string]*sync.Mutex),
	}
}

// AddDecisionSink registers a callback invoked after each committed pass or
// promotion
func (s *AllocationService) AddDecisionSink(sink DecisionSink) {
	s.sinks = append(s.sinks, sink)
}

// RunPass executes one full allocation pass for a term and commits its
// outcome. The returned result carries the decision sequence and validation
// errors of the committed run.
func (s *AllocationService) RunPass(ctx context.Context, year int, term models.Term) (*models.AllocationRun, *allocation.Result, error) {
	unlock := s.lockTerm(year, term)
	defer unlock()

	started := time.Now()

	requests, err := s.requests.ListByTerm(ctx, year, term)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading requests: %w", err)
	}

	snapshot, err := s.courses.TermSnapshot(ctx, year, term)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading course snapshot: %w", err)
	}

	studentIDs := make([]string, 0, len(requests))
	seen := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		if _, ok := seen[req.StudentID]; ok {
			continue
		}
		seen[req.StudentID] = struct{}{}
		studentIDs = append(studentIDs, req.StudentID)
	}

	profiles, err := s.students.GetProfiles(ctx, studentIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading student profiles: %w", err)
	}

	// Committed credits include seats already held this term, so a standing
	// assignment from an earlier pass counts against the cap here exactly as
	// it does on the promotion path. The engine re-assigns held courses
	// without charging credits again.
	states, err := s.students.GetStates(ctx, studentIDs, year, term)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading student states: %w", err)
	}
	for i := range requests {
		if state, ok := states[requests[i].StudentID]; ok {
			requests[i].CommittedCredits = state.CommittedCredits
		}
	}

	policy, err := s.buildPolicy(ctx, profiles)
	if err != nil {
		return nil, nil, err
	}

	engine := allocation.New(policy,
		allocation.WithValidationAbortRatio(s.options.ValidationAbortRatio))

	result, err := engine.Run(ctx, allocation.Input{
		Requests: requests,
		Courses:  snapshot,
	})
	if err != nil {
		metrics.AllocationPassesTotal.WithLabelValues("aborted").Inc()
		s.logger.Error().Err(err).Int("year", year).Str("term", string(term)).
			Msg("Allocation pass aborted, no state applied")
		return nil, nil, err
	}

	run := &models.AllocationRun{
		ID:           result.RunID,
		AcademicYear: year,
		Term:         term,
		Status:       models.RunStatusCommitted,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.runs.CommitRun(ctx, run, result.Decisions, result.Courses); err != nil {
		metrics.AllocationPassesTotal.WithLabelValues("aborted").Inc()
		return nil, nil, fmt.Errorf("error committing run: %w", err)
	}

	s.recordPass(result, started)
	s.notify(run, result.Decisions)

	s.logger.Info().
		Str("runId", run.ID).
		Int("decisions", len(result.Decisions)).
		Int("validationErrors", len(result.Errors)).
		Dur("duration", time.Since(started)).
		Msg("Allocation pass committed")

	return run, result, nil
}

// GetRun retrieves a committed run with its decision sequence
func (s *AllocationService) GetRun(ctx context.Context, id string) (*models.AllocationRun, []models.AllocationDecision, error) {
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRunNotFound) {
			return nil, nil, apperrors.ErrRunNotFound
		}
		return nil, nil, fmt.Errorf("error retrieving run: %w", err)
	}

	decisions, err := s.runs.GetRunDecisions(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("error retrieving decisions: %w", err)
	}

	return run, decisions, nil
}

// Withdraw removes a student's assignment and reports the freed seat. The
// engine never drops an assigned student on its own; this is the explicit
// external withdrawal path. It holds the term lock so a concurrent pass
// cannot commit a snapshot taken before the removal.
func (s *AllocationService) Withdraw(ctx context.Context, courseCode, studentID string, year int, term models.Term) (allocation.PromotionEvent, error) {
	unlock := s.lockTerm(year, term)
	defer unlock()

	removed, err := s.runs.RemoveAssignment(ctx, courseCode, studentID, year, term)
	if err != nil {
		return allocation.PromotionEvent{}, fmt.Errorf("error withdrawing: %w", err)
	}
	if !removed {
		return allocation.PromotionEvent{}, apperrors.ErrAssignmentNotFound
	}

	s.logger.Info().Str("course", courseCode).Str("student", studentID).
		Msg("Assignment withdrawn, seat freed")

	return allocation.PromotionEvent{CourseCode: courseCode, FreedCount: 1}, nil
}

// HandlePromotion processes one promotion event against a single course.
// Each event is individually atomic; seats consumed are bounded by actual
// capacity headroom so replays are no-ops.
func (s *AllocationService) HandlePromotion(ctx context.Context, event allocation.PromotionEvent, year int, term models.Term) error {
	unlock := s.lockTerm(year, term)
	defer unlock()

	slot, err := s.courses.CourseSnapshot(ctx, event.CourseCode, year, term)
	if err != nil {
		if errors.Is(err, repositories.ErrCourseNotFound) {
			return fmt.Errorf("promotion for unknown course %s: %w", event.CourseCode, err)
		}
		return fmt.Errorf("error loading course snapshot: %w", err)
	}

	waitlisted := make([]string, 0, len(slot.Waitlist))
	for _, entry := range slot.Waitlist {
		waitlisted = append(waitlisted, entry.StudentID)
	}

	states, err := s.students.GetStates(ctx, waitlisted, year, term)
	if err != nil {
		return fmt.Errorf("error loading student states: %w", err)
	}

	profiles, err := s.students.GetProfiles(ctx, waitlisted)
	if err != nil {
		return fmt.Errorf("error loading student profiles: %w", err)
	}

	policy, err := s.buildPolicy(ctx, profiles)
	if err != nil {
		return err
	}

	result, err := allocation.New(policy).Promote(ctx, allocation.PromotionInput{
		Event:    event,
		Course:   slot,
		Students: states,
	})
	if err != nil {
		metrics.PromotionEventsTotal.WithLabelValues("failed").Inc()
		return err
	}

	if len(result.Decisions) == 0 {
		metrics.PromotionEventsTotal.WithLabelValues("noop").Inc()
		return nil
	}

	run := &models.AllocationRun{
		ID:           newRunID(),
		AcademicYear: year,
		Term:         term,
		Status:       models.RunStatusCommitted,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.runs.CommitPromotion(ctx, run, result.Decisions, result.Course); err != nil {
		metrics.PromotionEventsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("error committing promotion: %w", err)
	}

	metrics.PromotionEventsTotal.WithLabelValues("committed").Inc()
	metrics.WaitlistDepth.WithLabelValues(event.CourseCode).Set(float64(len(result.Course.Waitlist)))
	s.notify(run, result.Decisions)

	s.logger.Info().
		Str("course", event.CourseCode).
		Int("freed", event.FreedCount).
		Int("decisions", len(result.Decisions)).
		Msg("Promotion event processed")

	return nil
}

// buildPolicy assembles the engine's policy predicates from stored conflict
// groups and student records
func (s *AllocationService) buildPolicy(ctx context.Context, profiles map[string]*models.StudentProfile) (allocation.Policy, error) {
	groups, err := s.courses.ConflictGroups(ctx)
	if err != nil {
		return allocation.Policy{}, fmt.Errorf("error loading conflict groups: %w", err)
	}

	completed := make(map[string]map[string]struct{}, len(profiles))
	for id, profile := range profiles {
		set := make(map[string]struct{}, len(profile.CompletedCourses))
		for _, code := range profile.CompletedCourses {
			set[code] = struct{}{}
		}
		completed[id] = set
	}

	defaultLimit := s.options.DefaultCreditLimit

	return allocation.Policy{
		Conflicts: func(a, b string) bool {
			if a == b {
				return false
			}
			groupA, okA := groups[a]
			groupB, okB := groups[b]
			return okA && okB && groupA == groupB
		},
		CreditLimit: func(studentID string) int {
			if profile, ok := profiles[studentID]; ok && profile.CreditLimit > 0 {
				return profile.CreditLimit
			}
			return defaultLimit
		},
		Completed: func(studentID, courseCode string) bool {
			set, ok := completed[studentID]
			if !ok {
				return false
			}
			_, done := set[courseCode]
			return done
		},
	}, nil
}

// lockTerm serializes passes, promotions and withdrawals touching the same
// term's course set
func (s *AllocationService) lockTerm(year int, term models.Term) func() {
	key := fmt.Sprintf("%d/%s", year, term)

	s.mu.Lock()
	lock, ok := s.termLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.termLocks[key] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *AllocationService) recordPass(result *allocation.Result, started time.Time) {
	metrics.AllocationPassesTotal.WithLabelValues("committed").Inc()
	metrics.PassDurationSeconds.Observe(time.Since(started).Seconds())

	counts := make(map[string]int, 3)
	for _, d := range result.Decisions {
		counts[string(d.Status)]++
	}
	metrics.ObserveDecisions(counts)

	for code, slot := range result.Courses {
		metrics.WaitlistDepth.WithLabelValues(code).Set(float64(len(slot.Waitlist)))
	}
}

func (s *AllocationService) notify(run *models.AllocationRun, decisions []allocation.Decision) {
	for _, sink := range s.sinks {
		sink(run, decisions)
	}
}

func newRunID() string {
	return uuid.New().String()
}
