package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliyavuz/registrar/internal/allocation"
	"github.com/aliyavuz/registrar/internal/app/models"
)

// Allocation error types
var (
	ErrRunNotFound = errors.New("allocation run not found")
)

// AllocationRepository persists allocation runs, their immutable decision
// sequences and the resulting per-term enrollment state
type AllocationRepository struct {
	db *pgxpool.Pool
}

// NewAllocationRepository creates a new allocation repository
func NewAllocationRepository(db *pgxpool.Pool) *AllocationRepository {
	return &AllocationRepository{
		db: db,
	}
}

// CommitRun applies the outcome of a successful pass in a single
// transaction: the run record, its decision sequence and the replaced
// assignment/waitlist state for every course in the snapshot
func (r *AllocationRepository) CommitRun(ctx context.Context, run *models.AllocationRun, decisions []allocation.Decision, courses map[string]*allocation.CourseSlot) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.insertRun(ctx, tx, run); err != nil {
		return err
	}
	if err := r.insertDecisions(ctx, tx, run.ID, decisions); err != nil {
		return err
	}
	for _, slot := range courses {
		if err := r.replaceCourseState(ctx, tx, run, slot); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// CommitPromotion applies one promotion event's outcome atomically: a run
// record for the event, its decisions and the updated single-course state
func (r *AllocationRepository) CommitPromotion(ctx context.Context, run *models.AllocationRun, decisions []allocation.Decision, course *allocation.CourseSlot) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.insertRun(ctx, tx, run); err != nil {
		return err
	}
	if err := r.insertDecisions(ctx, tx, run.ID, decisions); err != nil {
		return err
	}
	if err := r.replaceCourseState(ctx, tx, run, course); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetRun retrieves a run record by its id
func (r *AllocationRepository) GetRun(ctx context.Context, id string) (*models.AllocationRun, error) {
	query := `
		SELECT id, academic_year, term, status, created_at
		FROM allocation_runs
		WHERE id = $1
	`

	var run models.AllocationRun
	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.AcademicYear,
		&run.Term,
		&run.Status,
		&run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("error retrieving run: %w", err)
	}

	return &run, nil
}

// GetRunDecisions retrieves a run's decision sequence in processing order
func (r *AllocationRepository) GetRunDecisions(ctx context.Context, runID string) ([]models.AllocationDecision, error) {
	query := `
		SELECT id, run_id, ordinal, student_identifier, course_code, status, COALESCE(reason, ''), COALESCE(rank, 0)
		FROM allocation_decisions
		WHERE run_id = $1
		ORDER BY ordinal
	`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []models.AllocationDecision
	for rows.Next() {
		var d models.AllocationDecision
		if err := rows.Scan(
			&d.ID,
			&d.RunID,
			&d.Ordinal,
			&d.StudentIdentifier,
			&d.CourseCode,
			&d.Status,
			&d.Reason,
			&d.Rank,
		); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}

	return decisions, rows.Err()
}

// RemoveAssignment deletes one (course, student) assignment for a term and
// reports whether a row was actually removed
func (r *AllocationRepository) RemoveAssignment(ctx context.Context, courseCode, studentID string, year int, term models.Term) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM course_assignments
		WHERE course_code = $1 AND student_identifier = $2 AND academic_year = $3 AND term = $4
	`, courseCode, studentID, year, term)
	if err != nil {
		return false, fmt.Errorf("error removing assignment: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *AllocationRepository) insertRun(ctx context.Context, tx pgx.Tx, run *models.AllocationRun) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO allocation_runs (id, academic_year, term, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, run.ID, run.AcademicYear, run.Term, run.Status, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting run: %w", err)
	}
	return nil
}

func (r *AllocationRepository) insertDecisions(ctx context.Context, tx pgx.Tx, runID string, decisions []allocation.Decision) error {
	for i, d := range decisions {
		var reason *string
		if d.Reason != "" {
			s := string(d.Reason)
			reason = &s
		}
		var rank *int
		if d.Rank > 0 {
			rank = &d.Rank
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO allocation_decisions (run_id, ordinal, student_identifier, course_code, status, reason, rank)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, runID, i+1, d.StudentID, d.CourseCode, d.Status, reason, rank)
		if err != nil {
			return fmt.Errorf("error inserting decision %d: %w", i+1, err)
		}
	}
	return nil
}

// replaceCourseState swaps a course's term assignments and waitlist for the
// post-run state
func (r *AllocationRepository) replaceCourseState(ctx context.Context, tx pgx.Tx, run *models.AllocationRun, slot *allocation.CourseSlot) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM course_assignments
		WHERE course_code = $1 AND academic_year = $2 AND term = $3
	`, slot.CourseCode, run.AcademicYear, run.Term)
	if err != nil {
		return fmt.Errorf("error clearing assignments for %s: %w", slot.CourseCode, err)
	}

	for studentID := range slot.Assigned {
		_, err = tx.Exec(ctx, `
			INSERT INTO course_assignments (course_code, student_identifier, academic_year, term)
			VALUES ($1, $2, $3, $4)
		`, slot.CourseCode, studentID, run.AcademicYear, run.Term)
		if err != nil {
			return fmt.Errorf("error inserting assignment for %s: %w", slot.CourseCode, err)
		}
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM course_waitlist
		WHERE course_code = $1 AND academic_year = $2 AND term = $3
	`, slot.CourseCode, run.AcademicYear, run.Term)
	if err != nil {
		return fmt.Errorf("error clearing waitlist for %s: %w", slot.CourseCode, err)
	}

	for _, entry := range slot.Waitlist {
		_, err = tx.Exec(ctx, `
			INSERT INTO course_waitlist (course_code, student_identifier, academic_year, term, submitted_at, sequence)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, slot.CourseCode, entry.StudentID, run.AcademicYear, run.Term, entry.SubmittedAt, entry.Sequence)
		if err != nil {
			return fmt.Errorf("error inserting waitlist entry for %s: %w", slot.CourseCode, err)
		}
	}

	return nil
}
