package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliyavuz/registrar/internal/allocation"
	"github.com/aliyavuz/registrar/internal/app/models"
	"github.com/aliyavuz/registrar/internal/pkg/dberrors"
)

// Course error types
var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrCourseAlreadyExists = errors.New("course with this code already exists")
)

// CourseRepository handles database operations for the course catalog and
// per-term enrollment state
type CourseRepository struct {
	db *pgxpool.Pool
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{
		db: db,
	}
}

// Create creates a new course with its prerequisites
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO courses (code, title, description, credits, capacity, conflict_group)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = tx.QueryRow(ctx, query,
		course.Code,
		course.Title,
		course.Description,
		course.Credits,
		course.Capacity,
		course.ConflictGroup,
	).Scan(&course.ID)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "courses_code_key") {
			return ErrCourseAlreadyExists
		}
		return err
	}

	for _, prereq := range course.Prerequisites {
		_, err = tx.Exec(ctx,
			`INSERT INTO course_prerequisites (course_code, prerequisite_code) VALUES ($1, $2)`,
			course.Code, prereq)
		if err != nil {
			if dberrors.IsForeignKeyViolation(err) {
				return fmt.Errorf("prerequisite %s: %w", prereq, ErrCourseNotFound)
			}
			return fmt.Errorf("error inserting prerequisite %s: %w", prereq, err)
		}
	}

	return tx.Commit(ctx)
}

// GetByCode retrieves a course by its code, including prerequisites
func (r *CourseRepository) GetByCode(ctx context.Context, code string) (*models.Course, error) {
	query := `
		SELECT id, code, title, description, credits, capacity, conflict_group
		FROM courses
		WHERE code = $1
	`

	var course models.Course
	err := r.db.QueryRow(ctx, query, code).Scan(
		&course.ID,
		&course.Code,
		&course.Title,
		&course.Description,
		&course.Credits,
		&course.Capacity,
		&course.ConflictGroup,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("error retrieving course: %w", err)
	}

	prereqs, err := r.getPrerequisites(ctx, code)
	if err != nil {
		return nil, err
	}
	course.Prerequisites = prereqs

	return &course, nil
}

// GetAll retrieves the full course catalog
func (r *CourseRepository) GetAll(ctx context.Context) ([]*models.Course, error) {
	query := `
		SELECT id, code, title, description, credits, capacity, conflict_group
		FROM courses
		ORDER BY code
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		var course models.Course
		if err := rows.Scan(
			&course.ID,
			&course.Code,
			&course.Title,
			&course.Description,
			&course.Credits,
			&course.Capacity,
			&course.ConflictGroup,
		); err != nil {
			return nil, err
		}
		courses = append(courses, &course)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return courses, nil
}

// ConflictGroups returns the conflict group of every course that has one,
// keyed by course code
func (r *CourseRepository) ConflictGroups(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT code, conflict_group FROM courses WHERE conflict_group IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make(map[string]string)
	for rows.Next() {
		var code, group string
		if err := rows.Scan(&code, &group); err != nil {
			return nil, err
		}
		groups[code] = group
	}

	return groups, rows.Err()
}

// TermSnapshot loads the full course state for a term as engine input:
// capacity, prerequisites, current assignments and waitlists
func (r *CourseRepository) TermSnapshot(ctx context.Context, year int, term models.Term) (map[string]*allocation.CourseSlot, error) {
	courses, err := r.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading catalog: %w", err)
	}

	snapshot := make(map[string]*allocation.CourseSlot, len(courses))
	for _, course := range courses {
		prereqs, err := r.getPrerequisites(ctx, course.Code)
		if err != nil {
			return nil, err
		}
		snapshot[course.Code] = &allocation.CourseSlot{
			CourseCode:    course.Code,
			Capacity:      course.Capacity,
			Credits:       course.Credits,
			Prerequisites: prereqs,
			Assigned:      make(map[string]struct{}),
		}
	}

	rows, err := r.db.Query(ctx, `
		SELECT course_code, student_identifier
		FROM course_assignments
		WHERE academic_year = $1 AND term = $2
	`, year, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var courseCode, studentID string
		if err := rows.Scan(&courseCode, &studentID); err != nil {
			return nil, err
		}
		if slot, ok := snapshot[courseCode]; ok {
			slot.Assigned[studentID] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	wlRows, err := r.db.Query(ctx, `
		SELECT course_code, student_identifier, submitted_at, sequence
		FROM course_waitlist
		WHERE academic_year = $1 AND term = $2
		ORDER BY course_code, submitted_at, sequence
	`, year, term)
	if err != nil {
		return nil, err
	}
	defer wlRows.Close()

	for wlRows.Next() {
		var courseCode string
		var entry allocation.WaitlistEntry
		if err := wlRows.Scan(&courseCode, &entry.StudentID, &entry.SubmittedAt, &entry.Sequence); err != nil {
			return nil, err
		}
		if slot, ok := snapshot[courseCode]; ok {
			slot.Waitlist = append(slot.Waitlist, entry)
		}
	}

	return snapshot, wlRows.Err()
}

// CourseSnapshot loads the term state of a single course
func (r *CourseRepository) CourseSnapshot(ctx context.Context, code string, year int, term models.Term) (*allocation.CourseSlot, error) {
	course, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	slot := &allocation.CourseSlot{
		CourseCode:    course.Code,
		Capacity:      course.Capacity,
		Credits:       course.Credits,
		Prerequisites: course.Prerequisites,
		Assigned:      make(map[string]struct{}),
	}

	rows, err := r.db.Query(ctx, `
		SELECT student_identifier
		FROM course_assignments
		WHERE course_code = $1 AND academic_year = $2 AND term = $3
	`, code, year, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var studentID string
		if err := rows.Scan(&studentID); err != nil {
			return nil, err
		}
		slot.Assigned[studentID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	wlRows, err := r.db.Query(ctx, `
		SELECT student_identifier, submitted_at, sequence
		FROM course_waitlist
		WHERE course_code = $1 AND academic_year = $2 AND term = $3
		ORDER BY submitted_at, sequence
	`, code, year, term)
	if err != nil {
		return nil, err
	}
	defer wlRows.Close()

	for wlRows.Next() {
		var entry allocation.WaitlistEntry
		if err := wlRows.Scan(&entry.StudentID, &entry.SubmittedAt, &entry.Sequence); err != nil {
			return nil, err
		}
		slot.Waitlist = append(slot.Waitlist, entry)
	}

	return slot, wlRows.Err()
}

// UpdateCapacity changes a course's capacity and returns the previous value
func (r *CourseRepository) UpdateCapacity(ctx context.Context, code string, capacity int) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var previous int
	err = tx.QueryRow(ctx, `SELECT capacity FROM courses WHERE code = $1 FOR UPDATE`, code).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCourseNotFound
		}
		return 0, fmt.Errorf("error retrieving capacity: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE courses SET capacity = $2 WHERE code = $1`, code, capacity)
	if err != nil {
		return 0, fmt.Errorf("error updating capacity: %w", err)
	}

	return previous, tx.Commit(ctx)
}

func (r *CourseRepository) getPrerequisites(ctx context.Context, code string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT prerequisite_code
		FROM course_prerequisites
		WHERE course_code = $1
		ORDER BY prerequisite_code
	`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prereqs []string
	for rows.Next() {
		var prereq string
		if err := rows.Scan(&prereq); err != nil {
			return nil, err
		}
		prereqs = append(prereqs, prereq)
	}

	return prereqs, rows.Err()
}
