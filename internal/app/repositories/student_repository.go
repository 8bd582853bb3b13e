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

// Student error types
var (
	ErrStudentNotFound = errors.New("student not found")
)

// StudentRepository handles database operations for student records used as
// allocation policy inputs
type StudentRepository struct {
	db *pgxpool.Pool
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{
		db: db,
	}
}

// GetByIdentifier retrieves a single student profile
func (r *StudentRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.StudentProfile, error) {
	query := `
		SELECT id, identifier, credit_limit, committed_credits
		FROM students
		WHERE identifier = $1
	`

	var profile models.StudentProfile
	err := r.db.QueryRow(ctx, query, identifier).Scan(
		&profile.ID,
		&profile.Identifier,
		&profile.CreditLimit,
		&profile.CommittedCredits,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}

	return &profile, nil
}

// GetProfiles loads the profiles for a set of students, including their
// completed courses, keyed by student identifier
func (r *StudentRepository) GetProfiles(ctx context.Context, identifiers []string) (map[string]*models.StudentProfile, error) {
	if len(identifiers) == 0 {
		return map[string]*models.StudentProfile{}, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, identifier, credit_limit, committed_credits
		FROM students
		WHERE identifier = ANY($1)
	`, identifiers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make(map[string]*models.StudentProfile, len(identifiers))
	for rows.Next() {
		var profile models.StudentProfile
		if err := rows.Scan(
			&profile.ID,
			&profile.Identifier,
			&profile.CreditLimit,
			&profile.CommittedCredits,
		); err != nil {
			return nil, err
		}
		profiles[profile.Identifier] = &profile
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ccRows, err := r.db.Query(ctx, `
		SELECT student_identifier, course_code
		FROM completed_courses
		WHERE student_identifier = ANY($1)
	`, identifiers)
	if err != nil {
		return nil, err
	}
	defer ccRows.Close()

	for ccRows.Next() {
		var studentID, courseCode string
		if err := ccRows.Scan(&studentID, &courseCode); err != nil {
			return nil, err
		}
		if profile, ok := profiles[studentID]; ok {
			profile.CompletedCourses = append(profile.CompletedCourses, courseCode)
		}
	}

	return profiles, ccRows.Err()
}

// GetStates loads the current standing of a set of students for promotion
// re-validation: committed credits including this term's assignments, and the
// courses currently held
func (r *StudentRepository) GetStates(ctx context.Context, identifiers []string, year int, term models.Term) (map[string]allocation.StudentState, error) {
	if len(identifiers) == 0 {
		return map[string]allocation.StudentState{}, nil
	}

	states := make(map[string]allocation.StudentState, len(identifiers))

	rows, err := r.db.Query(ctx, `
		SELECT identifier, committed_credits
		FROM students
		WHERE identifier = ANY($1)
	`, identifiers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var identifier string
		var committed int
		if err := rows.Scan(&identifier, &committed); err != nil {
			return nil, err
		}
		states[identifier] = allocation.StudentState{CommittedCredits: committed}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	asgRows, err := r.db.Query(ctx, `
		SELECT a.student_identifier, a.course_code, c.credits
		FROM course_assignments a
		JOIN courses c ON c.code = a.course_code
		WHERE a.student_identifier = ANY($1) AND a.academic_year = $2 AND a.term = $3
	`, identifiers, year, term)
	if err != nil {
		return nil, err
	}
	defer asgRows.Close()

	for asgRows.Next() {
		var studentID, courseCode string
		var credits int
		if err := asgRows.Scan(&studentID, &courseCode, &credits); err != nil {
			return nil, err
		}
		state, ok := states[studentID]
		if !ok {
			continue
		}
		state.CommittedCredits += credits
		state.Enrolled = append(state.Enrolled, courseCode)
		states[studentID] = state
	}

	return states, asgRows.Err()
}
