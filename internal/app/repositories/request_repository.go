package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliyavuz/registrar/internal/allocation"
	"github.com/aliyavuz/registrar/internal/app/models"
)

// Enrollment request error types
var (
	ErrRequestNotFound = errors.New("enrollment request not found")
)

// RequestRepository handles database operations for enrollment requests
type RequestRepository struct {
	db *pgxpool.Pool
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{
		db: db,
	}
}

// Submit stores a new request version with its ranked preferences. Earlier
// versions are kept; ordering supersedes them at run time by (timestamp,
// sequence). The row id doubles as the submission sequence number.
func (r *RequestRepository) Submit(ctx context.Context, request *models.EnrollmentRequest) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO enrollment_requests (student_identifier, academic_year, term, submitted_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err = tx.QueryRow(ctx, query,
		request.StudentIdentifier,
		request.AcademicYear,
		request.Term,
		request.SubmittedAt,
	).Scan(&request.ID)
	if err != nil {
		return fmt.Errorf("error inserting request: %w", err)
	}
	request.Sequence = request.ID

	for i, code := range request.Preferences {
		_, err = tx.Exec(ctx,
			`INSERT INTO request_preferences (request_id, rank, course_code) VALUES ($1, $2, $3)`,
			request.ID, i+1, code)
		if err != nil {
			return fmt.Errorf("error inserting preference %s: %w", code, err)
		}
	}

	return tx.Commit(ctx)
}

// GetLatestByStudent retrieves the current (latest) request version for a
// student in a term
func (r *RequestRepository) GetLatestByStudent(ctx context.Context, studentID string, year int, term models.Term) (*models.EnrollmentRequest, error) {
	query := `
		SELECT id, student_identifier, academic_year, term, submitted_at
		FROM enrollment_requests
		WHERE student_identifier = $1 AND academic_year = $2 AND term = $3
		ORDER BY submitted_at DESC, id DESC
		LIMIT 1
	`

	var request models.EnrollmentRequest
	err := r.db.QueryRow(ctx, query, studentID, year, term).Scan(
		&request.ID,
		&request.StudentIdentifier,
		&request.AcademicYear,
		&request.Term,
		&request.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("error retrieving request: %w", err)
	}
	request.Sequence = request.ID

	prefs, err := r.getPreferences(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	request.Preferences = prefs

	return &request, nil
}

// ListByTerm loads every request version for a term as engine input. The
// engine's ordering stage handles superseded versions and the committed
// credit total is filled in per student by the caller.
func (r *RequestRepository) ListByTerm(ctx context.Context, year int, term models.Term) ([]allocation.StudentRequest, error) {
	query := `
		SELECT r.id, r.student_identifier, r.submitted_at, p.course_code
		FROM enrollment_requests r
		JOIN request_preferences p ON p.request_id = r.id
		WHERE r.academic_year = $1 AND r.term = $2
		ORDER BY r.id, p.rank
	`

	rows, err := r.db.Query(ctx, query, year, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []allocation.StudentRequest
	var current *allocation.StudentRequest
	for rows.Next() {
		var (
			id          int64
			studentID   string
			submittedAt time.Time
			courseCode  string
		)
		if err := rows.Scan(&id, &studentID, &submittedAt, &courseCode); err != nil {
			return nil, err
		}
		if current == nil || current.Sequence != id {
			requests = append(requests, allocation.StudentRequest{
				StudentID:   studentID,
				SubmittedAt: submittedAt,
				Sequence:    id,
			})
			current = &requests[len(requests)-1]
		}
		current.Preferences = append(current.Preferences, courseCode)
	}

	return requests, rows.Err()
}

func (r *RequestRepository) getPreferences(ctx context.Context, requestID int64) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT course_code FROM request_preferences WHERE request_id = $1 ORDER BY rank`,
		requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		prefs = append(prefs, code)
	}

	return prefs, rows.Err()
}
