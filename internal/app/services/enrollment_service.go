package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aliyavuz/registrar/internal/app/models"
	"github.com/aliyavuz/registrar/internal/app/repositories"
	"github.com/aliyavuz/registrar/internal/pkg/apperrors"
)

// RequestWriter persists enrollment requests
type RequestWriter interface {
	Submit(ctx context.Context, request *models.EnrollmentRequest) error
	GetLatestByStudent(ctx context.Context, studentID string, year int, term models.Term) (*models.EnrollmentRequest, error)
}

// StudentReader looks up student profiles
type StudentReader interface {
	GetByIdentifier(ctx context.Context, identifier string) (*models.StudentProfile, error)
}

// EnrollmentService handles enrollment request intake
type EnrollmentService struct {
	requests RequestWriter
	students StudentReader
	logger   zerolog.Logger
}

// NewEnrollmentService creates a new enrollment service instance
func NewEnrollmentService(requests RequestWriter, students StudentReader, logger zerolog.Logger) *EnrollmentService {
	return &EnrollmentService{
		requests: requests,
		students: students,
		logger:   logger,
	}
}

// SubmitRequest records a student's ranked preferences for a term. A later
// submission from the same student supersedes earlier ones at run time, so
// submitting twice is allowed and not an error.
func (s *EnrollmentService) SubmitRequest(ctx context.Context, request *models.EnrollmentRequest) error {
	if len(request.Preferences) == 0 {
		return apperrors.ErrEmptyPreferences
	}

	seen := make(map[string]struct{}, len(request.Preferences))
	for _, code := range request.Preferences {
		if _, ok := seen[code]; ok {
			return apperrors.NewCustomError(apperrors.ErrDuplicatePreferences,
				fmt.Sprintf("course %s appears more than once", code))
		}
		seen[code] = struct{}{}
	}

	if _, err := s.students.GetByIdentifier(ctx, request.StudentIdentifier); err != nil {
		if errors.Is(err, repositories.ErrStudentNotFound) {
			return apperrors.ErrStudentNotFound
		}
		return fmt.Errorf("error verifying student: %w", err)
	}

	if request.SubmittedAt.IsZero() {
		request.SubmittedAt = time.Now().UTC()
	}

	if err := s.requests.Submit(ctx, request); err != nil {
		return fmt.Errorf("error submitting request: %w", err)
	}

	s.logger.Info().
		Str("student", request.StudentIdentifier).
		Int("preferences", len(request.Preferences)).
		Int64("sequence", request.Sequence).
		Msg("Enrollment request submitted")

	return nil
}

// GetLatestRequest returns the student's most recent request for the term
func (s *EnrollmentService) GetLatestRequest(ctx context.Context, studentID string, year int, term models.Term) (*models.EnrollmentRequest, error) {
	request, err := s.requests.GetLatestByStudent(ctx, studentID, year, term)
	if err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, fmt.Errorf("error retrieving request: %w", err)
	}
	return request, nil
}
