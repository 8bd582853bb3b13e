package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliyavuz/registrar/internal/app/models"
	"github.com/aliyavuz/registrar/internal/app/repositories"
	"github.com/aliyavuz/registrar/internal/pkg/apperrors"
)

type fakeRequestWriter struct {
	submitted []*models.EnrollmentRequest
	latest    *models.EnrollmentRequest
}

func (f *fakeRequestWriter) Submit(ctx context.Context, request *models.EnrollmentRequest) error {
	request.ID = int64(len(f.submitted) + 1)
	request.Sequence = request.ID
	f.submitted = append(f.submitted, request)
	return nil
}

func (f *fakeRequestWriter) GetLatestByStudent(ctx context.Context, studentID string, year int, term models.Term) (*models.EnrollmentRequest, error) {
	if f.latest == nil {
		return nil, repositories.ErrRequestNotFound
	}
	return f.latest, nil
}

type fakeStudentReader struct {
	known map[string]bool
}

func (f *fakeStudentReader) GetByIdentifier(ctx context.Context, identifier string) (*models.StudentProfile, error) {
	if !f.known[identifier] {
		return nil, repositories.ErrStudentNotFound
	}
	return &models.StudentProfile{Identifier: identifier}, nil
}

func newEnrollmentFixture(known ...string) (*EnrollmentService, *fakeRequestWriter) {
	students := &fakeStudentReader{known: make(map[string]bool)}
	for _, id := range known {
		students.known[id] = true
	}
	requests := &fakeRequestWriter{}
	return NewEnrollmentService(requests, students, zerolog.Nop()), requests
}

func TestSubmitRequestStoresPreferences(t *testing.T) {
	svc, requests := newEnrollmentFixture("S1")

	request := &models.EnrollmentRequest{
		StudentIdentifier: "S1",
		AcademicYear:      2026,
		Term:              models.TermFall,
		Preferences:       []string{"CS101", "MATH101"},
	}

	require.NoError(t, svc.SubmitRequest(context.Background(), request))
	require.Len(t, requests.submitted, 1)
	assert.False(t, request.SubmittedAt.IsZero())
	assert.Equal(t, request.ID, request.Sequence)
}

func TestSubmitRequestRejectsEmptyPreferences(t *testing.T) {
	svc, _ := newEnrollmentFixture("S1")

	err := svc.SubmitRequest(context.Background(), &models.EnrollmentRequest{
		StudentIdentifier: "S1",
	})
	assert.ErrorIs(t, err, apperrors.ErrEmptyPreferences)
}

func TestSubmitRequestRejectsDuplicatePreferences(t *testing.T) {
	svc, _ := newEnrollmentFixture("S1")

	err := svc.SubmitRequest(context.Background(), &models.EnrollmentRequest{
		StudentIdentifier: "S1",
		Preferences:       []string{"CS101", "MATH101", "CS101"},
	})
	assert.ErrorIs(t, err, apperrors.ErrDuplicatePreferences)
}

func TestSubmitRequestUnknownStudent(t *testing.T) {
	svc, _ := newEnrollmentFixture()

	err := svc.SubmitRequest(context.Background(), &models.EnrollmentRequest{
		StudentIdentifier: "S9",
		Preferences:       []string{"CS101"},
	})
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
}

func TestSubmitRequestKeepsCallerTimestamp(t *testing.T) {
	svc, _ := newEnrollmentFixture("S1")

	submitted := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	request := &models.EnrollmentRequest{
		StudentIdentifier: "S1",
		Preferences:       []string{"CS101"},
		SubmittedAt:       submitted,
	}

	require.NoError(t, svc.SubmitRequest(context.Background(), request))
	assert.Equal(t, submitted, request.SubmittedAt)
}

func TestGetLatestRequestNotFound(t *testing.T) {
	svc, _ := newEnrollmentFixture("S1")

	_, err := svc.GetLatestRequest(context.Background(), "S1", 2026, models.TermFall)
	assert.ErrorIs(t, err, apperrors.ErrRequestNotFound)
}
