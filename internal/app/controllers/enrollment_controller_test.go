package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliyavuz/registrar/internal/app/models"
	"github.com/aliyavuz/registrar/internal/app/models/dto"
	"github.com/aliyavuz/registrar/internal/app/repositories"
	"github.com/aliyavuz/registrar/internal/app/services"
)

type stubRequestWriter struct {
	submitted *models.EnrollmentRequest
}

func (s *stubRequestWriter) Submit(ctx context.Context, request *models.EnrollmentRequest) error {
	request.ID = 1
	request.Sequence = 1
	s.submitted = request
	return nil
}

func (s *stubRequestWriter) GetLatestByStudent(ctx context.Context, studentID string, year int, term models.Term) (*models.EnrollmentRequest, error) {
	if s.submitted == nil || s.submitted.StudentIdentifier != studentID {
		return nil, repositories.ErrRequestNotFound
	}
	return s.submitted, nil
}

type stubStudentReader struct {
	known map[string]bool
}

func (s *stubStudentReader) GetByIdentifier(ctx context.Context, identifier string) (*models.StudentProfile, error) {
	if !s.known[identifier] {
		return nil, repositories.ErrStudentNotFound
	}
	return &models.StudentProfile{Identifier: identifier}, nil
}

func newEnrollmentRouter(requests *stubRequestWriter, students *stubStudentReader) *gin.Engine {
	gin.SetMode(gin.TestMode)

	service := services.NewEnrollmentService(requests, students, zerolog.Nop())
	controller := NewEnrollmentController(service)

	router := gin.New()
	router.POST("/api/v1/requests", controller.SubmitRequest)
	router.GET("/api/v1/requests/:studentId", controller.GetLatestRequest)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestSubmitRequestEndpoint(t *testing.T) {
	requests := &stubRequestWriter{}
	students := &stubStudentReader{known: map[string]bool{"20260001": true}}
	router := newEnrollmentRouter(requests, students)

	recorder := postJSON(t, router, "/api/v1/requests", dto.SubmitRequestRequest{
		StudentIdentifier: "20260001",
		AcademicYear:      2026,
		Term:              "FALL",
		Preferences:       []string{"CS101", "MATH101"},
	})

	require.Equal(t, http.StatusCreated, recorder.Code)
	require.NotNil(t, requests.submitted)
	assert.Equal(t, []string{"CS101", "MATH101"}, requests.submitted.Preferences)

	var response dto.APIResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Nil(t, response.Error)
	assert.NotNil(t, response.Data)
}

func TestSubmitRequestEndpointRejectsInvalidTerm(t *testing.T) {
	router := newEnrollmentRouter(&stubRequestWriter{}, &stubStudentReader{})

	recorder := postJSON(t, router, "/api/v1/requests", dto.SubmitRequestRequest{
		StudentIdentifier: "20260001",
		AcademicYear:      2026,
		Term:              "SUMMER",
		Preferences:       []string{"CS101"},
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSubmitRequestEndpointUnknownStudent(t *testing.T) {
	router := newEnrollmentRouter(&stubRequestWriter{}, &stubStudentReader{known: map[string]bool{}})

	recorder := postJSON(t, router, "/api/v1/requests", dto.SubmitRequestRequest{
		StudentIdentifier: "99999999",
		AcademicYear:      2026,
		Term:              "FALL",
		Preferences:       []string{"CS101"},
	})

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestGetLatestRequestEndpoint(t *testing.T) {
	requests := &stubRequestWriter{}
	students := &stubStudentReader{known: map[string]bool{"20260001": true}}
	router := newEnrollmentRouter(requests, students)

	recorder := postJSON(t, router, "/api/v1/requests", dto.SubmitRequestRequest{
		StudentIdentifier: "20260001",
		AcademicYear:      2026,
		Term:              "FALL",
		Preferences:       []string{"CS101"},
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/20260001?academicYear=2026&term=FALL", nil)
	getRecorder := httptest.NewRecorder()
	router.ServeHTTP(getRecorder, req)

	require.Equal(t, http.StatusOK, getRecorder.Code)
}

func TestGetLatestRequestEndpointMissingYear(t *testing.T) {
	router := newEnrollmentRouter(&stubRequestWriter{}, &stubStudentReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/20260001?term=FALL", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
