package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aliyavuz/registrar/internal/app/models"
	"github.com/aliyavuz/registrar/internal/app/models/dto"
	"github.com/aliyavuz/registrar/internal/app/services"
	"github.com/aliyavuz/registrar/internal/middleware"
)

// EnrollmentController handles enrollment request submission and lookup
type EnrollmentController struct {
	enrollmentService *services.EnrollmentService
}

// NewEnrollmentController creates a new EnrollmentController
func NewEnrollmentController(enrollmentService *services.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{
		enrollmentService: enrollmentService,
	}
}

// SubmitRequest handles enrollment request submission
// @Summary Submit an enrollment request
// @Description Records a student's ranked course preferences for a term. A later submission from the same student supersedes earlier ones.
// @Tags requests
// @Accept json
// @Produce json
// @Param request body dto.SubmitRequestRequest true "Ranked preferences"
// @Success 201 {object} dto.APIResponse{data=dto.EnrollmentRequestResponse} "Request recorded"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /requests [post]
func (c *EnrollmentController) SubmitRequest(ctx *gin.Context) {
	var req dto.SubmitRequestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	request := &models.EnrollmentRequest{
		StudentIdentifier: req.StudentIdentifier,
		AcademicYear:      req.AcademicYear,
		Term:              models.Term(req.Term),
		Preferences:       req.Preferences,
	}

	if err := c.enrollmentService.SubmitRequest(ctx, request); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{
		Data:      toRequestResponse(request),
		Timestamp: time.Now(),
	})
}

// GetLatestRequest retrieves a student's most recent request for a term
// @Summary Get a student's latest enrollment request
// @Description Retrieves the most recent request the student submitted for the given term
// @Tags requests
// @Accept json
// @Produce json
// @Param studentId path string true "Student identifier"
// @Param academicYear query int true "Academic year"
// @Param term query string true "Term" Enums(FALL, SPRING)
// @Success 200 {object} dto.APIResponse{data=dto.EnrollmentRequestResponse} "Request retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid query parameters"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /requests/{studentId} [get]
func (c *EnrollmentController) GetLatestRequest(ctx *gin.Context) {
	year, err := strconv.Atoi(ctx.Query("academicYear"))
	if err != nil || year <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid academic year")
		errorDetail = errorDetail.WithDetails("academicYear must be a positive number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	term := models.Term(ctx.Query("term"))
	if term != models.TermFall && term != models.TermSpring {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid term")
		errorDetail = errorDetail.WithDetails("term must be FALL or SPRING")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	request, err := c.enrollmentService.GetLatestRequest(ctx, ctx.Param("studentId"), year, term)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      toRequestResponse(request),
		Timestamp: time.Now(),
	})
}

func toRequestResponse(request *models.EnrollmentRequest) dto.EnrollmentRequestResponse {
	return dto.EnrollmentRequestResponse{
		ID:                request.ID,
		StudentIdentifier: request.StudentIdentifier,
		AcademicYear:      request.AcademicYear,
		Term:              string(request.Term),
		SubmittedAt:       request.SubmittedAt,
		Sequence:          request.Sequence,
		Preferences:       request.Preferences,
	}
}
