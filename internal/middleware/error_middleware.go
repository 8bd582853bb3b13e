package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/aliyavuz/registrar/internal/allocation"
	"github.com/aliyavuz/registrar/internal/app/models/dto"
	"github.com/aliyavuz/registrar/internal/pkg/apperrors"
)

// HandleAPIError maps service errors to API responses
func HandleAPIError(c *gin.Context, err error) {
	var consistencyErr *allocation.ConsistencyError
	if errors.As(err, &consistencyErr) {
		c.JSON(500, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeConsistencyViolation, message(err, "Course state snapshot is inconsistent")).
				WithSeverity(dto.ErrorSeverityCritical),
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrCourseNotFound),
		errors.Is(err, apperrors.ErrRequestNotFound),
		errors.Is(err, apperrors.ErrStudentNotFound),
		errors.Is(err, apperrors.ErrRunNotFound),
		errors.Is(err, apperrors.ErrAssignmentNotFound),
		errors.Is(err, apperrors.ErrResourceNotFound):
		c.JSON(404, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, message(err, "Resource not found")),
		})
		return
	case errors.Is(err, apperrors.ErrCourseAlreadyExists),
		errors.Is(err, apperrors.ErrResourceAlreadyExists):
		c.JSON(409, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, message(err, "Resource already exists")),
		})
		return
	case errors.Is(err, apperrors.ErrInvalidCourseCode),
		errors.Is(err, apperrors.ErrDuplicatePreferences),
		errors.Is(err, apperrors.ErrEmptyPreferences),
		errors.Is(err, apperrors.ErrValidationFailed),
		errors.Is(err, apperrors.ErrBadRequest):
		c.JSON(400, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, message(err, "Validation failed")),
		})
		return
	case errors.Is(err, apperrors.ErrRunAborted), errors.Is(err, allocation.ErrPassAborted):
		c.JSON(409, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeRunAborted, message(err, "Allocation run aborted, no state applied")),
		})
		return
	case errors.Is(err, apperrors.ErrPromotionQueueFull):
		c.JSON(503, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodePromotionQueueFull, "Promotion queue is full, retry later").
				WithSeverity(dto.ErrorSeverityWarning),
		})
		return
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(409, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceInvalid, message(err, "Conflict")),
		})
		return
	default:
		c.JSON(500, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"),
		})
		return
	}
}

// message prefers the application error's own text over the fallback
func message(err error, fallback string) string {
	var customErr *apperrors.CustomError
	if errors.As(err, &customErr) && customErr.Message != "" {
		return customErr.Message
	}
	return fallback
}
