package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aliyavuz/registrar/internal/allocation"
	"github.com/aliyavuz/registrar/internal/app/models"
	"github.com/aliyavuz/registrar/internal/app/models/dto"
	"github.com/aliyavuz/registrar/internal/app/services"
	"github.com/aliyavuz/registrar/internal/middleware"
)

// AllocationController handles allocation run and withdrawal operations
type AllocationController struct {
	allocationService *services.AllocationService
	promotions        services.Enqueuer
	defaultYear       int
	defaultTerm       models.Term
}

// NewAllocationController creates a new AllocationController. The default
// year and term apply to run requests that omit them.
func NewAllocationController(allocationService *services.AllocationService, promotions services.Enqueuer, defaultYear int, defaultTerm models.Term) *AllocationController {
	return &AllocationController{
		allocationService: allocationService,
		promotions:        promotions,
		defaultYear:       defaultYear,
		defaultTerm:       defaultTerm,
	}
}

// RunAllocation executes an allocation pass
// @Summary Run an allocation pass
// @Description Processes all pending enrollment requests for a term and commits the resulting assignments, waitlists and rejections atomically
// @Tags allocations
// @Accept json
// @Produce json
// @Param request body dto.RunAllocationRequest true "Term to allocate, defaults to the configured enrollment window"
// @Success 200 {object} dto.APIResponse{data=dto.RunResponse} "Allocation pass committed"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 409 {object} dto.ErrorResponse "Run aborted, no state applied"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /allocations/run [post]
func (c *AllocationController) RunAllocation(ctx *gin.Context) {
	var req dto.RunAllocationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}
	if req.AcademicYear == 0 {
		req.AcademicYear = c.defaultYear
	}
	if req.Term == "" {
		req.Term = string(c.defaultTerm)
	}

	run, result, err := c.allocationService.RunPass(ctx, req.AcademicYear, models.Term(req.Term))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      toRunResponse(run, result),
		Timestamp: time.Now(),
	})
}

// GetRun retrieves a committed allocation run
// @Summary Get an allocation run
// @Description Retrieves a committed run with its full decision sequence
// @Tags allocations
// @Accept json
// @Produce json
// @Param runId path string true "Run ID"
// @Success 200 {object} dto.APIResponse{data=dto.RunResponse} "Run retrieved successfully"
// @Failure 404 {object} dto.ErrorResponse "Run not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /allocations/{runId} [get]
func (c *AllocationController) GetRun(ctx *gin.Context) {
	run, decisions, err := c.allocationService.GetRun(ctx, ctx.Param("runId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	response := dto.RunResponse{
		RunID:        run.ID,
		AcademicYear: run.AcademicYear,
		Term:         string(run.Term),
		Status:       string(run.Status),
		Decisions:    make([]dto.DecisionResponse, 0, len(decisions)),
		CreatedAt:    run.CreatedAt,
	}
	for _, d := range decisions {
		response.Decisions = append(response.Decisions, dto.DecisionResponse{
			StudentIdentifier: d.StudentIdentifier,
			CourseCode:        d.CourseCode,
			Status:            d.Status,
			Reason:            d.Reason,
			Rank:              d.Rank,
		})
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      response,
		Timestamp: time.Now(),
	})
}

// Withdraw removes a student's course assignment
// @Summary Withdraw from a course
// @Description Removes an assignment, freeing its seat. The freed seat is offered to the course's waitlist asynchronously.
// @Tags allocations
// @Accept json
// @Produce json
// @Param request body dto.WithdrawRequest true "Assignment to withdraw"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Assignment withdrawn"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Failure 503 {object} dto.ErrorResponse "Promotion queue full"
// @Router /allocations/withdraw [post]
func (c *AllocationController) Withdraw(ctx *gin.Context) {
	var req dto.WithdrawRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	term := models.Term(req.Term)
	event, err := c.allocationService.Withdraw(ctx, req.CourseCode, req.StudentIdentifier, req.AcademicYear, term)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.promotions.Enqueue(services.PromotionJob{
		Event:        event,
		AcademicYear: req.AcademicYear,
		Term:         term,
	}); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.SuccessResponse{Message: "Assignment withdrawn, freed seat queued for promotion"},
		Timestamp: time.Now(),
	})
}

func toRunResponse(run *models.AllocationRun, result *allocation.Result) dto.RunResponse {
	response := dto.RunResponse{
		RunID:        run.ID,
		AcademicYear: run.AcademicYear,
		Term:         string(run.Term),
		Status:       string(run.Status),
		Decisions:    make([]dto.DecisionResponse, 0, len(result.Decisions)),
		CreatedAt:    run.CreatedAt,
	}
	for _, d := range result.Decisions {
		response.Decisions = append(response.Decisions, dto.DecisionResponse{
			StudentIdentifier: d.StudentID,
			CourseCode:        d.CourseCode,
			Status:            string(d.Status),
			Reason:            string(d.Reason),
			Rank:              d.Rank,
		})
	}
	for _, verr := range result.Errors {
		response.ValidationErrors = append(response.ValidationErrors, dto.ValidationErrorResponse{
			StudentIdentifier: verr.StudentID,
			CourseCode:        verr.CourseCode,
			Detail:            verr.Detail,
		})
	}
	return response
}
