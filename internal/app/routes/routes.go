package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/aliyavuz/registrar/internal/app/controllers"
	"github.com/aliyavuz/registrar/internal/metrics"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	courseController *controllers.CourseController,
	enrollmentController *controllers.EnrollmentController,
	allocationController *controllers.AllocationController,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// Course catalog routes
	courses := v1.Group("/courses")
	{
		courses.GET("", courseController.ListCourses)
		courses.GET("/:code", courseController.GetCourse)
		courses.POST("", courseController.CreateCourse)
		courses.PATCH("/:code/capacity", courseController.UpdateCapacity)
	}

	// Enrollment request routes
	requests := v1.Group("/requests")
	{
		requests.POST("", enrollmentController.SubmitRequest)
		requests.GET("/:studentId", enrollmentController.GetLatestRequest)
	}

	// Allocation routes
	allocations := v1.Group("/allocations")
	{
		allocations.POST("/run", allocationController.RunAllocation)
		allocations.POST("/withdraw", allocationController.Withdraw)
		allocations.GET("/:runId", allocationController.GetRun)
	}

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}
