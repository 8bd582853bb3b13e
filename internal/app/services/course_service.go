package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/aliyavuz/registrar/internal/allocation"
	"github.com/aliyavuz/registrar/internal/app/models"
	"github.com/aliyavuz/registrar/internal/app/repositories"
	"github.com/aliyavuz/registrar/internal/pkg/apperrors"
)

// Course codes look like "CS101" or "MATH201"
var courseCodeRegex = regexp.MustCompile(`^[A-Z]{2,6}[0-9]{3}$`)

// CatalogStore persists the course catalog
type CatalogStore interface {
	Create(ctx context.Context, course *models.Course) error
	GetByCode(ctx context.Context, code string) (*models.Course, error)
	GetAll(ctx context.Context) ([]*models.Course, error)
	UpdateCapacity(ctx context.Context, code string, capacity int) (int, error)
}

// Enqueuer accepts promotion jobs for asynchronous processing
type Enqueuer interface {
	Enqueue(job PromotionJob) error
}

// CourseService manages the course catalog. Capacity increases feed the
// promotion queue so freed seats reach waitlisted students.
type CourseService struct {
	catalog    CatalogStore
	promotions Enqueuer
	logger     zerolog.Logger
}

// NewCourseService creates a new course service instance
func NewCourseService(catalog CatalogStore, promotions Enqueuer, logger zerolog.Logger) *CourseService {
	return &CourseService{
		catalog:    catalog,
		promotions: promotions,
		logger:     logger,
	}
}

// CreateCourse validates and stores a new catalog entry
func (s *CourseService) CreateCourse(ctx context.Context, course *models.Course) error {
	if !courseCodeRegex.MatchString(course.Code) {
		return apperrors.NewCustomError(apperrors.ErrInvalidCourseCode,
			fmt.Sprintf("course code %q must be 2-6 uppercase letters followed by 3 digits", course.Code))
	}
	if course.Capacity <= 0 {
		return apperrors.NewBadRequestError("capacity must be positive")
	}
	if course.Credits <= 0 {
		return apperrors.NewBadRequestError("credits must be positive")
	}
	for _, prereq := range course.Prerequisites {
		if prereq == course.Code {
			return apperrors.NewBadRequestError("course cannot be its own prerequisite")
		}
		if _, err := s.catalog.GetByCode(ctx, prereq); err != nil {
			if errors.Is(err, repositories.ErrCourseNotFound) {
				return apperrors.NewBadRequestError(fmt.Sprintf("unknown prerequisite course %s", prereq))
			}
			return fmt.Errorf("error verifying prerequisite: %w", err)
		}
	}

	if err := s.catalog.Create(ctx, course); err != nil {
		if errors.Is(err, repositories.ErrCourseAlreadyExists) {
			return apperrors.ErrCourseAlreadyExists
		}
		return fmt.Errorf("error creating course: %w", err)
	}

	s.logger.Info().Str("code", course.Code).Int("capacity", course.Capacity).
		Msg("Course created")

	return nil
}

// GetCourse retrieves one catalog entry by code
func (s *CourseService) GetCourse(ctx context.Context, code string) (*models.Course, error) {
	course, err := s.catalog.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrCourseNotFound) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("error retrieving course: %w", err)
	}
	return course, nil
}

// ListCourses returns the full catalog
func (s *CourseService) ListCourses(ctx context.Context) ([]*models.Course, error) {
	courses, err := s.catalog.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing courses: %w", err)
	}
	return courses, nil
}

// UpdateCapacity changes a course's seat count. Raising capacity frees seats
// and queues a promotion event for the difference; lowering it never evicts
// already assigned students.
func (s *CourseService) UpdateCapacity(ctx context.Context, code string, capacity int, year int, term models.Term) error {
	if capacity <= 0 {
		return apperrors.NewBadRequestError("capacity must be positive")
	}

	previous, err := s.catalog.UpdateCapacity(ctx, code, capacity)
	if err != nil {
		if errors.Is(err, repositories.ErrCourseNotFound) {
			return apperrors.ErrCourseNotFound
		}
		return fmt.Errorf("error updating capacity: %w", err)
	}

	s.logger.Info().Str("code", code).Int("from", previous).Int("to", capacity).
		Msg("Course capacity updated")

	if capacity > previous {
		err := s.promotions.Enqueue(PromotionJob{
			Event: allocation.PromotionEvent{
				CourseCode: code,
				FreedCount: capacity - previous,
			},
			AcademicYear: year,
			Term:         term,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
