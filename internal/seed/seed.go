package seed

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appModels "github.com/aliyavuz/registrar/internal/app/models"
	appRepos "github.com/aliyavuz/registrar/internal/app/repositories"
)

// CreateDefaultData creates a demo catalog and student roster if they don't
// exist. Used in development mode only.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	courseRepo := appRepos.NewCourseRepository(dbPool)

	lgr.Info().Msg("Checking/Creating default data (courses/students)...")
	var finalErr error

	labGroup := "LAB_MON_AM"
	courses := []*appModels.Course{
		{Code: "CS101", Title: "Introduction to Programming", Credits: 4, Capacity: 60},
		{Code: "CS201", Title: "Data Structures", Credits: 4, Capacity: 40, Prerequisites: []string{"CS101"}},
		{Code: "CS301", Title: "Algorithms", Credits: 3, Capacity: 30, Prerequisites: []string{"CS201"}},
		{Code: "MATH101", Title: "Calculus I", Credits: 4, Capacity: 80},
		{Code: "MATH201", Title: "Linear Algebra", Credits: 3, Capacity: 50, Prerequisites: []string{"MATH101"}},
		{Code: "PHYS101", Title: "Physics I", Credits: 4, Capacity: 45, ConflictGroup: &labGroup},
		{Code: "CHEM101", Title: "General Chemistry", Credits: 4, Capacity: 45, ConflictGroup: &labGroup},
	}

	for _, course := range courses {
		if err := courseRepo.Create(ctx, course); err != nil &&
			!errors.Is(err, appRepos.ErrCourseAlreadyExists) {
			lgr.Error().Err(err).Str("code", course.Code).Msg("Error creating demo course")
			finalErr = errors.Join(finalErr, err)
		}
	}

	students := []struct {
		identifier  string
		creditLimit int
		completed   []string
	}{
		{"20260001", 21, nil},
		{"20260002", 21, []string{"CS101"}},
		{"20260003", 18, []string{"CS101", "MATH101"}},
		{"20260004", 12, []string{"CS101", "CS201", "MATH101"}},
	}

	for _, student := range students {
		_, err := dbPool.Exec(ctx,
			`INSERT INTO students (identifier, credit_limit) VALUES ($1, $2)
			 ON CONFLICT (identifier) DO NOTHING`,
			student.identifier, student.creditLimit)
		if err != nil {
			lgr.Error().Err(err).Str("identifier", student.identifier).Msg("Error creating demo student")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		for _, code := range student.completed {
			_, err := dbPool.Exec(ctx,
				`INSERT INTO completed_courses (student_identifier, course_code) VALUES ($1, $2)
				 ON CONFLICT DO NOTHING`,
				student.identifier, code)
			if err != nil {
				lgr.Error().Err(err).Str("identifier", student.identifier).Str("course", code).
					Msg("Error recording completed course")
				finalErr = errors.Join(finalErr, err)
			}
		}
	}

	if finalErr == nil {
		lgr.Info().Msg("Default data check complete.")
	}
	return finalErr
}
