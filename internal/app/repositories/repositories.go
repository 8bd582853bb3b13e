package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	CourseRepository     *CourseRepository
	RequestRepository    *RequestRepository
	StudentRepository    *StudentRepository
	AllocationRepository *AllocationRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		CourseRepository:     NewCourseRepository(db),
		RequestRepository:    NewRequestRepository(db),
		StudentRepository:    NewStudentRepository(db),
		AllocationRepository: NewAllocationRepository(db),
	}
}
