package usecase

import (
	"context"

	"coursehub/internal/domain"
	"coursehub/internal/infrastructure/logger"

	"github.com/google/uuid"
)

type CatalogUseCase struct {
	courses CourseRepository
	access  *AccessPolicy
	log     *logger.Logger
}

func NewCatalogUseCase(cr CourseRepository, purchases PurchaseRepository, log *logger.Logger) *CatalogUseCase {
	return &CatalogUseCase{
		courses: cr,
		access:  NewAccessPolicy(purchases),
		log:     log.With("usecase", "catalog"),
	}
}

type SearchResult struct {
	Courses    []domain.Course
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

func (uc *CatalogUseCase) Search(ctx context.Context, f domain.CourseFilter) (*SearchResult, error) {
	f = f.Normalize()
	courses, total, err := uc.courses.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []domain.Course{}
	}
	return &SearchResult{
		Courses:    courses,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: int((total + int64(f.Limit) - 1) / int64(f.Limit)),
	}, nil
}

// GetCourse is public, so lecture video URLs are withheld.
func (uc *CatalogUseCase) GetCourse(ctx context.Context, courseID uuid.UUID) (*domain.Course, error) {
	course, err := uc.courses.GetWithLectures(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for i := range course.Lectures {
		course.Lectures[i].VideoURL = ""
	}
	return course, nil
}

func (uc *CatalogUseCase) GetLectures(ctx context.Context, userID, courseID uuid.UUID) ([]domain.Lecture, error) {
	course, err := uc.courses.GetWithLectures(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := uc.access.RequireEnrollment(ctx, userID, course); err != nil {
		return nil, err
	}
	if course.Lectures == nil {
		return []domain.Lecture{}, nil
	}
	return course.Lectures, nil
}
