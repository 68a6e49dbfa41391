package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"classpulse/internal/cache"
	"classpulse/internal/model"
	"classpulse/internal/repository"
)

var ErrMissingField = errors.New("missing required field")

// CatalogService is the thin CRUD layer over the relational side:
// instructors, their courses, and each course's tag set.
type CatalogService struct {
	instructorRepo repository.InstructorRepo
	courseRepo     repository.CourseRepo
	tagRepo        repository.TagRepo
	engRepo        repository.EngagementRepo
	tags           cache.TagCache
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	instructorRepo repository.InstructorRepo,
	courseRepo repository.CourseRepo,
	tagRepo repository.TagRepo,
	engRepo repository.EngagementRepo,
	tags cache.TagCache,
) *CatalogService {
	return &CatalogService{
		instructorRepo: instructorRepo,
		courseRepo:     courseRepo,
		tagRepo:        tagRepo,
		engRepo:        engRepo,
		tags:           tags,
	}
}

// CreateInstructor registers an instructor and returns it with its id.
func (s *CatalogService) CreateInstructor(ctx context.Context, firstName, lastName, email string) (*model.Instructor, error) {
	if firstName == "" || lastName == "" || email == "" {
		return nil, ErrMissingField
	}

	instructor := &model.Instructor{
		ID:        "i_" + uuid.New().String()[:8],
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
	}
	if err := s.instructorRepo.Create(ctx, instructor); err != nil {
		return nil, fmt.Errorf("failed to create instructor: %w", err)
	}
	return instructor, nil
}

// ListInstructors returns instructors filtered by first-name prefix.
func (s *CatalogService) ListInstructors(ctx context.Context, prefix string) ([]*model.Instructor, error) {
	return s.instructorRepo.ListByNamePrefix(ctx, prefix)
}

// CreateCourse registers a course under an existing instructor.
func (s *CatalogService) CreateCourse(ctx context.Context, instructorID, department, number, title string) (*model.Course, error) {
	if instructorID == "" || department == "" || title == "" {
		return nil, ErrMissingField
	}

	instructor, err := s.instructorRepo.GetByID(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get instructor: %w", err)
	}
	if instructor == nil {
		return nil, fmt.Errorf("instructor %s not found", instructorID)
	}

	course := &model.Course{
		ID:           "c_" + uuid.New().String()[:8],
		InstructorID: instructorID,
		Department:   department,
		Number:       number,
		Title:        title,
	}
	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	return course, nil
}

// ListCourses returns courses filtered by instructor.
func (s *CatalogService) ListCourses(ctx context.Context, instructorID string) ([]*model.Course, error) {
	return s.courseRepo.ListByInstructor(ctx, instructorID)
}

// CreateTag adds a topic tag to an existing course and invalidates the
// course's cached tag set so the next submission sees it.
func (s *CatalogService) CreateTag(ctx context.Context, courseID, name string) (*model.Tag, error) {
	if courseID == "" || name == "" {
		return nil, ErrMissingField
	}

	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, ErrUnknownCourse
	}

	tag := &model.Tag{CourseID: courseID, Name: name}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	if err := s.tags.Invalidate(ctx, courseID); err != nil {
		log.Printf("course %s: tag cache invalidate failed: %v", courseID, err)
	}
	return tag, nil
}

// ListTags returns a course's tags.
func (s *CatalogService) ListTags(ctx context.Context, courseID string) ([]model.Tag, error) {
	return s.tagRepo.ListByCourse(ctx, courseID)
}

// ListEngagements returns a course's archived live sessions.
func (s *CatalogService) ListEngagements(ctx context.Context, courseID string) ([]*model.EngagementSession, error) {
	return s.engRepo.ListByCourse(ctx, courseID)
}
