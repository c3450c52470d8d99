package core

import (
	"context"
	"fmt"
	"strings"

	"booktrack/pkg/domain"
)

// Service exposes entity-oriented operations on top of the store. Every method
// builds an action and dispatches it; none touches the snapshot directly.
type Service struct {
	store *Store
}

// NewService constructs a service backed by the supplied store.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Store returns the underlying store.
func (s *Service) Store() *Store {
	return s.store
}

// CreateCourse adds a course and returns it.
func (s *Service) CreateCourse(ctx context.Context, name string) (domain.Course, error) {
	a := domain.NewAddCourse(name)
	snap, err := s.store.Dispatch(ctx, a)
	if err != nil {
		return domain.Course{}, err
	}
	course, _ := snap.FindCourse(a.ID)
	return course, nil
}

// CreateClass adds a class bound to courseID and returns it.
func (s *Service) CreateClass(ctx context.Context, courseID, name string) (domain.Class, error) {
	a := domain.NewAddClass(courseID, name)
	snap, err := s.store.Dispatch(ctx, a)
	if err != nil {
		return domain.Class{}, err
	}
	class, _ := snap.FindClass(a.ID)
	return class, nil
}

// CreateStudent adds a student to classID and returns it.
func (s *Service) CreateStudent(ctx context.Context, classID, name string) (domain.Student, error) {
	a := domain.NewAddStudent(classID, name)
	snap, err := s.store.Dispatch(ctx, a)
	if err != nil {
		return domain.Student{}, err
	}
	student, _ := snap.FindStudent(a.ID)
	return student, nil
}

// AddBook lists a book in a course. An empty title gets the placeholder.
func (s *Service) AddBook(ctx context.Context, courseID, isbn, title string) (domain.Course, error) {
	snap, err := s.store.Dispatch(ctx, domain.AddBookToCourse{CourseID: courseID, ISBN: isbn, Title: title})
	if err != nil {
		return domain.Course{}, err
	}
	course, ok := snap.FindCourse(courseID)
	if !ok {
		return domain.Course{}, domain.ValidationError{Field: "courseId", Reason: fmt.Sprintf("course %q not found", courseID)}
	}
	return course, nil
}

// ImportRoster adds one student per non-blank name to classID, in order. It stops
// at the first failure and returns the students created so far.
func (s *Service) ImportRoster(ctx context.Context, classID string, names []string) ([]domain.Student, error) {
	if _, ok := s.store.Snapshot().FindClass(classID); !ok {
		return nil, domain.ValidationError{Field: "classId", Reason: fmt.Sprintf("class %q not found", classID)}
	}
	var created []domain.Student
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		student, err := s.CreateStudent(ctx, classID, name)
		if err != nil {
			return created, fmt.Errorf("add student %q: %w", name, err)
		}
		created = append(created, student)
	}
	return created, nil
}
