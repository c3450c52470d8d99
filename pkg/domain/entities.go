// Package domain defines the textbook-distribution entities, the closed set of
// actions that mutate them, and the pure reducer applying those actions.
package domain

import (
	"slices"

	"github.com/google/uuid"
)

// EntityType identifies the type of record held in a snapshot.
type EntityType string

// Supported entity type identifiers used in errors and rule violations.
const (
	// EntityCourse identifies a course record.
	EntityCourse EntityType = "course"
	// EntityClass identifies a class record.
	EntityClass EntityType = "class"
	// EntityStudent identifies a student record.
	EntityStudent EntityType = "student"
	// EntitySelection identifies the selection cursor.
	EntitySelection EntityType = "selection"
)

// BookRef names one required book of a course.
type BookRef struct {
	ISBN  string `json:"isbn"`
	Title string `json:"title"`
}

// Course is an ordered catalog of required books. ISBNs are unique within a course.
type Course struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Books []BookRef `json:"books"`
}

// Class groups students and is bound to exactly one course.
type Class struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	CourseID string `json:"courseId"`
}

// Student tracks the books a student has been confirmed to have turned in.
// DeliveredISBNs has set semantics and keeps insertion order.
type Student struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	ClassID        string   `json:"classId"`
	DeliveredISBNs []string `json:"deliveredIsbns"`
}

// Selection is the current focus cursor. A nil field means nothing is selected at that level.
type Selection struct {
	CourseID  *string `json:"courseId"`
	ClassID   *string `json:"classId"`
	StudentID *string `json:"studentId"`
}

// Snapshot is the unit of persistence, import and reset.
type Snapshot struct {
	Courses   []Course  `json:"courses"`
	Classes   []Class   `json:"classes"`
	Students  []Student `json:"students"`
	Selection Selection `json:"selection"`
}

// NewID returns a fresh opaque identifier for a new entity.
func NewID() string {
	return uuid.NewString()
}

// EmptySnapshot returns the snapshot with empty collections and nothing selected.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Courses:  []Course{},
		Classes:  []Class{},
		Students: []Student{},
	}
}

// HasDelivered reports whether isbn is in the student's delivered set.
func (s Student) HasDelivered(isbn string) bool {
	return slices.Contains(s.DeliveredISBNs, isbn)
}

// FindBook returns the book with the given isbn and its index.
func (c Course) FindBook(isbn string) (BookRef, int, bool) {
	for i, b := range c.Books {
		if b.ISBN == isbn {
			return b, i, true
		}
	}
	return BookRef{}, -1, false
}

// FindCourse returns the course with the given id.
func (s Snapshot) FindCourse(id string) (Course, bool) {
	if i := s.courseIndex(id); i >= 0 {
		return s.Courses[i], true
	}
	return Course{}, false
}

// FindClass returns the class with the given id.
func (s Snapshot) FindClass(id string) (Class, bool) {
	if i := s.classIndex(id); i >= 0 {
		return s.Classes[i], true
	}
	return Class{}, false
}

// FindStudent returns the student with the given id.
func (s Snapshot) FindStudent(id string) (Student, bool) {
	if i := s.studentIndex(id); i >= 0 {
		return s.Students[i], true
	}
	return Student{}, false
}

// CourseOfClass resolves the course a class is bound to.
func (s Snapshot) CourseOfClass(classID string) (Course, bool) {
	class, ok := s.FindClass(classID)
	if !ok {
		return Course{}, false
	}
	return s.FindCourse(class.CourseID)
}

// SelectedCourse returns the selected course, if any.
func (s Snapshot) SelectedCourse() (Course, bool) {
	if s.Selection.CourseID == nil {
		return Course{}, false
	}
	return s.FindCourse(*s.Selection.CourseID)
}

// SelectedClass returns the selected class, if any.
func (s Snapshot) SelectedClass() (Class, bool) {
	if s.Selection.ClassID == nil {
		return Class{}, false
	}
	return s.FindClass(*s.Selection.ClassID)
}

// SelectedStudent returns the selected student, if any.
func (s Snapshot) SelectedStudent() (Student, bool) {
	if s.Selection.StudentID == nil {
		return Student{}, false
	}
	return s.FindStudent(*s.Selection.StudentID)
}

// ClassesOfCourse lists the classes bound to a course in snapshot order.
func (s Snapshot) ClassesOfCourse(courseID string) []Class {
	var out []Class
	for _, c := range s.Classes {
		if c.CourseID == courseID {
			out = append(out, c)
		}
	}
	return out
}

// StudentsOfClass lists the students of a class in snapshot order.
func (s Snapshot) StudentsOfClass(classID string) []Student {
	var out []Student
	for _, st := range s.Students {
		if st.ClassID == classID {
			out = append(out, st)
		}
	}
	return out
}

func (s Snapshot) courseIndex(id string) int {
	return slices.IndexFunc(s.Courses, func(c Course) bool { return c.ID == id })
}

func (s Snapshot) classIndex(id string) int {
	return slices.IndexFunc(s.Classes, func(c Class) bool { return c.ID == id })
}

func (s Snapshot) studentIndex(id string) int {
	return slices.IndexFunc(s.Students, func(st Student) bool { return st.ID == id })
}

// Clone returns a deep copy sharing no mutable memory with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Courses:   make([]Course, len(s.Courses)),
		Classes:   append(make([]Class, 0, len(s.Classes)), s.Classes...),
		Students:  make([]Student, len(s.Students)),
		Selection: cloneSelection(s.Selection),
	}
	for i, c := range s.Courses {
		out.Courses[i] = cloneCourse(c)
	}
	for i, st := range s.Students {
		out.Students[i] = cloneStudent(st)
	}
	return out
}

func cloneCourse(c Course) Course {
	cp := c
	cp.Books = append(make([]BookRef, 0, len(c.Books)), c.Books...)
	return cp
}

func cloneStudent(s Student) Student {
	cp := s
	cp.DeliveredISBNs = append(make([]string, 0, len(s.DeliveredISBNs)), s.DeliveredISBNs...)
	return cp
}

func cloneSelection(sel Selection) Selection {
	return Selection{
		CourseID:  cloneID(sel.CourseID),
		ClassID:   cloneID(sel.ClassID),
		StudentID: cloneID(sel.StudentID),
	}
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func ptr(id string) *string { return &id }
