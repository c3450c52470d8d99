package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Reduce applies a to s and returns the resulting snapshot. It never mutates s:
// touched collections are copied, untouched entities are shared. A refused action
// returns s unchanged together with a ValidationError, InUseError or
// RuleViolationError. A nil action is a no-op.
func Reduce(s Snapshot, a Action) (Snapshot, error) {
	switch act := a.(type) {
	case nil:
		return s, nil
	case AddCourse:
		return addCourse(s, act)
	case RemoveCourse:
		return removeCourse(s, act)
	case AddBookToCourse:
		return addBook(s, act.CourseID, act.ISBN, act.Title)
	case RemoveBookFromCourse:
		return removeBook(s, act)
	case ReorderBook:
		return reorderBook(s, act)
	case AddClass:
		return addClass(s, act)
	case RemoveClass:
		return removeClass(s, act)
	case AddStudent:
		return addStudent(s, act)
	case RemoveStudent:
		return removeStudent(s, act)
	case SelectCourse:
		return selectCourse(s, act.ID), nil
	case SelectClass:
		return selectClass(s, act.ID), nil
	case SelectStudent:
		return selectStudent(s, act.ID), nil
	case MarkDelivered:
		return markDelivered(s, act), nil
	case UnmarkDelivered:
		return unmarkDelivered(s, act), nil
	case ImportState:
		return importState(s, act)
	case ResetState:
		return EmptySnapshot(), nil
	case LookupSucceeded:
		return addBook(s, act.CourseID, act.ISBN, act.Title)
	case LookupFailed:
		return s, nil
	default:
		return s, nil
	}
}

// PlaceholderTitle labels a book whose title is unknown.
func PlaceholderTitle(isbn string) string {
	return "ISBN " + isbn
}

func requireName(field, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ValidationError{Field: field, Reason: "must not be empty"}
	}
	return trimmed, nil
}

func requireID(id string, exists bool) error {
	if strings.TrimSpace(id) == "" {
		return ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if exists {
		return ValidationError{Field: "id", Reason: fmt.Sprintf("%q already exists", id)}
	}
	return nil
}

func addCourse(s Snapshot, a AddCourse) (Snapshot, error) {
	name, err := requireName("name", a.Name)
	if err != nil {
		return s, err
	}
	if err := requireID(a.ID, s.courseIndex(a.ID) >= 0); err != nil {
		return s, err
	}
	out := s
	out.Courses = append(slices.Clone(s.Courses), Course{ID: a.ID, Name: name, Books: []BookRef{}})
	out.Selection = Selection{CourseID: ptr(a.ID)}
	return out, nil
}

func removeCourse(s Snapshot, a RemoveCourse) (Snapshot, error) {
	idx := s.courseIndex(a.ID)
	if idx < 0 {
		return s, nil
	}
	if classes := s.ClassesOfCourse(a.ID); len(classes) > 0 {
		ids := make([]string, len(classes))
		for i, c := range classes {
			ids[i] = c.ID
		}
		return s, InUseError{Entity: EntityCourse, ID: a.ID, Dependent: EntityClass, Dependents: ids}
	}
	out := s
	out.Courses = slices.Delete(slices.Clone(s.Courses), idx, idx+1)
	if selected(s.Selection.CourseID, a.ID) {
		out.Selection = Selection{}
	}
	return out, nil
}

func addBook(s Snapshot, courseID, isbn, title string) (Snapshot, error) {
	idx := s.courseIndex(courseID)
	if idx < 0 {
		return s, nil
	}
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return s, ValidationError{Field: "isbn", Reason: "must not be empty"}
	}
	course := s.Courses[idx]
	if _, _, ok := course.FindBook(isbn); ok {
		return s, nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = PlaceholderTitle(isbn)
	}
	course.Books = append(slices.Clone(course.Books), BookRef{ISBN: isbn, Title: title})
	out := s
	out.Courses = slices.Clone(s.Courses)
	out.Courses[idx] = course
	return out, nil
}

func removeBook(s Snapshot, a RemoveBookFromCourse) (Snapshot, error) {
	idx := s.courseIndex(a.CourseID)
	if idx < 0 {
		return s, nil
	}
	course := s.Courses[idx]
	_, bi, ok := course.FindBook(a.ISBN)
	if !ok {
		return s, nil
	}
	course.Books = slices.Delete(slices.Clone(course.Books), bi, bi+1)
	out := s
	out.Courses = slices.Clone(s.Courses)
	out.Courses[idx] = course
	return out, nil
}

func reorderBook(s Snapshot, a ReorderBook) (Snapshot, error) {
	var step int
	switch a.Direction {
	case DirectionUp:
		step = -1
	case DirectionDown:
		step = 1
	default:
		return s, ValidationError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", a.Direction)}
	}
	idx := s.courseIndex(a.CourseID)
	if idx < 0 {
		return s, nil
	}
	course := s.Courses[idx]
	_, bi, ok := course.FindBook(a.ISBN)
	if !ok {
		return s, nil
	}
	target := bi + step
	if target < 0 || target >= len(course.Books) {
		return s, nil
	}
	books := slices.Clone(course.Books)
	books[bi], books[target] = books[target], books[bi]
	course.Books = books
	out := s
	out.Courses = slices.Clone(s.Courses)
	out.Courses[idx] = course
	return out, nil
}

func addClass(s Snapshot, a AddClass) (Snapshot, error) {
	name, err := requireName("name", a.Name)
	if err != nil {
		return s, err
	}
	if err := requireID(a.ID, s.classIndex(a.ID) >= 0); err != nil {
		return s, err
	}
	if s.courseIndex(a.CourseID) < 0 {
		return s, ValidationError{Field: "courseId", Reason: fmt.Sprintf("course %q not found", a.CourseID)}
	}
	out := s
	out.Classes = append(slices.Clone(s.Classes), Class{ID: a.ID, Name: name, CourseID: a.CourseID})
	return out, nil
}

func removeClass(s Snapshot, a RemoveClass) (Snapshot, error) {
	idx := s.classIndex(a.ID)
	if idx < 0 {
		return s, nil
	}
	if students := s.StudentsOfClass(a.ID); len(students) > 0 {
		ids := make([]string, len(students))
		for i, st := range students {
			ids[i] = st.ID
		}
		return s, InUseError{Entity: EntityClass, ID: a.ID, Dependent: EntityStudent, Dependents: ids}
	}
	out := s
	out.Classes = slices.Delete(slices.Clone(s.Classes), idx, idx+1)
	if selected(s.Selection.ClassID, a.ID) {
		out.Selection = Selection{CourseID: cloneID(s.Selection.CourseID)}
	}
	return out, nil
}

func addStudent(s Snapshot, a AddStudent) (Snapshot, error) {
	name, err := requireName("name", a.Name)
	if err != nil {
		return s, err
	}
	if err := requireID(a.ID, s.studentIndex(a.ID) >= 0); err != nil {
		return s, err
	}
	class, ok := s.FindClass(a.ClassID)
	if !ok {
		return s, ValidationError{Field: "classId", Reason: fmt.Sprintf("class %q not found", a.ClassID)}
	}
	out := s
	out.Students = append(slices.Clone(s.Students), Student{ID: a.ID, Name: name, ClassID: a.ClassID, DeliveredISBNs: []string{}})
	out.Selection = Selection{CourseID: ptr(class.CourseID), ClassID: ptr(class.ID), StudentID: ptr(a.ID)}
	return out, nil
}

func removeStudent(s Snapshot, a RemoveStudent) (Snapshot, error) {
	idx := s.studentIndex(a.ID)
	if idx < 0 {
		return s, nil
	}
	out := s
	out.Students = slices.Delete(slices.Clone(s.Students), idx, idx+1)
	if selected(s.Selection.StudentID, a.ID) {
		out.Selection = Selection{CourseID: cloneID(s.Selection.CourseID), ClassID: cloneID(s.Selection.ClassID)}
	}
	return out, nil
}

func selectCourse(s Snapshot, id *string) Snapshot {
	out := s
	out.Selection = Selection{}
	if id != nil && s.courseIndex(*id) >= 0 {
		out.Selection.CourseID = ptr(*id)
	}
	return out
}

func selectClass(s Snapshot, id *string) Snapshot {
	out := s
	out.Selection = Selection{CourseID: cloneID(s.Selection.CourseID)}
	if id == nil {
		return out
	}
	class, ok := s.FindClass(*id)
	if !ok || s.courseIndex(class.CourseID) < 0 {
		return out
	}
	out.Selection = Selection{CourseID: ptr(class.CourseID), ClassID: ptr(class.ID)}
	return out
}

func selectStudent(s Snapshot, id *string) Snapshot {
	out := s
	out.Selection = Selection{CourseID: cloneID(s.Selection.CourseID), ClassID: cloneID(s.Selection.ClassID)}
	if id == nil {
		return out
	}
	student, ok := s.FindStudent(*id)
	if !ok {
		return out
	}
	class, ok := s.FindClass(student.ClassID)
	if !ok || s.courseIndex(class.CourseID) < 0 {
		return out
	}
	out.Selection = Selection{CourseID: ptr(class.CourseID), ClassID: ptr(class.ID), StudentID: ptr(student.ID)}
	return out
}

func markDelivered(s Snapshot, a MarkDelivered) Snapshot {
	idx := s.studentIndex(a.StudentID)
	if idx < 0 || a.ISBN == "" {
		return s
	}
	student := s.Students[idx]
	if student.HasDelivered(a.ISBN) {
		return s
	}
	student.DeliveredISBNs = append(slices.Clone(student.DeliveredISBNs), a.ISBN)
	out := s
	out.Students = slices.Clone(s.Students)
	out.Students[idx] = student
	return out
}

func unmarkDelivered(s Snapshot, a UnmarkDelivered) Snapshot {
	idx := s.studentIndex(a.StudentID)
	if idx < 0 {
		return s
	}
	student := s.Students[idx]
	di := slices.Index(student.DeliveredISBNs, a.ISBN)
	if di < 0 {
		return s
	}
	student.DeliveredISBNs = slices.Delete(slices.Clone(student.DeliveredISBNs), di, di+1)
	out := s
	out.Students = slices.Clone(s.Students)
	out.Students[idx] = student
	return out
}

func importState(s Snapshot, a ImportState) (Snapshot, error) {
	normalized, _, err := ValidateImport(a.Snapshot)
	if err != nil {
		return s, err
	}
	return normalized, nil
}

func selected(cursor *string, id string) bool {
	return cursor != nil && *cursor == id
}
