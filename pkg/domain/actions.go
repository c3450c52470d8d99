package domain

import (
	"encoding/json"
	"fmt"
)

// Kind names an action variant in envelopes, logs and metrics.
type Kind string

// Action kinds.
const (
	KindAddCourse            Kind = "add_course"
	KindRemoveCourse         Kind = "remove_course"
	KindAddBookToCourse      Kind = "add_book_to_course"
	KindRemoveBookFromCourse Kind = "remove_book_from_course"
	KindReorderBook          Kind = "reorder_book"
	KindAddClass             Kind = "add_class"
	KindRemoveClass          Kind = "remove_class"
	KindAddStudent           Kind = "add_student"
	KindRemoveStudent        Kind = "remove_student"
	KindSelectCourse         Kind = "select_course"
	KindSelectClass          Kind = "select_class"
	KindSelectStudent        Kind = "select_student"
	KindMarkDelivered        Kind = "mark_delivered"
	KindUnmarkDelivered      Kind = "unmark_delivered"
	KindImportState          Kind = "import_state"
	KindResetState           Kind = "reset_state"
	KindLookupSucceeded      Kind = "lookup_succeeded"
	KindLookupFailed         Kind = "lookup_failed"
)

// Action is a closed set of state transitions. Only this package can add variants.
type Action interface {
	Kind() Kind
	action()
}

// Direction moves a book within its course list.
type Direction string

// Reorder directions.
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// AddCourse appends a course with an empty book list and selects it.
type AddCourse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RemoveCourse deletes a course that no class references.
type RemoveCourse struct {
	ID string `json:"id"`
}

// AddBookToCourse appends a book unless the isbn is already listed.
type AddBookToCourse struct {
	CourseID string `json:"courseId"`
	ISBN     string `json:"isbn"`
	Title    string `json:"title"`
}

// RemoveBookFromCourse drops a book, keeping the order of the rest.
type RemoveBookFromCourse struct {
	CourseID string `json:"courseId"`
	ISBN     string `json:"isbn"`
}

// ReorderBook swaps a book with its neighbour.
type ReorderBook struct {
	CourseID  string    `json:"courseId"`
	ISBN      string    `json:"isbn"`
	Direction Direction `json:"direction"`
}

// AddClass appends a class bound to a course.
type AddClass struct {
	ID       string `json:"id"`
	CourseID string `json:"courseId"`
	Name     string `json:"name"`
}

// RemoveClass deletes a class that no student references.
type RemoveClass struct {
	ID string `json:"id"`
}

// AddStudent appends a student with nothing delivered and selects it.
type AddStudent struct {
	ID      string `json:"id"`
	ClassID string `json:"classId"`
	Name    string `json:"name"`
}

// RemoveStudent deletes a student.
type RemoveStudent struct {
	ID string `json:"id"`
}

// SelectCourse moves the course cursor; nil clears it.
type SelectCourse struct {
	ID *string `json:"id"`
}

// SelectClass moves the class cursor; nil clears it.
type SelectClass struct {
	ID *string `json:"id"`
}

// SelectStudent moves the student cursor; nil clears it.
type SelectStudent struct {
	ID *string `json:"id"`
}

// MarkDelivered records that a student turned in a book.
type MarkDelivered struct {
	StudentID string `json:"studentId"`
	ISBN      string `json:"isbn"`
}

// UnmarkDelivered reverts a delivery confirmation.
type UnmarkDelivered struct {
	StudentID string `json:"studentId"`
	ISBN      string `json:"isbn"`
}

// ImportState replaces the whole snapshot.
type ImportState struct {
	Snapshot Snapshot `json:"snapshot"`
}

// ResetState replaces the snapshot with the empty one.
type ResetState struct{}

// LookupSucceeded carries a title found for a scanned isbn back into the reducer.
type LookupSucceeded struct {
	CourseID string `json:"courseId"`
	ISBN     string `json:"isbn"`
	Title    string `json:"title"`
}

// LookupFailed records that no title was found for a scanned isbn.
type LookupFailed struct {
	CourseID string `json:"courseId"`
	ISBN     string `json:"isbn"`
	Reason   string `json:"reason,omitempty"`
}

func (AddCourse) Kind() Kind            { return KindAddCourse }
func (RemoveCourse) Kind() Kind         { return KindRemoveCourse }
func (AddBookToCourse) Kind() Kind      { return KindAddBookToCourse }
func (RemoveBookFromCourse) Kind() Kind { return KindRemoveBookFromCourse }
func (ReorderBook) Kind() Kind          { return KindReorderBook }
func (AddClass) Kind() Kind             { return KindAddClass }
func (RemoveClass) Kind() Kind          { return KindRemoveClass }
func (AddStudent) Kind() Kind           { return KindAddStudent }
func (RemoveStudent) Kind() Kind        { return KindRemoveStudent }
func (SelectCourse) Kind() Kind         { return KindSelectCourse }
func (SelectClass) Kind() Kind          { return KindSelectClass }
func (SelectStudent) Kind() Kind        { return KindSelectStudent }
func (MarkDelivered) Kind() Kind        { return KindMarkDelivered }
func (UnmarkDelivered) Kind() Kind      { return KindUnmarkDelivered }
func (ImportState) Kind() Kind          { return KindImportState }
func (ResetState) Kind() Kind           { return KindResetState }
func (LookupSucceeded) Kind() Kind      { return KindLookupSucceeded }
func (LookupFailed) Kind() Kind         { return KindLookupFailed }

func (AddCourse) action()            {}
func (RemoveCourse) action()         {}
func (AddBookToCourse) action()      {}
func (RemoveBookFromCourse) action() {}
func (ReorderBook) action()          {}
func (AddClass) action()             {}
func (RemoveClass) action()          {}
func (AddStudent) action()           {}
func (RemoveStudent) action()        {}
func (SelectCourse) action()         {}
func (SelectClass) action()          {}
func (SelectStudent) action()        {}
func (MarkDelivered) action()        {}
func (UnmarkDelivered) action()      {}
func (ImportState) action()          {}
func (ResetState) action()           {}
func (LookupSucceeded) action()      {}
func (LookupFailed) action()         {}

// NewAddCourse builds an AddCourse with a freshly generated id.
func NewAddCourse(name string) AddCourse {
	return AddCourse{ID: NewID(), Name: name}
}

// NewAddClass builds an AddClass with a freshly generated id.
func NewAddClass(courseID, name string) AddClass {
	return AddClass{ID: NewID(), CourseID: courseID, Name: name}
}

// NewAddStudent builds an AddStudent with a freshly generated id.
func NewAddStudent(classID, name string) AddStudent {
	return AddStudent{ID: NewID(), ClassID: classID, Name: name}
}

// Kinds lists every action kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindAddCourse, KindRemoveCourse, KindAddBookToCourse, KindRemoveBookFromCourse,
		KindReorderBook, KindAddClass, KindRemoveClass, KindAddStudent, KindRemoveStudent,
		KindSelectCourse, KindSelectClass, KindSelectStudent, KindMarkDelivered,
		KindUnmarkDelivered, KindImportState, KindResetState, KindLookupSucceeded, KindLookupFailed,
	}
}

// DecodeAction builds the action variant named by kind from its JSON payload.
// Creation actions without an id get a generated one.
func DecodeAction(kind Kind, payload json.RawMessage) (Action, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	switch kind {
	case KindAddCourse:
		a, err := decodeInto[AddCourse](payload)
		if a.ID == "" {
			a.ID = NewID()
		}
		return a, err
	case KindRemoveCourse:
		return decodeInto[RemoveCourse](payload)
	case KindAddBookToCourse:
		return decodeInto[AddBookToCourse](payload)
	case KindRemoveBookFromCourse:
		return decodeInto[RemoveBookFromCourse](payload)
	case KindReorderBook:
		a, err := decodeInto[ReorderBook](payload)
		if err == nil && a.Direction != DirectionUp && a.Direction != DirectionDown {
			return nil, ValidationError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", a.Direction)}
		}
		return a, err
	case KindAddClass:
		a, err := decodeInto[AddClass](payload)
		if a.ID == "" {
			a.ID = NewID()
		}
		return a, err
	case KindRemoveClass:
		return decodeInto[RemoveClass](payload)
	case KindAddStudent:
		a, err := decodeInto[AddStudent](payload)
		if a.ID == "" {
			a.ID = NewID()
		}
		return a, err
	case KindRemoveStudent:
		return decodeInto[RemoveStudent](payload)
	case KindSelectCourse:
		return decodeInto[SelectCourse](payload)
	case KindSelectClass:
		return decodeInto[SelectClass](payload)
	case KindSelectStudent:
		return decodeInto[SelectStudent](payload)
	case KindMarkDelivered:
		return decodeInto[MarkDelivered](payload)
	case KindUnmarkDelivered:
		return decodeInto[UnmarkDelivered](payload)
	case KindImportState:
		snap, err := DecodeSnapshot(payload)
		if err != nil {
			return nil, err
		}
		return ImportState{Snapshot: snap}, nil
	case KindResetState:
		return ResetState{}, nil
	case KindLookupSucceeded:
		return decodeInto[LookupSucceeded](payload)
	case KindLookupFailed:
		return decodeInto[LookupFailed](payload)
	default:
		return nil, fmt.Errorf("unknown action kind %q", kind)
	}
}

func decodeInto[T Action](payload json.RawMessage) (T, error) {
	var a T
	if err := json.Unmarshal(payload, &a); err != nil {
		return a, fmt.Errorf("decode %s payload: %w", a.Kind(), err)
	}
	return a, nil
}
