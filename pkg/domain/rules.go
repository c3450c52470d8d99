package domain

import (
	"fmt"
	"strings"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine whether an imported snapshot is accepted.
const (
	// SeverityBlock rejects the snapshot.
	SeverityBlock Severity = "block"
	// SeverityWarn is logged and normalized away.
	SeverityWarn Severity = "warn"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entityId,omitempty"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity != SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when an imported snapshot has blocking violations.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	var msgs []string
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			msgs = append(msgs, v.Message)
		}
	}
	return "snapshot rejected by rules: " + strings.Join(msgs, "; ")
}

// Is matches ErrMalformedImport.
func (e RuleViolationError) Is(target error) bool { return target == ErrMalformedImport }

// Rule inspects a whole snapshot.
type Rule interface {
	Name() string
	Evaluate(s Snapshot) Result
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine with the given rules.
func NewRulesEngine(rules ...Rule) *RulesEngine {
	return &RulesEngine{rules: rules}
}

// DefaultRulesEngine returns an engine carrying the built-in snapshot integrity rules.
func DefaultRulesEngine() *RulesEngine {
	return NewRulesEngine(identityRule{}, referenceRule{}, catalogRule{}, deliveryRule{}, selectionRule{})
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(s Snapshot) Result {
	var combined Result
	for _, rule := range e.rules {
		combined.Merge(rule.Evaluate(s))
	}
	return combined
}

// ValidateImport runs the default rules over s. Blocking violations yield a
// RuleViolationError; otherwise the normalized snapshot is returned together with
// the warnings that normalization resolved.
func ValidateImport(s Snapshot) (Snapshot, Result, error) {
	res := DefaultRulesEngine().Evaluate(s)
	if res.HasBlocking() {
		return Snapshot{}, res, RuleViolationError{Result: res}
	}
	return NormalizeSnapshot(s), res, nil
}

// NormalizeSnapshot returns a deep copy of s with nil collections replaced by empty
// ones, duplicate delivered isbns dropped, and selection levels that do not resolve
// to a consistent parent chain cleared.
func NormalizeSnapshot(s Snapshot) Snapshot {
	out := s.Clone()
	for i := range out.Courses {
		if out.Courses[i].Books == nil {
			out.Courses[i].Books = []BookRef{}
		}
	}
	for i := range out.Students {
		out.Students[i].DeliveredISBNs = dedupeStrings(out.Students[i].DeliveredISBNs)
	}
	out.Selection = normalizeSelection(out)
	return out
}

func normalizeSelection(s Snapshot) Selection {
	var sel Selection
	if s.Selection.CourseID == nil || s.courseIndex(*s.Selection.CourseID) < 0 {
		return sel
	}
	sel.CourseID = ptr(*s.Selection.CourseID)
	if s.Selection.ClassID == nil {
		return sel
	}
	class, ok := s.FindClass(*s.Selection.ClassID)
	if !ok || class.CourseID != *sel.CourseID {
		return sel
	}
	sel.ClassID = ptr(class.ID)
	if s.Selection.StudentID == nil {
		return sel
	}
	student, ok := s.FindStudent(*s.Selection.StudentID)
	if !ok || student.ClassID != class.ID {
		return sel
	}
	sel.StudentID = ptr(student.ID)
	return sel
}

func dedupeStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

type identityRule struct{}

func (identityRule) Name() string { return "unique-ids" }

func (r identityRule) Evaluate(s Snapshot) Result {
	var res Result
	check := func(entity EntityType, ids []string) {
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if strings.TrimSpace(id) == "" {
				res.Violations = append(res.Violations, Violation{Rule: r.Name(), Severity: SeverityBlock, Entity: entity, Message: fmt.Sprintf("%s with empty id", entity)})
				continue
			}
			if _, dup := seen[id]; dup {
				res.Violations = append(res.Violations, Violation{Rule: r.Name(), Severity: SeverityBlock, Entity: entity, EntityID: id, Message: fmt.Sprintf("duplicate %s id %q", entity, id)})
			}
			seen[id] = struct{}{}
		}
	}
	courseIDs := make([]string, len(s.Courses))
	for i, c := range s.Courses {
		courseIDs[i] = c.ID
	}
	classIDs := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		classIDs[i] = c.ID
	}
	studentIDs := make([]string, len(s.Students))
	for i, st := range s.Students {
		studentIDs[i] = st.ID
	}
	check(EntityCourse, courseIDs)
	check(EntityClass, classIDs)
	check(EntityStudent, studentIDs)
	return res
}

type referenceRule struct{}

func (referenceRule) Name() string { return "resolvable-references" }

func (r referenceRule) Evaluate(s Snapshot) Result {
	var res Result
	for _, c := range s.Classes {
		if s.courseIndex(c.CourseID) < 0 {
			res.Violations = append(res.Violations, Violation{Rule: r.Name(), Severity: SeverityBlock, Entity: EntityClass, EntityID: c.ID,
				Message: fmt.Sprintf("class %q references unknown course %q", c.ID, c.CourseID)})
		}
	}
	for _, st := range s.Students {
		if s.classIndex(st.ClassID) < 0 {
			res.Violations = append(res.Violations, Violation{Rule: r.Name(), Severity: SeverityBlock, Entity: EntityStudent, EntityID: st.ID,
				Message: fmt.Sprintf("student %q references unknown class %q", st.ID, st.ClassID)})
		}
	}
	return res
}

type catalogRule struct{}

func (catalogRule) Name() string { return "unique-isbns" }

func (r catalogRule) Evaluate(s Snapshot) Result {
	var res Result
	for _, c := range s.Courses {
		seen := make(map[string]struct{}, len(c.Books))
		for _, b := range c.Books {
			if strings.TrimSpace(b.ISBN) == "" {
				res.Violations = append(res.Violations, Violation{Rule: r.Name(), Severity: SeverityBlock, Entity: EntityCourse, EntityID: c.ID,
					Message: fmt.Sprintf("course %q lists a book with empty isbn", c.ID)})
				continue
			}
			if _, dup := seen[b.ISBN]; dup {
				res.Violations = append(res.Violations, Violation{Rule: r.Name(), Severity: SeverityBlock, Entity: EntityCourse, EntityID: c.ID,
					Message: fmt.Sprintf("course %q lists isbn %q twice", c.ID, b.ISBN)})
			}
			seen[b.ISBN] = struct{}{}
		}
	}
	return res
}

type deliveryRule struct{}

func (deliveryRule) Name() string { return "delivered-set" }

func (r deliveryRule) Evaluate(s Snapshot) Result {
	var res Result
	for _, st := range s.Students {
		if len(dedupeStrings(st.DeliveredISBNs)) != len(st.DeliveredISBNs) {
			res.Violations = append(res.Violations, Violation{Rule: r.Name(), Severity: SeverityWarn, Entity: EntityStudent, EntityID: st.ID,
				Message: fmt.Sprintf("student %q has duplicate delivered isbns", st.ID)})
		}
	}
	return res
}

type selectionRule struct{}

func (selectionRule) Name() string { return "selection-hierarchy" }

func (r selectionRule) Evaluate(s Snapshot) Result {
	want := normalizeSelection(s)
	if sameID(want.CourseID, s.Selection.CourseID) && sameID(want.ClassID, s.Selection.ClassID) && sameID(want.StudentID, s.Selection.StudentID) {
		return Result{}
	}
	return Result{Violations: []Violation{{Rule: r.Name(), Severity: SeverityWarn, Entity: EntitySelection,
		Message: "selection points at missing or unrelated records; cleared"}}}
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
