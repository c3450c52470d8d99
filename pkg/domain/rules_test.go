package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "bad ref"}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	if len(result.Warnings()) != 1 {
		t.Fatalf("expected one warning, got %+v", result.Warnings())
	}
	err := RuleViolationError{Result: result}
	if !strings.Contains(err.Error(), "bad ref") {
		t.Fatalf("expected blocking message in error, got %q", err.Error())
	}
	if !errors.Is(err, ErrMalformedImport) {
		t.Fatalf("expected rule violation to match ErrMalformedImport")
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 || original.Violations[0].Rule != "existing" {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(Snapshot) Result {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}
}

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"warn"})
	res := engine.Evaluate(EmptySnapshot())
	if len(res.Violations) != 1 || res.Violations[0].Rule != "warn" {
		t.Fatalf("expected violation, got %+v", res.Violations)
	}
}

func TestDefaultRulesAcceptConsistentSnapshot(t *testing.T) {
	res := DefaultRulesEngine().Evaluate(seeded(t))
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %+v", res.Violations)
	}
}

func TestDefaultRulesBlockBrokenSnapshots(t *testing.T) {
	cases := map[string]func(*Snapshot){
		"duplicate course id": func(s *Snapshot) { s.Courses = append(s.Courses, Course{ID: "c1", Name: "Dup"}) },
		"empty student id":    func(s *Snapshot) { s.Students[0].ID = "" },
		"dangling class":      func(s *Snapshot) { s.Classes[0].CourseID = "ghost" },
		"dangling student":    func(s *Snapshot) { s.Students[0].ClassID = "ghost" },
		"duplicate isbn":      func(s *Snapshot) { s.Courses[0].Books = append(s.Courses[0].Books, BookRef{ISBN: "111"}) },
		"empty isbn":          func(s *Snapshot) { s.Courses[0].Books[0].ISBN = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := seeded(t).Clone()
			mutate(&s)
			_, res, err := ValidateImport(s)
			if err == nil || !res.HasBlocking() {
				t.Fatalf("expected blocking violation, got %+v", res)
			}
			var rv RuleViolationError
			if !errors.As(err, &rv) {
				t.Fatalf("expected RuleViolationError, got %T", err)
			}
		})
	}
}

func TestValidateImportNormalizesWarnings(t *testing.T) {
	s := seeded(t).Clone()
	s.Students[0].DeliveredISBNs = []string{"111", "111", "222"}
	s.Selection = Selection{CourseID: ptr("c1"), ClassID: ptr("ghost"), StudentID: ptr("s1")}
	out, res, err := ValidateImport(s)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(res.Warnings()) != 2 {
		t.Fatalf("expected two warnings, got %+v", res.Violations)
	}
	if got := out.Students[0].DeliveredISBNs; len(got) != 2 || got[0] != "111" || got[1] != "222" {
		t.Fatalf("expected deduplicated set, got %v", got)
	}
	if idOf(out.Selection.CourseID) != "c1" || out.Selection.ClassID != nil || out.Selection.StudentID != nil {
		t.Fatalf("expected selection trimmed to the course, got %+v", out.Selection)
	}
	if len(s.Students[0].DeliveredISBNs) != 3 {
		t.Fatalf("normalization must not mutate the input")
	}
}
