package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"booktrack/pkg/domain"
)

// useSQLite points the CLI at a fresh sqlite file so state survives between runs.
func useSQLite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BOOKTRACK_STORAGE_DRIVER", "sqlite")
	t.Setenv("BOOKTRACK_SQLITE_PATH", filepath.Join(dir, "state.db"))
	return dir
}

func invoke(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

const seedState = `{
  "courses": [{"id": "c1", "name": "Grade 5", "books": [{"isbn": "111", "title": "Atlas"}]}],
  "classes": [{"id": "k1", "name": "5A", "courseId": "c1"}],
  "students": [{"id": "s1", "name": "Mara", "classId": "k1", "deliveredIsbns": ["111"]}],
  "selection": {"courseId": null, "classId": null, "studentId": null}
}`

func TestImportExportReportReset(t *testing.T) {
	dir := useSQLite(t)
	in := filepath.Join(dir, "in.json")
	if err := os.WriteFile(in, []byte(seedState), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if code, out, errOut := invoke(t, "import", in); code != 0 || !strings.Contains(out, "1 courses, 1 classes, 1 students") {
		t.Fatalf("import: %d %q %q", code, out, errOut)
	}

	code, out, _ := invoke(t, "export")
	if code != 0 {
		t.Fatalf("export exit %d", code)
	}
	snap, err := domain.DecodeSnapshot([]byte(out))
	if err != nil || len(snap.Students) != 1 {
		t.Fatalf("unexpected export %q (%v)", out, err)
	}

	code, out, _ = invoke(t, "report")
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if code != 0 || err != nil || len(records) != 2 || records[1][5] != "1" {
		t.Fatalf("unexpected report %q (%v)", out, err)
	}

	xlsx := filepath.Join(dir, "report.xlsx")
	if code, _, errOut := invoke(t, "report", "-format", "xlsx", "-o", xlsx); code != 0 {
		t.Fatalf("xlsx report: %d %q", code, errOut)
	}
	if _, err := os.Stat(xlsx); err != nil {
		t.Fatalf("expected xlsx file: %v", err)
	}

	if code, _, _ := invoke(t, "reset"); code != 2 {
		t.Fatalf("reset without -yes must be a usage error, got %d", code)
	}
	if code, out, _ := invoke(t, "reset", "-yes"); code != 0 || !strings.Contains(out, "cleared") {
		t.Fatalf("reset: %d %q", code, out)
	}
	_, out, _ = invoke(t, "export")
	if snap, _ := domain.DecodeSnapshot([]byte(out)); len(snap.Courses) != 0 {
		t.Fatalf("expected empty state after reset, got %q", out)
	}
}

func TestImportRejectsMalformedFile(t *testing.T) {
	dir := useSQLite(t)
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"courses": []}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	code, _, errOut := invoke(t, "import", bad)
	if code != 1 || !strings.Contains(errOut, "import rejected") {
		t.Fatalf("expected malformed import failure, got %d %q", code, errOut)
	}
}

func TestRosterCommand(t *testing.T) {
	dir := useSQLite(t)
	in := filepath.Join(dir, "in.json")
	if err := os.WriteFile(in, []byte(seedState), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if code, _, errOut := invoke(t, "import", in); code != 0 {
		t.Fatalf("import: %q", errOut)
	}
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	_ = wb.SetCellValue(sheet, "A1", "Name")
	_ = wb.SetCellValue(sheet, "A2", "Ola")
	roster := filepath.Join(dir, "roster.xlsx")
	if err := wb.SaveAs(roster); err != nil {
		t.Fatalf("save roster: %v", err)
	}
	_ = wb.Close()

	if code, out, errOut := invoke(t, "roster", "-class", "k1", roster); code != 0 || !strings.Contains(out, "added 1 students") {
		t.Fatalf("roster: %d %q %q", code, out, errOut)
	}
	if code, _, _ := invoke(t, "roster", roster); code != 2 {
		t.Fatalf("missing -class must be a usage error")
	}
}

func TestUsageErrors(t *testing.T) {
	useSQLite(t)
	if code, _, errOut := invoke(t); code != 2 || !strings.Contains(errOut, "usage") {
		t.Fatalf("no args: %d %q", code, errOut)
	}
	if code, _, errOut := invoke(t, "teleport"); code != 2 || !strings.Contains(errOut, "unknown command") {
		t.Fatalf("unknown command: %d %q", code, errOut)
	}
	if code, _, _ := invoke(t, "report", "-format", "pdf"); code != 2 {
		t.Fatalf("bad format must be a usage error")
	}
	if code, _, _ := invoke(t, "import"); code != 2 {
		t.Fatalf("import without file must be a usage error")
	}
}
