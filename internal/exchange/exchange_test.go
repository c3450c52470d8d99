package exchange

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"booktrack/pkg/domain"
)

func reportSnapshot(t *testing.T) domain.Snapshot {
	t.Helper()
	s := domain.EmptySnapshot()
	course := domain.NewAddCourse("Grade 5")
	class := domain.NewAddClass(course.ID, "5A")
	mara := domain.NewAddStudent(class.ID, "Mara")
	ola := domain.NewAddStudent(class.ID, "Ola")
	for _, a := range []domain.Action{
		course,
		domain.AddBookToCourse{CourseID: course.ID, ISBN: "111", Title: "Atlas"},
		domain.AddBookToCourse{CourseID: course.ID, ISBN: "222", Title: "Reader, Vol. 1"},
		class, mara, ola,
		domain.MarkDelivered{StudentID: mara.ID, ISBN: "222"},
	} {
		next, err := domain.Reduce(s, a)
		if err != nil {
			t.Fatalf("reduce %s: %v", a.Kind(), err)
		}
		s = next
	}
	s.Students = append(s.Students, domain.Student{ID: "orphan", Name: "Lost", ClassID: "ghost", DeliveredISBNs: []string{}})
	return s
}

func TestReportRows(t *testing.T) {
	rows := ReportRows(reportSnapshot(t))
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d: %+v", len(rows), rows)
	}
	want := []ReportRow{
		{Student: "Mara", Class: "5A", Course: "Grade 5", ISBN: "111", Title: "Atlas"},
		{Student: "Mara", Class: "5A", Course: "Grade 5", ISBN: "222", Title: "Reader, Vol. 1", Delivered: true},
		{Student: "Ola", Class: "5A", Course: "Grade 5", ISBN: "111", Title: "Atlas"},
		{Student: "Ola", Class: "5A", Course: "Grade 5", ISBN: "222", Title: "Reader, Vol. 1"},
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d: want %+v got %+v", i, want[i], rows[i])
		}
	}
	if got := ReportRows(domain.EmptySnapshot()); len(got) != 0 {
		t.Fatalf("expected no rows for empty snapshot")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ReportRows(reportSnapshot(t))); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv back: %v", err)
	}
	if len(records) != 5 || strings.Join(records[0], ",") != strings.Join(ReportColumns, ",") {
		t.Fatalf("unexpected header or size: %v", records)
	}
	if records[2][4] != "Reader, Vol. 1" || records[2][5] != "1" || records[1][5] != "0" {
		t.Fatalf("unexpected delivered row %v / %v", records[1], records[2])
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, ReportRows(reportSnapshot(t))); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(ReportSheet)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 5 || rows[0][0] != "student" || rows[2][5] != "1" {
		t.Fatalf("unexpected workbook rows %v", rows)
	}
}

func TestWriteJSONIsDecodable(t *testing.T) {
	s := reportSnapshot(t)
	var buf bytes.Buffer
	if err := WriteJSON(&buf, s); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"courses\"") {
		t.Fatalf("expected indented output, got %s", buf.String())
	}
	back, err := domain.DecodeSnapshot(buf.Bytes())
	if err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(back.Students) != len(s.Students) {
		t.Fatalf("expected %d students, got %d", len(s.Students), len(back.Students))
	}
}

func TestWriteReportFormats(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, FormatJSON, nil); err != nil {
		t.Fatalf("write json report: %v", err)
	}
	var rows []ReportRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil || rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty array, got %q (%v)", buf.String(), err)
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Fatalf("expected unsupported format")
	}
	if f, err := ParseFormat(""); err != nil || f != FormatCSV || f.ContentType() != "text/csv" {
		t.Fatalf("expected csv default, got %s %v", f, err)
	}
	if err := WriteReport(&buf, Format("pdf"), nil); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func rosterWorkbook(t *testing.T, cells map[string]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for cell, value := range cells {
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			t.Fatalf("set %s: %v", cell, err)
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return &buf
}

func TestReadRoster(t *testing.T) {
	buf := rosterWorkbook(t, map[string]string{
		"A1": "Name",
		"A2": " Mara ",
		"A3": "",
		"B3": "note without a name",
		"A4": "Ola",
		"A6": "Ines",
	})
	names, err := ReadRoster(buf)
	if err != nil {
		t.Fatalf("read roster: %v", err)
	}
	if strings.Join(names, "|") != "Mara|Ola|Ines" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestReadRosterHeaderOnly(t *testing.T) {
	names, err := ReadRoster(rosterWorkbook(t, map[string]string{"A1": "Name"}))
	if err != nil || len(names) != 0 {
		t.Fatalf("expected no names, got %v %v", names, err)
	}
}

func TestReadRosterRejectsGarbage(t *testing.T) {
	_, err := ReadRoster(strings.NewReader("not a workbook"))
	if err == nil || errors.Is(err, ErrEmptyWorkbook) {
		t.Fatalf("expected open error, got %v", err)
	}
}
