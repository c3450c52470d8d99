// Package exchange renders snapshots and delivery reports for export and reads
// rosters for bulk import.
package exchange

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"booktrack/pkg/domain"
)

// Format selects a report encoding.
type Format string

// Supported report formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat maps a query value to a Format; empty defaults to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", raw)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/csv"
	}
}

// ReportColumns is the header of every tabular report.
var ReportColumns = []string{"student", "class", "course", "book_isbn", "book_title", "delivered"}

// ReportRow is one (student, required book) pair.
type ReportRow struct {
	Student   string `json:"student"`
	Class     string `json:"class"`
	Course    string `json:"course"`
	ISBN      string `json:"book_isbn"`
	Title     string `json:"book_title"`
	Delivered bool   `json:"delivered"`
}

func (r ReportRow) record() []string {
	delivered := 0
	if r.Delivered {
		delivered = 1
	}
	return []string{r.Student, r.Class, r.Course, r.ISBN, r.Title, strconv.Itoa(delivered)}
}

// ReportRows lists every book of every student's course, in snapshot order.
// Students whose class or course no longer exists are skipped.
func ReportRows(s domain.Snapshot) []ReportRow {
	var rows []ReportRow
	for _, student := range s.Students {
		class, ok := s.FindClass(student.ClassID)
		if !ok {
			continue
		}
		course, ok := s.FindCourse(class.CourseID)
		if !ok {
			continue
		}
		for _, book := range course.Books {
			rows = append(rows, ReportRow{
				Student:   student.Name,
				Class:     class.Name,
				Course:    course.Name,
				ISBN:      book.ISBN,
				Title:     book.Title,
				Delivered: student.HasDelivered(book.ISBN),
			})
		}
	}
	return rows
}

// WriteJSON writes the snapshot as indented JSON.
func WriteJSON(w io.Writer, s domain.Snapshot) error {
	payload, err := domain.EncodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = w.Write(append(payload, '\n'))
	return err
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []ReportRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ReportColumns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row.record()); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReportSheet is the worksheet name used by WriteXLSX.
const ReportSheet = "Deliveries"

// WriteXLSX writes rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []ReportRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), ReportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	if err := setRow(f, 1, toAny(ReportColumns)); err != nil {
		return err
	}
	for i, row := range rows {
		delivered := 0
		if row.Delivered {
			delivered = 1
		}
		values := []any{row.Student, row.Class, row.Course, row.ISBN, row.Title, delivered}
		if err := setRow(f, i+2, values); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(ReportSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// WriteReport renders rows in format.
func WriteReport(w io.Writer, format Format, rows []ReportRow) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, rows)
	case FormatJSON:
		if rows == nil {
			rows = []ReportRow{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}
