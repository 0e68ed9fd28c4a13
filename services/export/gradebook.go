package export

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/classwork/core/assignment"
	"github.com/trezcool/classwork/core/submission"
)

const gradebookSheet = "Gradebook"

var gradebookHeader = []interface{}{"Student ID", "Username", "Email", "Submission ID", "Submitted at", "File", "Grade", "Feedback"}

// Gradebook writes an XLSX workbook with the current submission of each student.
func Gradebook(w io.Writer, a assignment.Assignment, entries []submission.GradebookEntry) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", gradebookSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: a.Title, Subject: a.Subject}); err != nil {
		return errors.Wrap(err, "setting doc props")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	if err = f.SetSheetRow(gradebookSheet, "A1", &gradebookHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	if err = f.SetCellStyle(gradebookSheet, "A1", "H1", bold); err != nil {
		return errors.Wrap(err, "styling header")
	}

	for i, e := range entries {
		var grade interface{} = ""
		if e.Grade.Valid {
			grade = e.Grade.Int
		}
		row := []interface{}{
			e.StudentID,
			e.Username,
			e.Email,
			e.SubmissionID,
			e.SubmittedAt.UTC().Format("2006-01-02 15:04:05"),
			e.File,
			grade,
			e.Feedback.String,
		}
		if err = f.SetSheetRow(gradebookSheet, "A"+strconv.Itoa(i+2), &row); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	_ = f.SetColWidth(gradebookSheet, "B", "C", 24)
	_ = f.SetColWidth(gradebookSheet, "E", "F", 28)

	if err = f.Write(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}
