package submission

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classwork/core"
)

const (
	MinGrade = 0
	MaxGrade = 100
)

// Submission is a file handed in by a student for an assignment.
// A student may submit several times; the latest by SubmittedAt is the current one.
type Submission struct {
	ID           int         `json:"id" db:"id"`
	AssignmentID int         `json:"assignment_id" db:"assignment_id"`
	StudentID    int         `json:"student_id" db:"student_id"`
	File         string      `json:"file" db:"file"`
	SubmittedAt  time.Time   `json:"submitted_at" db:"submitted_at"` // UTC
	Grade        null.Int    `json:"grade" db:"grade"`
	Feedback     null.String `json:"feedback" db:"feedback"`
}

// Grade is written by the teacher owning the parent assignment only.
type Grade struct {
	Grade    *int    `json:"grade" validate:"required,min=0,max=100"`
	Feedback *string `json:"feedback" validate:"omitempty,max=5000"`
}

func (g *Grade) clean() {
	if g.Feedback != nil {
		fb := core.CleanString(*g.Feedback)
		g.Feedback = &fb
	}
}

type QueryFilter struct {
	AssignmentID int
	StudentID    int  // 0 means any student
	LatestOnly   bool // only the current submission of each student
}

// GradebookEntry is the current submission of a student for an assignment.
type GradebookEntry struct {
	SubmissionID int         `db:"submission_id"`
	StudentID    int         `db:"student_id"`
	Username     string      `db:"username"`
	Email        string      `db:"email"`
	File         string      `db:"file"`
	SubmittedAt  time.Time   `db:"submitted_at"`
	Grade        null.Int    `db:"grade"`
	Feedback     null.String `db:"feedback"`
}
