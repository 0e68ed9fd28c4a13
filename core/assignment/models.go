package assignment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classwork/core"
)

// Orderings are the fields an assignment listing may be ordered by.
var Orderings = []string{"id", "title", "subject", "due_date", "created_at"}

type Assignment struct {
	ID          int         `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description null.String `json:"description" db:"description"`
	Subject     string      `json:"subject" db:"subject"`
	DueDate     time.Time   `json:"due_date" db:"due_date"`
	CreatedBy   int         `json:"created_by" db:"created_by"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
	Attachment  null.String `json:"attachment" db:"attachment"`
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	Subject     string    `json:"subject" validate:"required,max=100"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

func (na *NewAssignment) clean() {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Subject = core.CleanString(na.Subject)
	na.DueDate = na.DueDate.UTC()
}

// UpdateAssignment defines what information may be provided to modify an existing Assignment.
// Nil fields are left unchanged.
type UpdateAssignment struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	Subject     *string    `json:"subject" validate:"omitempty,max=100"`
	DueDate     *time.Time `json:"due_date"`
}

// apply cleans the provided fields, then copies them onto a.
func (ua *UpdateAssignment) apply(a *Assignment) {
	if ua.Title != nil {
		if title := core.CleanString(*ua.Title); title != "" {
			a.Title = title
		}
	}
	if ua.Description != nil {
		desc := core.CleanString(*ua.Description)
		a.Description = null.NewString(desc, desc != "")
	}
	if ua.Subject != nil {
		if subject := core.CleanString(*ua.Subject); subject != "" {
			a.Subject = subject
		}
	}
	if ua.DueDate != nil && !ua.DueDate.IsZero() {
		a.DueDate = ua.DueDate.UTC()
	}
}

type QueryFilter struct {
	Subject   string `query:"subject"`
	CreatedBy int    `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Subject = core.CleanString(qf.Subject)
}
