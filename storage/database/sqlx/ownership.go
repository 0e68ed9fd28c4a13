package sqlxrepos

import (
	"context"

	"github.com/trezcool/classwork/core/auth"
)

type ownership struct {
	db queryer
}

// NewOwnership resolves resource owners for the auth.Authorizer.
func NewOwnership(db queryer) auth.Ownership {
	return &ownership{db: db}
}

func (o *ownership) AssignmentOwner(ctx context.Context, assignmentID int) (int, error) {
	var owner int
	if err := o.db.GetContext(ctx, &owner, "SELECT created_by FROM assignments WHERE id = $1", assignmentID); err != nil {
		return 0, notFound(err)
	}
	return owner, nil
}

func (o *ownership) SubmissionOwners(ctx context.Context, submissionID int) (auth.SubmissionOwners, error) {
	var row struct {
		StudentID         int `db:"student_id"`
		AssignmentOwnerID int `db:"created_by"`
	}
	err := o.db.GetContext(ctx, &row,
		`SELECT s.student_id, a.created_by
		FROM submissions AS s JOIN assignments AS a ON a.id = s.assignment_id
		WHERE s.id = $1`,
		submissionID,
	)
	if err != nil {
		return auth.SubmissionOwners{}, notFound(err)
	}
	return auth.SubmissionOwners{StudentID: row.StudentID, AssignmentOwnerID: row.AssignmentOwnerID}, nil
}
