package inmemdb

import (
	"context"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/auth"
)

type ownership struct {
	db *DB
}

func NewOwnership(db *DB) auth.Ownership {
	return &ownership{db: db}
}

func (o *ownership) AssignmentOwner(_ context.Context, assignmentID int) (int, error) {
	o.db.mutex.RLock()
	defer o.db.mutex.RUnlock()

	if a, ok := o.db.assignments[assignmentID]; ok {
		return a.CreatedBy, nil
	}
	return 0, core.ErrNotFound
}

func (o *ownership) SubmissionOwners(_ context.Context, submissionID int) (auth.SubmissionOwners, error) {
	o.db.mutex.RLock()
	defer o.db.mutex.RUnlock()

	s, ok := o.db.submissions[submissionID]
	if !ok {
		return auth.SubmissionOwners{}, core.ErrNotFound
	}
	owners := auth.SubmissionOwners{StudentID: s.StudentID}
	if a, ok := o.db.assignments[s.AssignmentID]; ok {
		owners.AssignmentOwnerID = a.CreatedBy
	}
	return owners, nil
}
