package sqlxrepos

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/assignment"
	"github.com/trezcool/classwork/storage/database"
)

const assignmentColumns = "id, title, description, subject, due_date, created_by, created_at, attachment"

type assignmentRepository struct {
	db queryer
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db queryer) assignment.Repository {
	return &assignmentRepository{db: db}
}

// CreateAssignment only inserts when created_by is a teacher; the foreign key covers a concurrent delete.
func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	err := repo.db.GetContext(ctx, &a.ID,
		`INSERT INTO assignments (title, description, subject, due_date, created_by, created_at, attachment)
		SELECT $1::varchar, $2::text, $3::varchar, $4::timestamptz, $5::integer, $6::timestamptz, $7::text
		WHERE EXISTS (SELECT 1 FROM users WHERE id = $5::integer AND role = 'teacher')
		RETURNING id`,
		a.Title, a.Description, a.Subject, a.DueDate, a.CreatedBy, a.CreatedAt, a.Attachment,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return assignment.Assignment{}, core.NewReferentialError("created_by")
		}
		return assignment.Assignment{}, database.WriteError(err)
	}
	return a, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id int) (assignment.Assignment, error) {
	var a assignment.Assignment
	if err := repo.db.GetContext(ctx, &a, "SELECT "+assignmentColumns+" FROM assignments WHERE id = $1", id); err != nil {
		return assignment.Assignment{}, notFound(err)
	}
	return a, nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, filter assignment.QueryFilter, ordering []core.DBOrdering) ([]assignment.Assignment, error) {
	var w where
	if filter.CreatedBy != 0 {
		w.add("created_by = $%d", filter.CreatedBy)
	}
	if filter.Subject != "" {
		w.add("subject = $%d", filter.Subject)
	}

	rows := make([]assignment.Assignment, 0)
	q := "SELECT " + assignmentColumns + " FROM assignments" + w.String() + orderBy(ordering, assignment.Orderings, "")
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}
	return rows, nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment) (int64, error) {
	n, err := affected(repo.db.ExecContext(ctx,
		`UPDATE assignments SET title = $1, description = $2, subject = $3, due_date = $4, attachment = $5
		WHERE id = $6 AND created_by = $7`,
		a.Title, a.Description, a.Subject, a.DueDate, a.Attachment, a.ID, a.CreatedBy,
	))
	if err != nil {
		return 0, database.WriteError(err)
	}
	return n, nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id, ownerID int) (int64, error) {
	n, err := affected(repo.db.ExecContext(ctx, "DELETE FROM assignments WHERE id = $1 AND created_by = $2", id, ownerID))
	if err != nil {
		return 0, database.DeleteError(err)
	}
	return n, nil
}
