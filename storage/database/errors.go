package database

import (
	stderrors "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/trezcool/classwork/core"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// constraintFields maps the schema constraints to the payload fields they guard.
var constraintFields = map[string]string{
	"users_username_key":             "username",
	"users_email_key":                "email",
	"assignments_created_by_fkey":    "created_by",
	"submissions_assignment_id_fkey": "assignment_id",
	"submissions_student_id_fkey":    "student_id",
	"announcements_created_by_fkey":  "created_by",
}

type pgError struct {
	code       string
	constraint string
}

func asPgError(err error) (pgError, bool) {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pgError{code: string(pqErr.Code), constraint: pqErr.Constraint}, true
	}
	var pgxErr *pgconn.PgError
	if stderrors.As(err, &pgxErr) {
		return pgError{code: pgxErr.Code, constraint: pgxErr.ConstraintName}, true
	}
	return pgError{}, false
}

func field(constraint string) string {
	if f, ok := constraintFields[constraint]; ok {
		return f
	}
	return constraint
}

// WriteError translates the constraint violations of an insert or update into core errors.
// Other errors are returned as they are.
func WriteError(err error) error {
	pgErr, ok := asPgError(err)
	if !ok {
		return err
	}
	switch pgErr.code {
	case codeUniqueViolation:
		f := field(pgErr.constraint)
		return core.NewConflictError(f, "a record with this "+strings.ReplaceAll(f, "_", " ")+" already exists")
	case codeForeignKeyViolation:
		return core.NewReferentialError(field(pgErr.constraint))
	}
	return err
}

// DeleteError translates the foreign key violation of a delete into a conflict:
// the row is still referenced.
func DeleteError(err error) error {
	pgErr, ok := asPgError(err)
	if ok && pgErr.code == codeForeignKeyViolation {
		return core.NewConflictError("id", "the record is still referenced")
	}
	return err
}
