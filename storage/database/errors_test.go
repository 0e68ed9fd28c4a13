package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classwork/core"
)

func TestWriteError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name      string
		err       error
		wantField string
		wantFail  core.Failure
	}{
		{
			name:      "pq unique",
			err:       &pq.Error{Code: codeUniqueViolation, Constraint: "users_username_key"},
			wantField: "username",
			wantFail:  core.FailureConflict,
		},
		{
			name:      "pgx unique",
			err:       errors.Wrap(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "users_email_key"}, "inserting"),
			wantField: "email",
			wantFail:  core.FailureConflict,
		},
		{
			name:      "pq foreign key",
			err:       &pq.Error{Code: codeForeignKeyViolation, Constraint: "submissions_assignment_id_fkey"},
			wantField: "assignment_id",
			wantFail:  core.FailureValidation,
		},
		{
			name:      "pgx foreign key",
			err:       &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: "announcements_created_by_fkey"},
			wantField: "created_by",
			wantFail:  core.FailureValidation,
		},
		{
			name:     "other pg error",
			err:      &pq.Error{Code: "42P01"},
			wantFail: core.FailureInternal,
		},
		{
			name:     "not a pg error",
			err:      other,
			wantFail: core.FailureInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WriteError(tt.err)
			assert.Equal(t, tt.wantFail, core.FailureOf(err))

			switch tt.wantFail {
			case core.FailureConflict:
				var conflict *core.ConflictError
				require.ErrorAs(t, err, &conflict)
				assert.Equal(t, tt.wantField, conflict.Field)
			case core.FailureValidation:
				var refErr *core.ReferentialError
				require.ErrorAs(t, err, &refErr)
				assert.Equal(t, tt.wantField, refErr.Field)
			default:
				assert.Same(t, tt.err, err)
			}
		})
	}
}

func TestDeleteError(t *testing.T) {
	err := DeleteError(&pq.Error{Code: codeForeignKeyViolation, Constraint: "submissions_assignment_id_fkey"})
	var conflict *core.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "id", conflict.Field)

	unique := &pq.Error{Code: codeUniqueViolation}
	assert.Same(t, unique, DeleteError(unique))
	assert.Nil(t, DeleteError(nil))
}
