package inmemdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/auth"
	"github.com/trezcool/classwork/core/submission"
	inmemdb "github.com/trezcool/classwork/storage/database/inmem"
	"github.com/trezcool/classwork/tests"
)

func TestReferentialIntegrity(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	teacher := env.CreateUser(t, "teacher", core.RoleTeacher)
	student := env.CreateUser(t, "student", core.RoleStudent)
	a := env.CreateAssignment(t, teacher, "Essay")

	refField := func(t *testing.T, err error) string {
		var refErr *core.ReferentialError
		require.ErrorAs(t, err, &refErr)
		return refErr.Field
	}

	_, err := env.SubmissionRepo.CreateSubmission(ctx, submission.Submission{AssignmentID: 999, StudentID: student.ID, File: "f"})
	assert.Equal(t, "assignment_id", refField(t, err))
	_, err = env.SubmissionRepo.CreateSubmission(ctx, submission.Submission{AssignmentID: a.ID, StudentID: teacher.ID, File: "f"})
	assert.Equal(t, "student_id", refField(t, err))

	env.CreateSubmission(t, student, a, time.Now())

	_, err = env.AssignmentRepo.DeleteAssignment(ctx, a.ID, teacher.ID)
	assert.Equal(t, core.FailureConflict, core.FailureOf(err))
	_, err = env.UserRepo.DeleteUser(ctx, student.ID)
	assert.Equal(t, core.FailureConflict, core.FailureOf(err))
	_, err = env.UserRepo.DeleteUser(ctx, teacher.ID)
	assert.Equal(t, core.FailureConflict, core.FailureOf(err))
}

func TestOwnerScopedWrites(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	owner := env.CreateUser(t, "owner", core.RoleTeacher)
	other := env.CreateUser(t, "other", core.RoleTeacher)
	student := env.CreateUser(t, "student", core.RoleStudent)
	a := env.CreateAssignment(t, owner, "Essay")
	sub := env.CreateSubmission(t, student, a, time.Now())

	hijacked := a
	hijacked.Title = "Hijacked"
	hijacked.CreatedBy = other.ID
	n, err := env.AssignmentRepo.UpdateAssignment(ctx, hijacked)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = env.SubmissionRepo.GradeSubmission(ctx, sub.ID, other.ID, null.IntFrom(100), null.String{})
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = env.SubmissionRepo.UpdateSubmissionFile(ctx, sub.ID, other.ID, "submissions/x.pdf", time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = env.SubmissionRepo.DeleteSubmission(ctx, sub.ID, other.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	stored, err := env.SubmissionRepo.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub, stored)

	n, err = env.SubmissionRepo.GradeSubmission(ctx, sub.ID, owner.ID, null.IntFrom(85), null.StringFrom("Good work"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestOwnership(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	owner := env.CreateUser(t, "owner", core.RoleTeacher)
	student := env.CreateUser(t, "student", core.RoleStudent)
	a := env.CreateAssignment(t, owner, "Essay")
	sub := env.CreateSubmission(t, student, a, time.Now())

	o := inmemdb.NewOwnership(env.DB)
	id, err := o.AssignmentOwner(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, id)

	owners, err := o.SubmissionOwners(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.SubmissionOwners{StudentID: student.ID, AssignmentOwnerID: owner.ID}, owners)

	_, err = o.AssignmentOwner(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = o.SubmissionOwners(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
