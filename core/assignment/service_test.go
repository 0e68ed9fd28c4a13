package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/assignment"
	"github.com/trezcool/classwork/tests"
)

func strPtr(s string) *string { return &s }

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	teacher := testutil.Caller(env.CreateUser(t, "teacher", core.RoleTeacher))
	student := testutil.Caller(env.CreateUser(t, "student", core.RoleStudent))
	due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.FixedZone("WAT", 3600))

	na := assignment.NewAssignment{Title: " Essay 1 ", Subject: "English", DueDate: due}

	t.Run("with attachment", func(t *testing.T) {
		up := testutil.Upload("brief.PDF", 1<<10)
		a, err := env.AssignmentSvc.Create(ctx, teacher, na, &up)
		require.NoError(t, err)
		assert.Equal(t, "Essay 1", a.Title)
		assert.Equal(t, teacher.ID, a.CreatedBy)
		assert.Equal(t, time.UTC, a.DueDate.Location())
		assert.True(t, due.Equal(a.DueDate))
		require.True(t, a.Attachment.Valid)
		assert.Equal(t, []string{a.Attachment.String}, env.StoredFiles(t))
	})

	t.Run("denied callers never store", func(t *testing.T) {
		up := testutil.Upload("brief.pdf", 1<<10)
		_, err := env.AssignmentSvc.Create(ctx, student, na, &up)
		assert.Equal(t, core.FailureNotFound, core.FailureOf(err))
		assert.Len(t, env.StoredFiles(t), 1)
	})

	t.Run("rejected attachment", func(t *testing.T) {
		up := testutil.Upload("brief.exe", 10)
		_, err := env.AssignmentSvc.Create(ctx, teacher, na, &up)
		var iErr *core.IntakeError
		require.ErrorAs(t, err, &iErr)
		assert.Equal(t, "bad_type", iErr.Reason)
		assert.Len(t, env.StoredFiles(t), 1)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := env.AssignmentSvc.Create(ctx, teacher, assignment.NewAssignment{Title: "   ", Subject: "Math"}, nil)
		var valErr *core.ValidationError
		require.ErrorAs(t, err, &valErr)
		fields := make([]string, 0, len(valErr.Fields))
		for _, f := range valErr.Fields {
			fields = append(fields, f.Field)
		}
		assert.ElementsMatch(t, []string{"title", "due_date"}, fields)
	})

	t.Run("deleted creator", func(t *testing.T) {
		ghost := testutil.Caller(env.CreateUser(t, "ghost", core.RoleTeacher))
		env.DB.Truncate()
		up := testutil.Upload("brief.pdf", 10)
		before := len(env.StoredFiles(t))
		_, err := env.AssignmentSvc.Create(ctx, ghost, na, &up)
		require.Error(t, err)
		assert.Len(t, env.StoredFiles(t), before, "attachment discarded")
	})
}

func TestService_Query(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	teacherA := env.CreateUser(t, "teacher_a", core.RoleTeacher)
	teacherB := env.CreateUser(t, "teacher_b", core.RoleTeacher)
	student := env.CreateUser(t, "student", core.RoleStudent)

	a1 := env.CreateAssignment(t, teacherA, "Algebra")
	env.CreateAssignment(t, teacherB, "Biology")

	got, err := env.AssignmentSvc.Query(ctx, testutil.Caller(teacherA), assignment.QueryFilter{CreatedBy: teacherB.ID}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1, "a teacher only sees own assignments")
	assert.Equal(t, a1, got[0])

	got, err = env.AssignmentSvc.Query(ctx, testutil.Caller(student), assignment.QueryFilter{}, []core.DBOrdering{{Field: "title", Ascending: false}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Biology", got[0].Title)

	got, err = env.AssignmentSvc.Query(ctx, testutil.Caller(student), assignment.QueryFilter{Subject: " Math "}, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	owner := testutil.Caller(env.CreateUser(t, "owner", core.RoleTeacher))
	other := testutil.Caller(env.CreateUser(t, "other", core.RoleTeacher))

	first := testutil.Upload("v1.pdf", 10)
	a, err := env.AssignmentSvc.Create(ctx, owner, assignment.NewAssignment{Title: "Essay", Subject: "English", DueDate: time.Now()}, &first)
	require.NoError(t, err)

	t.Run("not the owner", func(t *testing.T) {
		up := testutil.Upload("v2.pdf", 10)
		_, err := env.AssignmentSvc.Update(ctx, other, a.ID, assignment.UpdateAssignment{Title: strPtr("Hijacked")}, &up)
		assert.ErrorIs(t, err, core.ErrNotFound)

		stored, err := env.AssignmentRepo.GetAssignment(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a, stored)
		assert.Equal(t, []string{a.Attachment.String}, env.StoredFiles(t))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := env.AssignmentSvc.Update(ctx, owner, 999, assignment.UpdateAssignment{Title: strPtr("x")}, nil)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("partial", func(t *testing.T) {
		got, err := env.AssignmentSvc.Update(ctx, owner, a.ID, assignment.UpdateAssignment{Description: strPtr("Two pages"), Title: strPtr("  ")}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Essay", got.Title)
		assert.Equal(t, "Two pages", got.Description.String)
		assert.Equal(t, a.Attachment, got.Attachment)
	})

	t.Run("replace attachment", func(t *testing.T) {
		up := testutil.Upload("v2.docx", 10)
		got, err := env.AssignmentSvc.Update(ctx, owner, a.ID, assignment.UpdateAssignment{}, &up)
		require.NoError(t, err)
		assert.NotEqual(t, a.Attachment, got.Attachment)
		assert.Equal(t, []string{got.Attachment.String}, env.StoredFiles(t), "previous file removed")
	})
}

func TestService_Delete(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	ownerUsr := env.CreateUser(t, "owner", core.RoleTeacher)
	owner := testutil.Caller(ownerUsr)
	other := testutil.Caller(env.CreateUser(t, "other", core.RoleTeacher))
	studentUsr := env.CreateUser(t, "student", core.RoleStudent)

	up := testutil.Upload("brief.pdf", 10)
	a, err := env.AssignmentSvc.Create(ctx, owner, assignment.NewAssignment{Title: "Essay", Subject: "English", DueDate: time.Now()}, &up)
	require.NoError(t, err)

	assert.ErrorIs(t, env.AssignmentSvc.Delete(ctx, other, a.ID), core.ErrNotFound)
	assert.Equal(t, core.FailureNotFound, core.FailureOf(env.AssignmentSvc.Delete(ctx, testutil.Caller(studentUsr), a.ID)))

	submitted := env.CreateAssignment(t, ownerUsr, "Submitted to")
	env.CreateSubmission(t, studentUsr, submitted, time.Now())
	assert.Equal(t, core.FailureConflict, core.FailureOf(env.AssignmentSvc.Delete(ctx, owner, submitted.ID)))

	require.NoError(t, env.AssignmentSvc.Delete(ctx, owner, a.ID))
	_, err = env.AssignmentSvc.Get(ctx, owner, a.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, env.StoredFiles(t))
}
