package sqlxrepos

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/submission"
	"github.com/trezcool/classwork/storage/database"
)

const submissionColumns = "id, assignment_id, student_id, file, submitted_at, grade, feedback"

type submissionRepository struct {
	db queryer
}

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db queryer) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	err := repo.db.GetContext(ctx, &s.ID,
		`INSERT INTO submissions (assignment_id, student_id, file, submitted_at)
		SELECT $1::integer, $2::integer, $3::text, $4::timestamptz
		WHERE EXISTS (SELECT 1 FROM assignments WHERE id = $1::integer)
		AND EXISTS (SELECT 1 FROM users WHERE id = $2::integer AND role = 'student')
		RETURNING id`,
		s.AssignmentID, s.StudentID, s.File, s.SubmittedAt,
	)
	if err == nil {
		return s, nil
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		return submission.Submission{}, database.WriteError(err)
	}

	var assignmentExists bool
	if err = repo.db.GetContext(ctx, &assignmentExists,
		"SELECT EXISTS (SELECT 1 FROM assignments WHERE id = $1)", s.AssignmentID); err != nil {
		return submission.Submission{}, errors.Wrap(err, "checking assignment")
	}
	if !assignmentExists {
		return submission.Submission{}, core.NewReferentialError("assignment_id")
	}
	return submission.Submission{}, core.NewReferentialError("student_id")
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id int) (submission.Submission, error) {
	var s submission.Submission
	if err := repo.db.GetContext(ctx, &s, "SELECT "+submissionColumns+" FROM submissions WHERE id = $1", id); err != nil {
		return submission.Submission{}, notFound(err)
	}
	return s, nil
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, filter submission.QueryFilter) ([]submission.Submission, error) {
	var w where
	w.add("assignment_id = $%d", filter.AssignmentID)
	if filter.StudentID != 0 {
		w.add("student_id = $%d", filter.StudentID)
	}

	q := "SELECT " + submissionColumns + " FROM submissions" + w.String()
	if filter.LatestOnly {
		q = "SELECT * FROM (SELECT DISTINCT ON (student_id) " + submissionColumns + " FROM submissions" + w.String() +
			" ORDER BY student_id, submitted_at DESC, id DESC) AS latest"
	}
	q += " ORDER BY submitted_at DESC, id DESC"

	rows := make([]submission.Submission, 0)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting submissions")
	}
	return rows, nil
}

func (repo *submissionRepository) UpdateSubmissionFile(ctx context.Context, id, studentID int, file string, at time.Time) (int64, error) {
	return affected(repo.db.ExecContext(ctx,
		"UPDATE submissions SET file = $1, submitted_at = $2 WHERE id = $3 AND student_id = $4",
		file, at, id, studentID,
	))
}

func (repo *submissionRepository) GradeSubmission(ctx context.Context, id, teacherID int, grade null.Int, feedback null.String) (int64, error) {
	n, err := affected(repo.db.ExecContext(ctx,
		`UPDATE submissions AS s SET grade = $1, feedback = $2
		FROM assignments AS a
		WHERE s.id = $3 AND a.id = s.assignment_id AND a.created_by = $4`,
		grade, feedback, id, teacherID,
	))
	if err != nil {
		return 0, database.WriteError(err)
	}
	return n, nil
}

func (repo *submissionRepository) DeleteSubmission(ctx context.Context, id, studentID int) (int64, error) {
	n, err := affected(repo.db.ExecContext(ctx, "DELETE FROM submissions WHERE id = $1 AND student_id = $2", id, studentID))
	if err != nil {
		return 0, database.DeleteError(err)
	}
	return n, nil
}

func (repo *submissionRepository) Gradebook(ctx context.Context, assignmentID int) ([]submission.GradebookEntry, error) {
	entries := make([]submission.GradebookEntry, 0)
	err := repo.db.SelectContext(ctx, &entries,
		`SELECT * FROM (
			SELECT DISTINCT ON (s.student_id)
				s.id AS submission_id, s.student_id, u.username, u.email, s.file, s.submitted_at, s.grade, s.feedback
			FROM submissions AS s
			JOIN users AS u ON u.id = s.student_id
			WHERE s.assignment_id = $1
			ORDER BY s.student_id, s.submitted_at DESC, s.id DESC
		) AS current
		ORDER BY username`,
		assignmentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting gradebook")
	}
	return entries, nil
}
