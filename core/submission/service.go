package submission

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/attachment"
	"github.com/trezcool/classwork/core/auth"
)

type (
	Repository interface {
		// CreateSubmission fails with a *core.ReferentialError when the assignment does not exist
		// or StudentID is not an existing student.
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmission(ctx context.Context, id int) (Submission, error)
		// QuerySubmissions orders by SubmittedAt, most recent first.
		QuerySubmissions(ctx context.Context, filter QueryFilter) ([]Submission, error)
		// UpdateSubmissionFile replaces the file of the submission with id made by studentID.
		// Grade and feedback are never touched. It returns the number of rows written.
		UpdateSubmissionFile(ctx context.Context, id, studentID int, file string, at time.Time) (int64, error)
		// GradeSubmission grades the submission with id whose assignment was created by teacherID.
		// It returns the number of rows written.
		GradeSubmission(ctx context.Context, id, teacherID int, grade null.Int, feedback null.String) (int64, error)
		// DeleteSubmission deletes the submission with id made by studentID, and returns the number of rows deleted.
		DeleteSubmission(ctx context.Context, id, studentID int) (int64, error)
		// Gradebook returns the current submission of every student who submitted for the assignment.
		Gradebook(ctx context.Context, assignmentID int) ([]GradebookEntry, error)
	}

	Deps struct {
		Repo       Repository
		Authorizer *auth.Authorizer
		Intake     *attachment.Intake
		Validate   *validator.Validate
		Translator ut.Translator
		Logger     core.Logger
	}

	Service struct {
		repo       Repository
		authz      *auth.Authorizer
		intake     *attachment.Intake
		validate   *validator.Validate
		translator ut.Translator
		logger     core.Logger
	}
)

func NewService(deps Deps) *Service {
	return &Service{
		repo:       deps.Repo,
		authz:      deps.Authorizer,
		intake:     deps.Intake,
		validate:   deps.Validate,
		translator: deps.Translator,
		logger:     deps.Logger,
	}
}

// Create hands in up as the caller's submission for assignmentID.
func (svc *Service) Create(ctx context.Context, caller auth.Caller, assignmentID int, up attachment.Upload) (Submission, error) {
	if err := svc.intake.Check(attachment.PurposeSubmission, up); err != nil {
		return Submission{}, err
	}
	if _, err := svc.authz.Require(ctx, caller, auth.OpCreateSubmission); err != nil {
		return Submission{}, err
	}

	ref, err := svc.intake.Save(ctx, attachment.PurposeSubmission, up)
	if err != nil {
		return Submission{}, err
	}
	sub, err := svc.repo.CreateSubmission(ctx, Submission{
		AssignmentID: assignmentID,
		StudentID:    caller.ID,
		File:         ref.String(),
		SubmittedAt:  time.Now().UTC(),
	})
	if err != nil {
		svc.discard(ctx, ref.String())
		return Submission{}, errors.Wrap(err, "creating submission")
	}
	return sub, nil
}

// Get returns a submission to the student who made it or to the teacher owning its assignment.
func (svc *Service) Get(ctx context.Context, caller auth.Caller, id int) (Submission, error) {
	if _, err := svc.authz.Require(ctx, caller, auth.OpReadSubmission, id); err != nil {
		return Submission{}, err
	}
	return svc.repo.GetSubmission(ctx, id)
}

// Query lists the submissions of an assignment: all of them for its owning teacher,
// the caller's own for a student.
func (svc *Service) Query(ctx context.Context, caller auth.Caller, filter QueryFilter) ([]Submission, error) {
	d, err := svc.authz.Require(ctx, caller, auth.OpListSubmissions, filter.AssignmentID)
	if err != nil {
		return nil, err
	}
	filter.StudentID = 0
	if d.OwnerScoped {
		filter.StudentID = caller.ID
	}
	subs, err := svc.repo.QuerySubmissions(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return subs, nil
}

// Update replaces the file of the caller's submission. Grade and feedback are left as they are.
func (svc *Service) Update(ctx context.Context, caller auth.Caller, id int, up attachment.Upload) (Submission, error) {
	if err := svc.intake.Check(attachment.PurposeSubmission, up); err != nil {
		return Submission{}, err
	}
	if _, err := svc.authz.Require(ctx, caller, auth.OpUpdateSubmission); err != nil {
		return Submission{}, err
	}

	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if sub.StudentID != caller.ID {
		return Submission{}, core.ErrNotFound
	}

	ref, err := svc.intake.Save(ctx, attachment.PurposeSubmission, up)
	if err != nil {
		return Submission{}, err
	}
	now := time.Now().UTC()
	n, err := svc.repo.UpdateSubmissionFile(ctx, id, caller.ID, ref.String(), now)
	if err == nil && n == 0 {
		err = core.ErrNotFound
	}
	if err != nil {
		svc.discard(ctx, ref.String())
		return Submission{}, errors.Wrap(err, "updating submission")
	}
	svc.discard(ctx, sub.File)

	sub.File = ref.String()
	sub.SubmittedAt = now
	return sub, nil
}

// Delete removes the caller's submission along with its file.
func (svc *Service) Delete(ctx context.Context, caller auth.Caller, id int) error {
	if _, err := svc.authz.Require(ctx, caller, auth.OpDeleteSubmission); err != nil {
		return err
	}
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return err
	}

	n, err := svc.repo.DeleteSubmission(ctx, id, caller.ID)
	if err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	svc.discard(ctx, sub.File)
	return nil
}

// Grade sets the grade and feedback of a submission. Only the teacher owning the parent
// assignment may do it; anyone else gets core.ErrNotFound and the submission is unchanged.
func (svc *Service) Grade(ctx context.Context, caller auth.Caller, id int, g Grade) (Submission, error) {
	g.clean()
	if err := svc.validate.Struct(g); err != nil {
		return Submission{}, core.TranslateErrors(err, svc.translator)
	}
	if _, err := svc.authz.Require(ctx, caller, auth.OpGradeSubmission, id); err != nil {
		return Submission{}, err
	}

	feedback := null.StringFromPtr(g.Feedback)
	if feedback.Valid && feedback.String == "" {
		feedback = null.String{}
	}
	n, err := svc.repo.GradeSubmission(ctx, id, caller.ID, null.IntFrom(*g.Grade), feedback)
	if err != nil {
		return Submission{}, errors.Wrap(err, "grading submission")
	}
	if n == 0 {
		return Submission{}, core.ErrNotFound
	}
	return svc.repo.GetSubmission(ctx, id)
}

// Gradebook returns the current submission of each student for an assignment of the caller.
func (svc *Service) Gradebook(ctx context.Context, caller auth.Caller, assignmentID int) ([]GradebookEntry, error) {
	if _, err := svc.authz.Require(ctx, caller, auth.OpExportGradebook, assignmentID); err != nil {
		return nil, err
	}
	entries, err := svc.repo.Gradebook(ctx, assignmentID)
	if err != nil {
		return nil, errors.Wrap(err, "reading gradebook")
	}
	return entries, nil
}

func (svc *Service) discard(ctx context.Context, ref string) {
	if err := svc.intake.Discard(ctx, attachment.Ref(ref)); err != nil {
		svc.logger.Warn("discarding submission file", err)
	}
}
