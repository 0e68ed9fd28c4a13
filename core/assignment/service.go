package assignment

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
		// CreateAssignment fails with a *core.ReferentialError when CreatedBy is not an existing teacher.
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id int) (Assignment, error)
		QueryAssignments(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Assignment, error)
		// UpdateAssignment writes a where both ID and CreatedBy match, and returns the number of rows written.
		UpdateAssignment(ctx context.Context, a Assignment) (int64, error)
		// DeleteAssignment deletes the assignment with id created by ownerID, and returns the number of
		// rows deleted. It fails with a *core.ConflictError while submissions reference the assignment.
		DeleteAssignment(ctx context.Context, id, ownerID int) (int64, error)
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

func (svc *Service) validateStruct(s interface{}) error {
	if err := svc.validate.Struct(s); err != nil {
		return core.TranslateErrors(err, svc.translator)
	}
	return nil
}

// Create stores the optional attachment once the caller is allowed, then the assignment.
func (svc *Service) Create(ctx context.Context, caller auth.Caller, na NewAssignment, up *attachment.Upload) (Assignment, error) {
	na.clean()
	if err := svc.validateStruct(na); err != nil {
		return Assignment{}, err
	}
	if up != nil {
		if err := svc.intake.Check(attachment.PurposeAssignment, *up); err != nil {
			return Assignment{}, err
		}
	}
	if _, err := svc.authz.Require(ctx, caller, auth.OpCreateAssignment); err != nil {
		return Assignment{}, err
	}

	a := Assignment{
		Title:       na.Title,
		Description: null.NewString(na.Description, na.Description != ""),
		Subject:     na.Subject,
		DueDate:     na.DueDate,
		CreatedBy:   caller.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if up != nil {
		ref, err := svc.intake.Save(ctx, attachment.PurposeAssignment, *up)
		if err != nil {
			return Assignment{}, err
		}
		a.Attachment = null.StringFrom(ref.String())
	}

	created, err := svc.repo.CreateAssignment(ctx, a)
	if err != nil {
		svc.discard(ctx, a.Attachment)
		return Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return created, nil
}

func (svc *Service) Get(ctx context.Context, caller auth.Caller, id int) (Assignment, error) {
	if _, err := svc.authz.Require(ctx, caller, auth.OpReadAssignment); err != nil {
		return Assignment{}, err
	}
	return svc.repo.GetAssignment(ctx, id)
}

// Query lists the caller's own assignments for a teacher, all of them for anyone else.
func (svc *Service) Query(ctx context.Context, caller auth.Caller, filter QueryFilter, ordering []core.DBOrdering) ([]Assignment, error) {
	if _, err := svc.authz.Require(ctx, caller, auth.OpReadAssignment); err != nil {
		return nil, err
	}
	filter.Clean()
	filter.CreatedBy = 0
	if caller.Role == core.RoleTeacher {
		filter.CreatedBy = caller.ID
	}
	assignments, err := svc.repo.QueryAssignments(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return assignments, nil
}

// Update modifies an assignment of the caller, optionally replacing its attachment.
// Someone else's assignment is reported as core.ErrNotFound and left unchanged.
func (svc *Service) Update(ctx context.Context, caller auth.Caller, id int, ua UpdateAssignment, up *attachment.Upload) (Assignment, error) {
	if err := svc.validateStruct(ua); err != nil {
		return Assignment{}, err
	}
	if up != nil {
		if err := svc.intake.Check(attachment.PurposeAssignment, *up); err != nil {
			return Assignment{}, err
		}
	}
	if _, err := svc.authz.Require(ctx, caller, auth.OpUpdateAssignment); err != nil {
		return Assignment{}, err
	}

	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if a.CreatedBy != caller.ID {
		return Assignment{}, core.ErrNotFound
	}
	ua.apply(&a)

	prevAttachment := a.Attachment
	if up != nil {
		ref, err := svc.intake.Save(ctx, attachment.PurposeAssignment, *up)
		if err != nil {
			return Assignment{}, err
		}
		a.Attachment = null.StringFrom(ref.String())
	}

	a.CreatedBy = caller.ID
	n, err := svc.repo.UpdateAssignment(ctx, a)
	if err == nil && n == 0 {
		err = core.ErrNotFound
	}
	if err != nil {
		if up != nil {
			svc.discard(ctx, a.Attachment)
		}
		return Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if up != nil {
		svc.discard(ctx, prevAttachment)
	}
	return a, nil
}

// Delete removes an assignment of the caller along with its attachment.
func (svc *Service) Delete(ctx context.Context, caller auth.Caller, id int) error {
	if _, err := svc.authz.Require(ctx, caller, auth.OpDeleteAssignment); err != nil {
		return err
	}
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return err
	}

	n, err := svc.repo.DeleteAssignment(ctx, id, caller.ID)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	svc.discard(ctx, a.Attachment)
	return nil
}

func (svc *Service) discard(ctx context.Context, ref null.String) {
	if !ref.Valid {
		return
	}
	if err := svc.intake.Discard(ctx, attachment.Ref(ref.String)); err != nil {
		svc.logger.Warn("discarding assignment attachment", err)
	}
}
