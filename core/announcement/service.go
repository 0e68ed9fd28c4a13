package announcement

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/auth"
)

type (
	Repository interface {
		// CreateAnnouncement fails with a *core.ReferentialError when CreatedBy does not exist.
		CreateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		GetAnnouncement(ctx context.Context, id int) (Announcement, error)
		QueryAnnouncements(ctx context.Context, ordering []core.DBOrdering) ([]Announcement, error)
		// UpdateAnnouncement writes a where both ID and CreatedBy match, and returns the number of rows written.
		UpdateAnnouncement(ctx context.Context, a Announcement) (int64, error)
		// DeleteAnnouncement deletes the announcement with id created by ownerID, and returns the number of rows deleted.
		DeleteAnnouncement(ctx context.Context, id, ownerID int) (int64, error)
	}

	Deps struct {
		Repo       Repository
		Authorizer *auth.Authorizer
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Service struct {
		repo       Repository
		authz      *auth.Authorizer
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(deps Deps) *Service {
	return &Service{
		repo:       deps.Repo,
		authz:      deps.Authorizer,
		validate:   deps.Validate,
		translator: deps.Translator,
	}
}

func (svc *Service) Create(ctx context.Context, caller auth.Caller, na NewAnnouncement) (Announcement, error) {
	if _, err := svc.authz.Require(ctx, caller, auth.OpCreateAnnouncement); err != nil {
		return Announcement{}, err
	}
	na.clean()
	if err := svc.validate.Struct(na); err != nil {
		return Announcement{}, core.TranslateErrors(err, svc.translator)
	}
	ann, err := svc.repo.CreateAnnouncement(ctx, Announcement{
		Title:     na.Title,
		Content:   na.Content,
		CreatedBy: caller.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Announcement{}, errors.Wrap(err, "creating announcement")
	}
	return ann, nil
}

func (svc *Service) Get(ctx context.Context, caller auth.Caller, id int) (Announcement, error) {
	if _, err := svc.authz.Require(ctx, caller, auth.OpReadAnnouncement); err != nil {
		return Announcement{}, err
	}
	return svc.repo.GetAnnouncement(ctx, id)
}

func (svc *Service) Query(ctx context.Context, caller auth.Caller, ordering []core.DBOrdering) ([]Announcement, error) {
	if _, err := svc.authz.Require(ctx, caller, auth.OpReadAnnouncement); err != nil {
		return nil, err
	}
	anns, err := svc.repo.QueryAnnouncements(ctx, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	return anns, nil
}

// Update modifies an announcement created by the caller.
func (svc *Service) Update(ctx context.Context, caller auth.Caller, id int, ua UpdateAnnouncement) (Announcement, error) {
	if _, err := svc.authz.Require(ctx, caller, auth.OpUpdateAnnouncement); err != nil {
		return Announcement{}, err
	}
	ann, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	ua.clean(ann)
	if err = svc.validate.Struct(ua); err != nil {
		return Announcement{}, core.TranslateErrors(err, svc.translator)
	}

	ann.Title = ua.Title
	ann.Content = ua.Content
	ann.CreatedBy = caller.ID
	n, err := svc.repo.UpdateAnnouncement(ctx, ann)
	if err != nil {
		return Announcement{}, errors.Wrap(err, "updating announcement")
	}
	if n == 0 {
		return Announcement{}, core.ErrNotFound
	}
	return ann, nil
}

// Delete removes an announcement created by the caller.
func (svc *Service) Delete(ctx context.Context, caller auth.Caller, id int) error {
	if _, err := svc.authz.Require(ctx, caller, auth.OpDeleteAnnouncement); err != nil {
		return err
	}
	n, err := svc.repo.DeleteAnnouncement(ctx, id, caller.ID)
	if err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
