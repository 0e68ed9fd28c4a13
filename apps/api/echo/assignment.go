package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core/assignment"
	"github.com/trezcool/classwork/core/attachment"
	"github.com/trezcool/classwork/core/submission"
	"github.com/trezcool/classwork/services/export"
)

const (
	attachmentField = "attachment"
	fileField       = "file"

	xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type assignmentApi struct {
	svc    *assignment.Service
	subSvc *submission.Service
}

func registerAssignmentAPI(g *echo.Group, authn echo.MiddlewareFunc, svc *assignment.Service, subSvc *submission.Service) {
	api := assignmentApi{svc: svc, subSvc: subSvc}

	ag := g.Group("/assignments", authn)
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)

	ag.GET("/:id/submissions", api.querySubmissions)
	ag.POST("/:id/submissions", api.submit)
	ag.GET("/:id/gradebook", api.gradebook)
}

// AssignmentRequest is sent as JSON, or as a multipart form when it carries an attachment.
type AssignmentRequest struct {
	Title       *string `json:"title" form:"title"`
	Description *string `json:"description" form:"description"`
	Subject     *string `json:"subject" form:"subject"`
	DueDate     *Date   `json:"due_date" form:"due_date"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r AssignmentRequest) newAssignment() assignment.NewAssignment {
	na := assignment.NewAssignment{
		Title:       deref(r.Title),
		Description: deref(r.Description),
		Subject:     deref(r.Subject),
	}
	if r.DueDate != nil {
		na.DueDate = r.DueDate.Time
	}
	return na
}

func (r AssignmentRequest) updateAssignment() assignment.UpdateAssignment {
	return assignment.UpdateAssignment{
		Title:       r.Title,
		Description: r.Description,
		Subject:     r.Subject,
		DueDate:     r.DueDate.TimePtr(),
	}
}

// Handlers

func (api *assignmentApi) query(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	var filter assignment.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	assignments, err := api.svc.Query(ctx.Request().Context(), caller, filter, ordering(ctx, assignment.Orderings))
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	var data AssignmentRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignmentRequest")
	}
	up, closeUpload, err := bindUpload(ctx, attachmentField)
	if err != nil {
		return err
	}
	defer closeUpload()

	a, err := api.svc.Create(ctx.Request().Context(), caller, data.newAssignment(), up)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	a, err := api.svc.Get(ctx.Request().Context(), caller, id)
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data AssignmentRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignmentRequest")
	}
	up, closeUpload, err := bindUpload(ctx, attachmentField)
	if err != nil {
		return err
	}
	defer closeUpload()

	a, err := api.svc.Update(ctx.Request().Context(), caller, id, data.updateAssignment(), up)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), caller, id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	subs, err := api.subSvc.Query(ctx.Request().Context(), caller, submission.QueryFilter{
		AssignmentID: id,
		LatestOnly:   queryBool(ctx, "latest"),
	})
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	up, closeUpload, err := bindUpload(ctx, fileField)
	if err != nil {
		return err
	}
	defer closeUpload()
	if up == nil {
		up = &attachment.Upload{}
	}

	sub, err := api.subSvc.Create(ctx.Request().Context(), caller, id, *up)
	if err != nil {
		return errors.Wrap(err, "creating submission")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) gradebook(ctx echo.Context) error {
	caller, err := getCaller(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	entries, err := api.subSvc.Gradebook(ctx.Request().Context(), caller, id)
	if err != nil {
		return errors.Wrap(err, "reading gradebook")
	}
	a, err := api.svc.Get(ctx.Request().Context(), caller, id)
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}

	var buf bytes.Buffer
	if err = export.Gradebook(&buf, a, entries); err != nil {
		return errors.Wrap(err, "exporting gradebook")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="gradebook-%d.xlsx"`, id))
	return ctx.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}
