package echoapi

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/attachment"
)

var orderingParam = "ordering"

func ordering(ctx echo.Context, allowed []string) []core.DBOrdering {
	return core.ParseOrdering(ctx.QueryParam(orderingParam), allowed...)
}

// idParam reads a positive integer path parameter. Anything else cannot name a resource.
func idParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// bindUpload returns the file sent in the multipart field, or nil when the request carries none.
// The returned close func is never nil.
func bindUpload(ctx echo.Context, field string) (*attachment.Upload, func(), error) {
	noop := func() {}
	fh, err := ctx.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, errors.Wrap(err, "reading multipart form")
	}
	return openUpload(fh)
}

func openUpload(fh *multipart.FileHeader) (*attachment.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, errors.Wrap(err, "opening uploaded file")
	}
	up := &attachment.Upload{Name: fh.Filename, Size: fh.Size, Content: f}
	return up, func() { _ = f.Close() }, nil
}

// Date accepts RFC 3339 timestamps as well as plain dates (2006-01-02, midnight UTC),
// from JSON bodies and form values alike.
type Date struct {
	time.Time
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func (d *Date) UnmarshalParam(s string) error {
	if s == "" {
		return nil
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid date %s: expected a string", b)
	}
	if s == nil {
		return nil
	}
	return d.UnmarshalParam(*s)
}

// TimePtr returns nil for a nil or empty Date.
func (d *Date) TimePtr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func queryBool(ctx echo.Context, name string) bool {
	b, _ := strconv.ParseBool(ctx.QueryParam(name))
	return b
}

type SuccessResponse struct {
	Success string `json:"success"`
}
