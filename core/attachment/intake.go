// Package attachment validates uploaded files and stores them under purpose-scoped locations.
//
// Validation (Check) is pure. Storing (Intake.Save) is the only side effect and is meant to be
// called once the request has been authorized, so a rejected request never touches storage.
package attachment

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core"
)

// MaxSize is the largest accepted attachment, in bytes.
const MaxSize = 5 << 20

const (
	ReasonTooLarge = "too_large"
	ReasonBadType  = "bad_type"
	ReasonMissing  = "missing"
)

// AllowedExtensions are compared against the lower-cased extension of the declared name.
var AllowedExtensions = []string{".pdf", ".doc", ".docx", ".ppt", ".pptx", ".xls", ".xlsx"}

// Purpose scopes where a file is stored.
type Purpose string

const (
	PurposeAssignment Purpose = "assignments"
	PurposeSubmission Purpose = "submissions"
)

// Ref is the relative location of a stored file, e.g. "submissions/1700000000000-<uuid>.pdf".
// Callers treat it as opaque. A stored file is never renamed once its Ref was handed out.
type Ref string

func (r Ref) String() string { return string(r) }

// Upload is a file received from a caller.
type Upload struct {
	Name    string // declared file name
	Size    int64  // declared size in bytes
	Content io.Reader
}

// Store persists file contents under a key. Put must fail rather than overwrite an existing key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Remove(ctx context.Context, key string) error
}

// RejectionObserver is notified of every rejected upload.
type RejectionObserver func(purpose Purpose, reason string)

// Check validates the declared size first, then the extension. It never touches storage.
func Check(up Upload) (string, error) {
	if up.Content == nil {
		return "", &core.IntakeError{Reason: ReasonMissing, Msg: "no file provided"}
	}
	if up.Size > MaxSize {
		return "", tooLarge()
	}
	ext := strings.ToLower(filepath.Ext(up.Name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", &core.IntakeError{
		Reason: ReasonBadType,
		Msg:    fmt.Sprintf("invalid file type; allowed: %s", strings.Join(AllowedExtensions, ", ")),
	}
}

func tooLarge() error {
	return &core.IntakeError{Reason: ReasonTooLarge, Msg: fmt.Sprintf("file exceeds %d MiB", MaxSize>>20)}
}

type Intake struct {
	store     Store
	now       func() time.Time
	observers []RejectionObserver
}

func NewIntake(store Store, observers ...RejectionObserver) *Intake {
	return &Intake{store: store, now: time.Now, observers: observers}
}

// Check is the package level Check, reporting rejections to the observers.
func (in *Intake) Check(purpose Purpose, up Upload) error {
	_, err := Check(up)
	in.observe(purpose, err)
	return err
}

// Save validates up and writes it under purpose with a collision-resistant name that keeps the
// original extension. Content longer than MaxSize is rejected even if the declared size lied.
func (in *Intake) Save(ctx context.Context, purpose Purpose, up Upload) (Ref, error) {
	ext, err := Check(up)
	if err != nil {
		in.observe(purpose, err)
		return "", err
	}

	name := fmt.Sprintf("%d-%s%s", in.now().UnixMilli(), uuid.NewString(), ext)
	key := path.Join(string(purpose), name)

	n, err := in.store.Put(ctx, key, io.LimitReader(up.Content, MaxSize+1))
	if err != nil {
		return "", errors.Wrap(err, "storing attachment")
	}
	if n > MaxSize {
		_ = in.store.Remove(ctx, key)
		err = tooLarge()
		in.observe(purpose, err)
		return "", err
	}
	return Ref(key), nil
}

// Discard removes a stored file, typically after the record it was meant for failed to be written.
func (in *Intake) Discard(ctx context.Context, ref Ref) error {
	if ref == "" {
		return nil
	}
	return errors.Wrap(in.store.Remove(ctx, string(ref)), "removing attachment")
}

func (in *Intake) observe(purpose Purpose, err error) {
	var iErr *core.IntakeError
	if err == nil || !errors.As(err, &iErr) {
		return
	}
	for _, o := range in.observers {
		o(purpose, iErr.Reason)
	}
}
