// Package files implements attachment.Store on the local filesystem and on Backblaze B2.
package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core/attachment"
)

var errBadKey = errors.New("invalid storage key")

// Local stores files under a root directory. Keys are slash separated paths relative to it.
type Local struct {
	root string
}

var _ attachment.Store = (*Local)(nil)

func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolving storage root")
	}
	if err = os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage root")
	}
	if err = checkWritable(abs); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// checkWritable creates and removes a file in dir, so that an unwritable root
// fails at startup rather than on the first upload.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return errors.Wrap(err, "storage root is not writable")
	}
	_ = f.Close()
	if err = os.Remove(f.Name()); err != nil {
		return errors.Wrap(err, "removing write check file")
	}
	return nil
}

func (l *Local) path(key string) (string, error) {
	p := filepath.Join(l.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, l.root+string(filepath.Separator)) {
		return "", errBadKey
	}
	return p, nil
}

// Put never overwrites: an existing key is an error.
func (l *Local) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	p, err := l.path(key)
	if err != nil {
		return 0, err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return 0, errors.Wrap(err, "creating directory")
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, errors.Wrap(err, "creating file")
	}

	n, err := io.Copy(f, readerCtx{ctx: ctx, r: r})
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		_ = os.Remove(p)
		return 0, errors.Wrap(err, "writing file")
	}
	return n, nil
}

// Remove deletes the file at key; a missing file is not an error.
func (l *Local) Remove(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}

// readerCtx stops reading once ctx is done.
type readerCtx struct {
	ctx context.Context
	r   io.Reader
}

func (rc readerCtx) Read(p []byte) (int, error) {
	if err := rc.ctx.Err(); err != nil {
		return 0, err
	}
	return rc.r.Read(p)
}
