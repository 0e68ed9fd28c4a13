package files

import (
	"context"
	"io"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core/attachment"
)

var errKeyExists = errors.New("storage key already exists")

// B2 stores files in a Backblaze B2 bucket. Keys are object names.
type B2 struct {
	bucket *b2.Bucket
}

var _ attachment.Store = (*B2)(nil)

func NewB2(ctx context.Context, accountID, appKey, bucketName string) (*B2, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, errors.Wrap(err, "getting b2 bucket")
	}
	return &B2{bucket: bucket}, nil
}

// Put never overwrites: an existing key is an error.
func (s *B2) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	obj := s.bucket.Object(key)
	if _, err := obj.Attrs(ctx); err == nil {
		return 0, errKeyExists
	} else if !b2.IsNotExist(err) {
		return 0, errors.Wrap(err, "checking object")
	}

	w := obj.NewWriter(ctx)
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, errors.Wrap(err, "writing object")
	}
	if err = w.Close(); err != nil {
		return 0, errors.Wrap(err, "closing object writer")
	}
	return n, nil
}

func (s *B2) Remove(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return errors.Wrap(err, "deleting object")
	}
	return nil
}
