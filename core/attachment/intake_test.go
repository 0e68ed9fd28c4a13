package attachment

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classwork/core"
)

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
	fail  bool
}

func newMemStore() *memStore { return &memStore{files: make(map[string][]byte)} }

func (s *memStore) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	if s.fail {
		return 0, errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[key]; ok {
		return 0, errors.Errorf("%s exists", key)
	}
	s.files[key] = data
	return int64(len(data)), nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

func upload(name string, size int) Upload {
	return Upload{Name: name, Size: int64(size), Content: bytes.NewReader(make([]byte, size))}
}

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var iErr *core.IntakeError
	require.ErrorAs(t, err, &iErr)
	return iErr.Reason
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		up         Upload
		wantExt    string
		wantReason string
	}{
		{name: "pdf", up: upload("essay.pdf", 1<<10), wantExt: ".pdf"},
		{name: "upper case extension", up: upload("Essay.DOCX", 10), wantExt: ".docx"},
		{name: "exactly max size", up: upload("slides.pptx", MaxSize), wantExt: ".pptx"},
		{name: "too large", up: upload("essay.pdf", 6<<20), wantReason: ReasonTooLarge},
		{name: "size is checked first", up: upload("setup.exe", 6<<20), wantReason: ReasonTooLarge},
		{name: "executable", up: upload("setup.exe", 10), wantReason: ReasonBadType},
		{name: "double extension", up: upload("essay.pdf.exe", 10), wantReason: ReasonBadType},
		{name: "no extension", up: upload("essay", 10), wantReason: ReasonBadType},
		{name: "missing", up: Upload{Name: "essay.pdf"}, wantReason: ReasonMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := Check(tt.up)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, reasonOf(t, err))
				assert.Equal(t, core.FailureValidation, core.FailureOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestIntake_Save(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	var rejected []string
	in := NewIntake(store, func(p Purpose, reason string) {
		rejected = append(rejected, string(p)+":"+reason)
	})
	in.now = func() time.Time { return time.UnixMilli(1700000000000) }

	t.Run("stored under purpose", func(t *testing.T) {
		ref, err := in.Save(ctx, PurposeSubmission, upload("Essay.PDF", 1<<10))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(ref.String(), "submissions/1700000000000-"), ref)
		assert.True(t, strings.HasSuffix(ref.String(), ".pdf"), ref)
		assert.Len(t, store.files[ref.String()], 1<<10)
	})

	t.Run("same name twice never collides", func(t *testing.T) {
		first, err := in.Save(ctx, PurposeAssignment, upload("notes.doc", 10))
		require.NoError(t, err)
		second, err := in.Save(ctx, PurposeAssignment, upload("notes.doc", 10))
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("rejected before storing", func(t *testing.T) {
		before := len(store.files)
		_, err := in.Save(ctx, PurposeSubmission, upload("essay.exe", 10))
		assert.Equal(t, ReasonBadType, reasonOf(t, err))
		_, err = in.Save(ctx, PurposeSubmission, upload("essay.pdf", 6<<20))
		assert.Equal(t, ReasonTooLarge, reasonOf(t, err))
		assert.Len(t, store.files, before)
	})

	t.Run("declared size lies", func(t *testing.T) {
		before := len(store.files)
		up := Upload{Name: "essay.pdf", Size: 10, Content: bytes.NewReader(make([]byte, MaxSize+10))}
		_, err := in.Save(ctx, PurposeSubmission, up)
		assert.Equal(t, ReasonTooLarge, reasonOf(t, err))
		assert.Len(t, store.files, before)
	})

	t.Run("store failure", func(t *testing.T) {
		failing := NewIntake(&memStore{files: map[string][]byte{}, fail: true})
		_, err := failing.Save(ctx, PurposeSubmission, upload("essay.pdf", 10))
		require.Error(t, err)
		assert.Equal(t, core.FailureInternal, core.FailureOf(err))
	})

	assert.Equal(t, []string{"submissions:bad_type", "submissions:too_large", "submissions:too_large"}, rejected)
}

func TestIntake_Check(t *testing.T) {
	var rejected []string
	in := NewIntake(newMemStore(), func(p Purpose, reason string) {
		rejected = append(rejected, string(p)+":"+reason)
	})

	assert.NoError(t, in.Check(PurposeAssignment, upload("brief.xlsx", 10)))
	assert.Error(t, in.Check(PurposeAssignment, Upload{Name: "brief.xlsx"}))
	assert.Equal(t, []string{"assignments:missing"}, rejected)
}

func TestIntake_Discard(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	in := NewIntake(store)

	ref, err := in.Save(ctx, PurposeAssignment, upload("brief.pdf", 10))
	require.NoError(t, err)
	require.Len(t, store.files, 1)

	require.NoError(t, in.Discard(ctx, ref))
	assert.Empty(t, store.files)
	assert.NoError(t, in.Discard(ctx, ""))
}
