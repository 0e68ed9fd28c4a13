package files

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocal(root)
	require.NoError(t, err)

	t.Run("put", func(t *testing.T) {
		n, err := store.Put(ctx, "submissions/a.pdf", strings.NewReader("essay"))
		require.NoError(t, err)
		assert.EqualValues(t, 5, n)

		data, err := os.ReadFile(filepath.Join(root, "submissions", "a.pdf"))
		require.NoError(t, err)
		assert.Equal(t, "essay", string(data))
	})

	t.Run("never overwrites", func(t *testing.T) {
		_, err := store.Put(ctx, "submissions/a.pdf", strings.NewReader("other"))
		require.Error(t, err)

		data, err := os.ReadFile(filepath.Join(root, "submissions", "a.pdf"))
		require.NoError(t, err)
		assert.Equal(t, "essay", string(data))
	})

	t.Run("bad keys", func(t *testing.T) {
		for _, key := range []string{"../escape.pdf", "submissions/../../escape.pdf", "", "."} {
			_, err := store.Put(ctx, key, strings.NewReader("x"))
			assert.ErrorIs(t, err, errBadKey, key)
		}
		assert.ErrorIs(t, store.Remove(ctx, "../escape.pdf"), errBadKey)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.Put(cctx, "submissions/b.pdf", strings.NewReader("essay"))
		require.Error(t, err)
		_, statErr := os.Stat(filepath.Join(root, "submissions", "b.pdf"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx, "submissions/a.pdf"))
		_, err := os.Stat(filepath.Join(root, "submissions", "a.pdf"))
		assert.True(t, os.IsNotExist(err))

		assert.NoError(t, store.Remove(ctx, "submissions/a.pdf"), "missing file")
	})
}

func TestNewLocal(t *testing.T) {
	t.Run("leaves no write check behind", func(t *testing.T) {
		root := t.TempDir()
		_, err := NewLocal(root)
		require.NoError(t, err)

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("unusable root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "uploads")
		require.NoError(t, os.WriteFile(root, []byte("not a directory"), 0o644))

		_, err := NewLocal(root)
		assert.Error(t, err)
	})
}
