package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("correct-horse-42")
	require.NoError(t, err)
	second, err := h.Hash("correct-horse-42")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "digests must be salted")
	assert.NotContains(t, string(first), "correct-horse-42")

	tests := []struct {
		name   string
		pwd    string
		digest []byte
		want   bool
	}{
		{name: "match", pwd: "correct-horse-42", digest: first, want: true},
		{name: "match other salt", pwd: "correct-horse-42", digest: second, want: true},
		{name: "wrong password", pwd: "correct-horse-43", digest: first},
		{name: "empty password", pwd: "", digest: first},
		{name: "malformed digest", pwd: "correct-horse-42", digest: []byte("not-a-digest")},
		{name: "no digest", pwd: "correct-horse-42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Verify(tt.pwd, tt.digest))
		})
	}

	t.Run("waste", func(t *testing.T) {
		assert.NotPanics(t, func() {
			h.Waste("anything")
			h.Waste("anything else")
		})
	})
}

func TestNewBcryptHasher_defaultCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
}
