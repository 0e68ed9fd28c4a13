package auth

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes passwords one-way with a per-call random salt embedded in the digest.
type Hasher interface {
	Hash(plaintext string) ([]byte, error)
	Verify(plaintext string, digest []byte) bool
}

type BcryptHasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

var _ Hasher = (*BcryptHasher)(nil)

// NewBcryptHasher returns a bcrypt Hasher; a zero cost means bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) ([]byte, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}
	return digest, nil
}

// Verify compares in constant time; a malformed digest never matches.
func (h *BcryptHasher) Verify(plaintext string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(plaintext)) == nil
}

// Waste runs a comparison against a throwaway digest, so that a login for an
// unknown account costs as much as one with a wrong password.
func (h *BcryptHasher) Waste(plaintext string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("classwork.dummy.password"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
}
