package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUID(t *testing.T) {
	usr := User{ID: 42}
	id, err := decodeUID(EncodeUID(usr))
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	_, err = decodeUID("%%%")
	assert.Error(t, err)
	_, err = decodeUID(EncodeUID(User{}) + "x")
	assert.Error(t, err)
}

func TestResetTokens(t *testing.T) {
	rt := resetTokens{secret: []byte("s3cret"), timeout: 3 * 24 * time.Hour}
	usr := User{ID: 1, Username: "alice", PasswordHash: []byte("hash-1")}

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	setNow := func(t *testing.T, at time.Time) {
		nowFunc = func() time.Time { return at }
		t.Cleanup(func() { nowFunc = time.Now })
	}
	setNow(t, now)
	token := rt.makeToken(usr)

	tests := []struct {
		name    string
		usr     User
		token   string
		at      time.Time
		rt      resetTokens
		wantErr error
	}{
		{name: "valid", usr: usr, token: token, at: now, rt: rt},
		{name: "valid until timeout", usr: usr, token: token, at: now.Add(3 * 24 * time.Hour), rt: rt},
		{name: "expired", usr: usr, token: token, at: now.Add(4 * 24 * time.Hour), rt: rt, wantErr: errTokenExpired},
		{name: "used: password changed", usr: User{ID: 1, PasswordHash: []byte("hash-2")}, token: token, at: now, rt: rt, wantErr: errInvalidToken},
		{name: "other user", usr: User{ID: 2, PasswordHash: []byte("hash-1")}, token: token, at: now, rt: rt, wantErr: errInvalidToken},
		{name: "other secret", usr: usr, token: token, at: now, rt: resetTokens{secret: []byte("other"), timeout: rt.timeout}, wantErr: errInvalidToken},
		{name: "empty", usr: usr, at: now, rt: rt, wantErr: errInvalidToken},
		{name: "no separator", usr: usr, token: "abcdef", at: now, rt: rt, wantErr: errInvalidToken},
		{name: "bad timestamp", usr: usr, token: "!!!-abc", at: now, rt: rt, wantErr: errInvalidToken},
		{name: "tampered signature", usr: usr, token: token + "x", at: now, rt: rt, wantErr: errInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setNow(t, tt.at)
			err := tt.rt.verifyToken(tt.usr, tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
