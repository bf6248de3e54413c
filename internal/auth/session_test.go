package auth

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	s, err := NewSigner(time.Hour)
	require.NoError(t, err)

	tok, err := s.Token(42)
	require.NoError(t, err)
	id, err := s.Authenticate(tok)
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	again, err := s.Token(42)
	require.NoError(t, err)
	assert.Equal(t, tok, again)
}

func TestExpiredTokenRejected(t *testing.T) {
	s, err := NewSigner(time.Minute)
	require.NoError(t, err)
	base := time.Now()
	s.now = func() time.Time { return base }

	tok, err := s.Token(7)
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = s.Authenticate(tok)
	assert.Error(t, err)

	fresh, err := s.Token(7)
	require.NoError(t, err)
	assert.NotEqual(t, tok, fresh)
}

func TestForeignKeyRejected(t *testing.T) {
	a, err := NewSigner(0)
	require.NoError(t, err)
	b, err := NewSigner(0)
	require.NoError(t, err)

	tok, err := a.Token(1)
	require.NoError(t, err)
	_, err = b.Authenticate(tok)
	assert.Error(t, err)
}

func TestParseTokenExpireTime(t *testing.T) {
	for _, v := range []string{"", "0", "never"} {
		d, err := ParseTokenExpireTime(v)
		require.NoError(t, err)
		assert.Zero(t, d)
	}
	d, err := ParseTokenExpireTime("72h")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)
	_, err = ParseTokenExpireTime("soon")
	assert.Error(t, err)
}

func TestNewSignerFromPath(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dir := t.TempDir()
	privPath, pubPath := filepath.Join(dir, "agent.key"), filepath.Join(dir, "agent.pub")
	require.NoError(t, os.WriteFile(privPath, priv, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pub, 0o600))

	s, err := NewSignerFromPath(privPath, pubPath, 0)
	require.NoError(t, err)
	tok, err := s.Token(3)
	require.NoError(t, err)
	id, err := s.Authenticate(tok)
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	_, err = NewSignerFromPath(filepath.Join(dir, "missing"), pubPath, 0)
	assert.Error(t, err)
}
