// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer mints and verifies the EdDSA bearer tokens autonomous seats act with.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	// expire is the token lifetime; 0 means tokens carry no exp claim.
	expire time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[int]cachedToken
}

type cachedToken struct {
	token   string
	expires time.Time
}

// ParseTokenExpireTime reads a TOKEN_EXPIRE_TIME value. "never", "0" and ""
// disable expiry.
func ParseTokenExpireTime(value string) (time.Duration, error) {
	if value == "never" || value == "0" || value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// NewSigner generates a fresh ed25519 key pair at runtime.
func NewSigner(expire time.Duration) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return newSigner(priv, pub, expire), nil
}

// NewSignerFromPath reads the ed25519 private/public keys the game service trusts.
func NewSignerFromPath(privatePath, publicPath string, expire time.Duration) (*Signer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("unexpected ed25519 key sizes %d/%d", len(privateKeyData), len(publicKeyData))
	}
	return newSigner(ed25519.PrivateKey(privateKeyData), ed25519.PublicKey(publicKeyData), expire), nil
}

func newSigner(priv ed25519.PrivateKey, pub ed25519.PublicKey, expire time.Duration) *Signer {
	return &Signer{privateKey: priv, publicKey: pub, expire: expire, now: time.Now, cache: make(map[int]cachedToken)}
}

// Token returns a signed JWT with "sub" = userID. Tokens are reused until
// they are within a tenth of their lifetime of expiring.
func (s *Signer) Token(userID int) (string, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cache[userID]; ok && (c.expires.IsZero() || now.Before(c.expires.Add(-s.expire/10))) {
		return c.token, nil
	}

	claims := jwt.MapClaims{
		"sub": strconv.Itoa(userID),
		"iat": now.Unix(),
	}
	var expires time.Time
	if s.expire > 0 {
		expires = now.Add(s.expire)
		claims["exp"] = expires.Unix()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token for %d: %w", userID, err)
	}
	s.cache[userID] = cachedToken{token: token, expires: expires}
	return token, nil
}

// Authenticate verifies a JWT string and returns the user id in "sub".
func (s *Signer) Authenticate(tokenString string) (int, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return 0, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid jwt claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, fmt.Errorf("missing sub in jwt")
	}
	userID, err := strconv.Atoi(sub)
	if err != nil {
		return 0, fmt.Errorf("non-numeric sub %q", sub)
	}
	return userID, nil
}
