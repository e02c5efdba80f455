// Package auth mints and validates the credential handed to a browser once it
// has completed the identity verification. The credential is an HS256 JWT
// carrying an opaque subject and the verified flag, signed with a key derived
// from the server secret.
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
	jose "gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

const (
	// DefaultTTL is the credential lifetime.
	DefaultTTL = 24 * time.Hour
	// DevelopmentSecret is the fallback secret for local development. It is
	// public and must never be used in production.
	DevelopmentSecret = "zk-vote-dev-secret-change-in-production"

	keyDerivationInfo = "zkvote credential signing key v1"
	signingKeySize    = 32
)

// ErrInvalidCredential is returned by Verify for any malformed, forged,
// expired or unverified token.
var ErrInvalidCredential = errors.New("invalid credential")

// Claims is the content of a valid credential.
type Claims struct {
	Subject   string    `json:"subject"`
	Verified  bool      `json:"verified"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type privateClaims struct {
	Verified bool `json:"verified"`
}

// Issuer signs and verifies credentials. It is safe for concurrent use.
type Issuer struct {
	key    []byte
	signer jose.Signer
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer for the given secret. A non positive ttl uses
// DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("empty signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}
	return &Issuer{
		key:    key,
		signer: signer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// IsDevelopmentSecret reports whether secret is the public development secret.
func IsDevelopmentSecret(secret string) bool {
	return secret == DevelopmentSecret
}

// SetClock replaces the time source. Used in tests.
func (i *Issuer) SetClock(now func() time.Time) {
	i.now = now
}

// TTL returns the credential lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue returns a signed credential for subject, valid for the issuer TTL.
func (i *Issuer) Issue(subject string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("empty subject")
	}
	now := i.now()
	std := jwt.Claims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(i.ttl)),
	}
	token, err := jwt.Signed(i.signer).Claims(std).Claims(privateClaims{Verified: true}).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("failed to sign credential: %w", err)
	}
	return token, nil
}

// Verify checks the token signature and expiry and returns its claims. Any
// failure returns ErrInvalidCredential wrapping the reason.
func (i *Issuer) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseSigned(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if len(parsed.Headers) != 1 || parsed.Headers[0].Algorithm != string(jose.HS256) {
		return nil, fmt.Errorf("%w: unexpected signing algorithm", ErrInvalidCredential)
	}
	std := jwt.Claims{}
	priv := privateClaims{}
	if err := parsed.Claims(i.key, &std, &priv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if std.Expiry == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidCredential)
	}
	if err := std.ValidateWithLeeway(jwt.Expected{Time: i.now()}, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !priv.Verified || std.Subject == "" {
		return nil, fmt.Errorf("%w: not a verified subject", ErrInvalidCredential)
	}
	claims := &Claims{
		Subject:   std.Subject,
		Verified:  true,
		ExpiresAt: std.Expiry.Time(),
	}
	if std.IssuedAt != nil {
		claims.IssuedAt = std.IssuedAt.Time()
	}
	return claims, nil
}

// deriveKey expands the configured secret into the HMAC key, so the raw
// secret is never used as key material directly.
func deriveKey(secret string) ([]byte, error) {
	key := make([]byte, signingKeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyDerivationInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	return key, nil
}
