// Package auth issues and verifies the bearer tokens accepted by the
// JSON-RPC server. A token's subject is the fsn address the holder acts as.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"fusionswap/crypto"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrNoSecret     = errors.New("auth: secret not configured")
)

const defaultClockSkew = 2 * time.Minute

// Config describes the token verifier.
type Config struct {
	Secret    string
	Issuer    string
	ClockSkew time.Duration
	Now       func() time.Time
}

// Principal is the authenticated caller.
type Principal struct {
	Address   [20]byte
	Subject   string
	ExpiresAt time.Time
}

// Verifier checks HMAC-signed tokens.
type Verifier struct {
	secret []byte
	issuer string
	skew   time.Duration
	now    func() time.Time
}

func NewVerifier(cfg Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, ErrNoSecret
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = defaultClockSkew
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Verifier{secret: []byte(secret), issuer: strings.TrimSpace(cfg.Issuer), skew: skew, now: now}, nil
}

// Authenticate extracts and verifies the bearer token on r.
func (v *Verifier) Authenticate(r *http.Request) (*Principal, error) {
	token := ExtractBearer(r.Header.Get("Authorization"))
	if token == "" {
		return nil, ErrMissingToken
	}
	return v.Verify(token)
}

// Verify parses token and resolves its subject to an address.
func (v *Verifier) Verify(token string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(v.skew),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	addr, err := crypto.ParseAddress(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject: %v", ErrInvalidToken, err)
	}
	p := &Principal{Address: addr, Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// SignToken issues an HS256 token for subject valid for ttl from now.
func SignToken(secret, issuer, subject string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrNoSecret
	}
	if _, err := crypto.ParseAddress(subject); err != nil {
		return "", fmt.Errorf("auth: subject: %w", err)
	}
	if ttl <= 0 {
		return "", errors.New("auth: ttl must be positive")
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if issuer != "" {
		claims.Issuer = issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(secret)))
}

func ExtractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
