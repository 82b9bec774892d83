// Package session issues and resolves stateless signed session tokens.
//
// Tokens are HS256 JWTs carrying the owner id and email with a fixed 24 hour
// lifetime. There is no server-side session table, so a token stays valid
// until it expires.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Lifetime is the fixed validity window of an issued token.
	Lifetime = 24 * time.Hour

	// MinSecretLength is the minimum accepted HMAC key length in bytes.
	MinSecretLength = 32

	defaultIssuer = "taskscribe"
)

var (
	// ErrInvalidToken covers bad signatures, unexpected algorithms and malformed claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token is past its expiry.
	ErrExpiredToken = errors.New("token expired")
)

// Identity is the verified caller behind a token.
type Identity struct {
	UserID string
	Email  string
}

// Claims is the signed payload.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Issuer)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// WithIssuer overrides the iss claim.
func WithIssuer(iss string) Option {
	return func(i *Issuer) { i.issuer = iss }
}

func NewIssuer(secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session: secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}

	i := &Issuer{
		secret: secret,
		issuer: defaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}

	i.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	return i, nil
}

// Issue signs a token for the identity. It returns the token and its expiry.
func (i *Issuer) Issue(id Identity) (string, time.Time, error) {
	if id.UserID == "" {
		return "", time.Time{}, errors.New("session: identity has no user id")
	}

	issuedAt := i.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(Lifetime)

	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Resolve verifies the token and returns the identity it carries. Callers
// must not reveal to clients which of ErrInvalidToken or ErrExpiredToken
// was returned.
func (i *Issuer) Resolve(tokenStr string) (Identity, error) {
	var claims Claims
	token, err := i.parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	if claims.UserID == "" || claims.Subject != claims.UserID {
		return Identity{}, fmt.Errorf("%w: claims shape mismatch", ErrInvalidToken)
	}

	return Identity{UserID: claims.UserID, Email: claims.Email}, nil
}
