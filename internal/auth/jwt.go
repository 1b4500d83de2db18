// Package auth issues and verifies the HS256 tokens used for sessions, email
// verification and device access.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audiences keep a token minted for one purpose from being accepted for another.
const (
	AudienceSession     = "session"
	AudienceVerifyEmail = "verify-email"
	AudienceDevice      = "device"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for subject. A zero ttl produces a token without expiry.
func (s *Signer) Issue(audience, subject string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:       uuid.NewString(),
		Subject:  subject,
		Audience: jwt.ClaimStrings{audience},
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Claims is what a verified token carries
type Claims struct {
	ID        string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero for tokens without expiry
}

// Verify checks signature, audience and expiry and returns the subject
func (s *Signer) Verify(tokenString, audience string) (string, error) {
	claims, err := s.Parse(tokenString, audience)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse is Verify returning every claim
func (s *Signer) Parse(tokenString, audience string) (Claims, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Claims{}, ErrTokenExpired
	}
	if err != nil || !token.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{ID: claims.ID, Subject: claims.Subject}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
