package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates HS256 session tokens issued by the account service.
type Verifier struct {
	secret []byte
	issuer string
}

type VerifierOpt func(*Verifier)

// WithIssuer requires tokens to carry the given iss claim.
func WithIssuer(iss string) VerifierOpt {
	return func(v *Verifier) {
		v.issuer = iss
	}
}

func NewVerifier(secret []byte, opts ...VerifierOpt) *Verifier {
	v := &Verifier{secret: secret}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks the token signature and expiry and returns its subject.
func (v *Verifier) Verify(token string) (string, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, parserOpts...)
	if err != nil {
		return "", fmt.Errorf("verifying session token: %w", err)
	}

	if claims.Subject == "" {
		return "", errors.New("session token has no subject")
	}
	return claims.Subject, nil
}

// Sign issues a token for userID. It is used by tooling and tests.
func (v *Verifier) Sign(userID string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = userID
	if v.issuer != "" && claims.Issuer == "" {
		claims.Issuer = v.issuer
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(v.secret)
}
