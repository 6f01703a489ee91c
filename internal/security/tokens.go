// Package security issues and inspects the bearer tokens of the dev upstream and checks its
// credentials. The BFF itself never validates tokens; it only peeks at their claims.
package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
)

// AccessClaims holds the JWT claims of a bearer token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// TokenIssuer signs and validates bearer tokens with RS256 or ES256.
type TokenIssuer struct {
	privateKey crypto.Signer
	issuer     string
	ttl        time.Duration
}

// NewTokenIssuer returns a TokenIssuer signing with privateKey. Tokens expire after ttl.
func NewTokenIssuer(privateKey crypto.Signer, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{privateKey: privateKey, issuer: issuer, ttl: ttl}
}

// Issue issues a token for userID. Returns the token string and its expiration time.
func (p *TokenIssuer) Issue(userID, email string) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(p.ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
	}
	token, err = p.sign(claims)
	return token, expiresAt, err
}

func (p *TokenIssuer) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

// Validate parses and validates token (signature, exp, iss).
func (p *TokenIssuer) Validate(tokenString string) (*AccessClaims, error) {
	pub := p.privateKey.Public()
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return pub, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return pub, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithIssuer(p.issuer))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Peek is what the BFF can read from a token without verifying it.
type Peek struct {
	Subject   string
	Email     string
	ExpiresAt *time.Time
}

// PeekClaims decodes the claims of a JWT without checking its signature. The upstream remains the
// only authority on validity; the result is for display only. Opaque tokens yield ErrInvalidToken.
func PeekClaims(tokenString string) (*Peek, error) {
	var claims AccessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	p := &Peek{Subject: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time.UTC()
		p.ExpiresAt = &t
	}
	return p, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
