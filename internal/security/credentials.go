package security

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Credentials is one login of the dev upstream. Only the bcrypt hash of the password is kept.
type Credentials struct {
	email string
	hash  []byte
}

// NewCredentials hashes password with cost, clamped to bcrypt's range.
func NewCredentials(email, password string, cost int) (*Credentials, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}
	return &Credentials{email: normalizeEmail(email), hash: hash}, nil
}

// Email returns the normalized login email.
func (c *Credentials) Email() string { return c.email }

// Verify reports whether email and password match. The bcrypt comparison always runs so a wrong
// email costs the same as a wrong password.
func (c *Credentials) Verify(email, password string) bool {
	pwErr := bcrypt.CompareHashAndPassword(c.hash, []byte(password))
	emailOK := subtle.ConstantTimeCompare([]byte(normalizeEmail(email)), []byte(c.email)) == 1
	return emailOK && pwErr == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
