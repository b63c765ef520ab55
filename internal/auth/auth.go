// Package auth verifies the single administrator credential.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any email or password mismatch.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Verifier checks an email/password pair.
type Verifier interface {
	Verify(ctx context.Context, email, password string) error
}

// BcryptVerifier compares against one configured email and bcrypt hash.
type BcryptVerifier struct {
	email string
	hash  []byte
}

// NewBcryptVerifier validates the hash format up front so a typo in
// configuration fails at start-up rather than at the first login.
func NewBcryptVerifier(email, hash string) (*BcryptVerifier, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.New("auth: admin email is required")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("auth: invalid password hash: %w", err)
	}
	return &BcryptVerifier{email: email, hash: []byte(hash)}, nil
}

// Verify returns nil when both values match. The bcrypt comparison runs even
// for an unknown email so both failures take similar time.
func (v *BcryptVerifier) Verify(_ context.Context, email, password string) error {
	emailOK := subtle.ConstantTimeCompare([]byte(normalizeEmail(email)), []byte(v.email)) == 1
	pwErr := bcrypt.CompareHashAndPassword(v.hash, []byte(password))
	if !emailOK || pwErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("auth: password is empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
