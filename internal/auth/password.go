// Package auth provides the password capability, the in-memory session, and
// authentication/user management over the generic record store.
package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Hasher is the injected password capability. The rest of the system treats
// hashes as opaque strings.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	StrengthCheck(password string) (bool, string)
	GenerateTemporary() (string, error)
}

// BcryptHasher implements Hasher with bcrypt. The zero Cost falls back to the
// library default.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// StrengthCheck enforces the minimum password policy: at least 8 characters
// with an upper-case letter, a lower-case letter and a digit.
func (h *BcryptHasher) StrengthCheck(password string) (bool, string) {
	if len(password) < 8 {
		return false, "password must be at least 8 characters"
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return false, "password must contain an upper-case letter"
	}
	if !hasLower {
		return false, "password must contain a lower-case letter"
	}
	if !hasDigit {
		return false, "password must contain a digit"
	}
	return true, "ok"
}

const tempPasswordLength = 12

const tempPasswordAlphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789!@#$%^&*"

// GenerateTemporary returns a random temporary password for resets.
func (h *BcryptHasher) GenerateTemporary() (string, error) {
	out := make([]byte, tempPasswordLength)
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("auth: generate password: %w", err)
		}
		out[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}
