// Package hash implements the password hashers for the locally
// authenticated variant. sha256 reproduces the legacy credential format
// already present in dados_usuario.senha; bcrypt is the scheme to migrate
// to once the login path verifies both.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Sha256Hasher produces a deterministic hex digest of the password.
type Sha256Hasher struct{}

func (Sha256Hasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

// BcryptHasher produces a salted bcrypt hash.
type BcryptHasher struct{}

func (BcryptHasher) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
