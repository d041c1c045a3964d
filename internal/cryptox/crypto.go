// Package cryptox hashes the PINs of offline accounts and the passwords of
// mirror accounts.
package cryptox

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	keySize  = 32
)

// DerivePINHash stretches pin with argon2id.
func DerivePINHash(pin []byte, salt []byte) []byte {
	return argon2.IDKey(pin, salt, 1, 64*1024, 4, keySize)
}

// VerifyPIN compares pin against a stored hash in constant time.
func VerifyPIN(pin, salt, hash []byte) bool {
	candidate := DerivePINHash(pin, salt)
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}

// HashPassword is DerivePINHash applied to a mirror account password.
func HashPassword(password string, salt []byte) []byte {
	return DerivePINHash([]byte(password), salt)
}

func VerifyPassword(password string, salt, hash []byte) bool {
	return VerifyPIN([]byte(password), salt, hash)
}
