package hash

import (
	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used for every password hash.
const Cost = 10

// Bcrypt hashes and verifies passwords with bcrypt at a constant cost.
type Bcrypt struct{}

// NewBcrypt returns a bcrypt-based hasher.
func NewBcrypt() *Bcrypt {
	return &Bcrypt{}
}

// Hash hashes plaintext using bcrypt. Inputs longer than 72 bytes are rejected
// by bcrypt with bcrypt.ErrPasswordTooLong.
func (*Bcrypt) Hash(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plaintext), Cost)
}

// Verify reports whether plaintext matches the stored hash. The comparison
// is the constant-time one done by bcrypt itself.
func (*Bcrypt) Verify(hashed, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
