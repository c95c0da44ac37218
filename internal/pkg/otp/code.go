package otp

import (
	"crypto/rand"
	"errors"
	"io"
)

// Alphabet has 32 symbols (no 0/O, 1/I) so a 5-bit mask maps bytes uniformly.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DefaultLength gives 30 bits of entropy, far beyond a 3-attempt budget.
const DefaultLength = 6

// MaxLength is the longest code the request validator accepts.
const MaxLength = 12

// ErrInvalidLength is returned for lengths outside [DefaultLength, MaxLength].
var ErrInvalidLength = errors.New("otp: code length must be between 6 and 12")

// Generator produces random fixed-length codes.
type Generator struct {
	length int
	rand   io.Reader
}

// NewGenerator returns a Generator for codes of the given length.
func NewGenerator(length int) (*Generator, error) {
	if length < DefaultLength || length > MaxLength {
		return nil, ErrInvalidLength
	}

	return &Generator{length: length, rand: rand.Reader}, nil
}

// Generate returns a new code.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, g.length)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", err
	}

	for i, b := range buf {
		buf[i] = Alphabet[b&31]
	}

	return string(buf), nil
}
