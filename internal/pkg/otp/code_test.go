package otp

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator_Length(t *testing.T) {
	_, err := NewGenerator(4)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = NewGenerator(MaxLength + 1)
	assert.ErrorIs(t, err, ErrInvalidLength)

	g, err := NewGenerator(MaxLength)
	require.NoError(t, err)
	code, err := g.Generate()
	require.NoError(t, err)
	assert.Len(t, code, MaxLength)

	g, err = NewGenerator(8)
	require.NoError(t, err)

	code, err = g.Generate()
	require.NoError(t, err)
	assert.Len(t, code, 8)
}

func TestGenerate_Alphabet(t *testing.T) {
	g, err := NewGenerator(DefaultLength)
	require.NoError(t, err)

	seen := map[string]struct{}{}
	for range 200 {
		code, err := g.Generate()
		require.NoError(t, err)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected rune %q", r)
		}
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestGenerate_Deterministic(t *testing.T) {
	g := &Generator{length: 6, rand: bytes.NewReader([]byte{0, 1, 31, 32, 33, 255})}

	code, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "AB9AB9", code)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerate_ReaderFailure(t *testing.T) {
	g := &Generator{length: 6, rand: failingReader{}}

	_, err := g.Generate()
	assert.Error(t, err)
}
