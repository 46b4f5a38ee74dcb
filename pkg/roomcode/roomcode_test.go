package roomcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := Generate()
		require.NoError(t, err)
		assert.True(t, Valid(code), "generated code %q should be valid", code)
		assert.Len(t, code, 14)
	}
}

func TestGenerateDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := Generate()
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %q", code)
		seen[code] = true
	}
}

func TestGenerateCoversAlphabet(t *testing.T) {
	// Enough draws that every symbol should show up; a missing one would
	// point at the sampling skipping part of the alphabet.
	counts := make(map[byte]int, len(alphabet))
	for i := 0; i < 500; i++ {
		code, err := Generate()
		require.NoError(t, err)
		for j := 0; j < len(code); j++ {
			if code[j] != '-' {
				counts[code[j]]++
			}
		}
	}
	for i := 0; i < len(alphabet); i++ {
		assert.Positive(t, counts[alphabet[i]], "symbol %c never generated", alphabet[i])
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ab12-cd34-ef56", "AB12-CD34-EF56"},
		{"  AB12-CD34-EF56  ", "AB12-CD34-EF56"},
		{"\tab12-CD34-ef56\n", "AB12-CD34-EF56"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("AB12-CD34-EF56"))
	assert.False(t, Valid("ab12-cd34-ef56"))
	assert.False(t, Valid("AB12CD34EF56"))
	assert.False(t, Valid("AB12-CD34"))
	assert.False(t, Valid("AB1!-CD34-EF56"))
	assert.False(t, Valid(""))
}
