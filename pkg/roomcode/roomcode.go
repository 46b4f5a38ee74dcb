// Package roomcode generates and validates the human-shareable pairing
// codes that identify a room before it is connected.
package roomcode

import (
	"crypto/rand"
	"regexp"
	"strings"
)

// alphabet excludes nothing: codes are plain uppercase alphanumerics,
// grouped for readability (XXXX-XXXX-XXXX).
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	groupLen   = 4
	groupCount = 3
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// Generate returns a new random code in XXXX-XXXX-XXXX form.
func Generate() (string, error) {
	// Bytes at or above the largest multiple of the alphabet size are
	// re-rolled so every symbol stays equally likely.
	const limit = byte(256 - 256%len(alphabet))

	var b strings.Builder
	b.Grow(groupLen*groupCount + groupCount - 1)

	written := 0
	buf := make([]byte, groupLen*groupCount)
	for written < groupLen*groupCount {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, raw := range buf {
			if raw >= limit {
				continue
			}
			if written > 0 && written%groupLen == 0 {
				b.WriteByte('-')
			}
			b.WriteByte(alphabet[int(raw)%len(alphabet)])
			written++
			if written == groupLen*groupCount {
				break
			}
		}
	}
	return b.String(), nil
}

// Normalize trims whitespace and uppercases a user-supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code is in canonical XXXX-XXXX-XXXX form.
// Callers should Normalize first.
func Valid(code string) bool {
	return codePattern.MatchString(code)
}
