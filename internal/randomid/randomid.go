package randomid

import (
	"crypto/rand"
	"fmt"
)

const lowercaseAlphanumericChars = "abcdefghijklmnopqrstuvwxyz1234567890"

// New generates a random string of the given length using only lowercase
// alphanumeric characters.
//
// Used for run identifiers when no deterministic id can be derived.
func New(length int) string {
	charsLen := len(lowercaseAlphanumericChars)
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Errorf("randomid: rand error: %v", err))
	}

	for i := 0; i < length; i++ {
		b[i] = lowercaseAlphanumericChars[int(b[i])%charsLen]
	}
	return string(b)
}
