package domain

import (
	"math/rand/v2"
	"strings"
)

// PublicCodeAlphabet excludes the look-alikes O, 0, I and 1.
const PublicCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// PublicCodeLength is the number of characters in a public code
const PublicCodeLength = 6

// GenerateCode draws a public code from the safe alphabet
func GenerateCode(r *rand.Rand) string {
	var b strings.Builder
	b.Grow(PublicCodeLength)
	for i := 0; i < PublicCodeLength; i++ {
		b.WriteByte(PublicCodeAlphabet[r.IntN(len(PublicCodeAlphabet))])
	}
	return b.String()
}

// NormalizeCode makes public code lookups case-insensitive
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code is a well-formed public code
func ValidCode(code string) bool {
	if len(code) != PublicCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(PublicCodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
