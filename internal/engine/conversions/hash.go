package conversions

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// HashIdentity normalizes an identity field (trimmed, lower-cased) and
// returns its SHA-256 hex digest. Empty input stays empty so the field is
// omitted from the request.
func HashIdentity(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// HashPhone hashes only the digits of a phone number.
func HashPhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	return HashIdentity(digits)
}
