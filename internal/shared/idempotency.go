package shared

import (
	"strings"
	"unicode"
)

// HeaderIdempotencyKey names the request header that makes a create replayable.
const HeaderIdempotencyKey = "Idempotency-Key"

// MaxIdempotencyKeyLen bounds stored keys.
const MaxIdempotencyKeyLen = 128

// NormalizeIdempotencyKey trims key. An empty result means the request is not replayable.
func NormalizeIdempotencyKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if len(key) > MaxIdempotencyKeyLen {
		return "", Validationf("idempotency key longer than %d bytes", MaxIdempotencyKeyLen)
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return "", Validationf("idempotency key contains control characters")
		}
	}
	return key, nil
}
