// Package fingerprint derives stable cache keys from screenshot payloads.
//
// The digest is the sole identity of a prediction: two captures with the
// same bytes share one cache entry regardless of which session sent them,
// so session metadata is deliberately excluded from the hash.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint is a hex-encoded SHA-256 digest of a screenshot.
type Fingerprint string

// String returns the digest as a plain string.
func (f Fingerprint) String() string { return string(f) }

// Short returns an abbreviated digest suitable for log fields.
func (f Fingerprint) Short() string {
	const shortLen = 12
	if len(f) <= shortLen {
		return string(f)
	}
	return string(f[:shortLen])
}

// Digest computes the fingerprint for an image payload. It is pure and
// deterministic; identical inputs always produce identical fingerprints.
// maxBytes <= 0 disables the size check.
func Digest(image []byte, maxBytes int) (Fingerprint, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if maxBytes > 0 && len(image) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrImageTooLarge, len(image), maxBytes)
	}
	sum := sha256.Sum256(image)
	return Fingerprint(hex.EncodeToString(sum[:])), nil
}
