// Package fingerprint computes the SHA-256 identity digests used for
// deduplication. url_hash is the store's uniqueness key, content_hash decides
// whether a rewrite is needed.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash returns the hex-encoded SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// URLHash fingerprints a page by its location only.
func URLHash(location string) string {
	return Hash([]byte(location))
}

// ContentHash fingerprints the normalized title plus content: both sides are
// lower-cased and trimmed, content fragments joined by single spaces. The
// exact normalization is load-bearing; a change silently rewrites every page.
func ContentHash(title string, content []string) string {
	contentText := strings.TrimSpace(strings.ToLower(strings.Join(content, " ")))
	titleText := strings.TrimSpace(strings.ToLower(title))
	return Hash([]byte(titleText + " " + contentText))
}
