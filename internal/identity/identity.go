package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// EmptyFingerprint is the fingerprint of a zero-length payload. Empty
// input is not an error; callers compare against this value instead.
const EmptyFingerprint = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// Fingerprint returns the sha256 digest of data as lowercase hex.
// Deterministic; used both for duplicate detection and for spotting
// content drift on re-import.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DeriveCode produces a record code from a source file name: the base
// name without extension, restricted to a safe character set. Falls back
// to a fresh UUID when nothing usable is left.
func DeriveCode(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	code := strings.Trim(b.String(), "._-")
	if code == "" {
		return uuid.NewString()
	}
	return code
}
