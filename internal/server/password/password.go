// Package password hashes and verifies user passwords. Stored hashes come in
// three shapes accumulated over the product's history; Verify dispatches on
// the structure of the stored string so callers never need to know which
// generation produced it.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	iterations = 100_000
	keySize    = 32
)

// scheme is one stored-hash format. sniff reports whether the stored string
// has this format's shape; verify derives and compares in constant time.
type scheme interface {
	sniff(stored string) bool
	verify(plaintext, stored string) bool
}

// Ordered: the tagged legacy format first, then the fixed-width scrypt
// format, then the canonical format. Order matters only for the tagged
// prefix, which would otherwise also split on ":".
var schemes = []scheme{legacyPBKDF2{}, legacyScrypt{}, canonical{}}

// Hash produces the canonical format: base64(salt):base64(dk) with a random
// 16-byte salt and PBKDF2-HMAC-SHA256.
func Hash(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := pbkdf2.Key([]byte(plaintext), salt, iterations, keySize, sha256.New)
	return base64.StdEncoding.EncodeToString(salt) + ":" + base64.StdEncoding.EncodeToString(dk), nil
}

// Verify checks plaintext against a stored hash of any known format.
// A stored string matching no known shape fails verification; it is never
// an error, so a corrupt hash can not be mistaken for a match.
func Verify(plaintext, stored string) bool {
	for _, s := range schemes {
		if s.sniff(stored) {
			return s.verify(plaintext, stored)
		}
	}
	return false
}

// NeedsRehash reports whether stored uses a legacy format and should be
// replaced with the canonical one on the next successful login. The upgrade
// itself is the caller's policy decision.
func NeedsRehash(stored string) bool {
	if (canonical{}).sniff(stored) {
		return false
	}
	return (legacyPBKDF2{}).sniff(stored) || (legacyScrypt{}).sniff(stored)
}

// canonical is the current format: base64(salt):base64(dk).
type canonical struct{}

func (canonical) sniff(stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}
	for _, p := range parts {
		// empty salt or digest never verifies: a degenerate stored string
		// must not constant-time-compare two empty slices to success
		if p == "" {
			return false
		}
		if _, err := base64.StdEncoding.DecodeString(p); err != nil {
			return false
		}
	}
	return true
}

func (canonical) verify(plaintext, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(plaintext), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
