package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// legacyPBKDF2 is the oldest format: "pbkdf2:<hex salt>:<hex hash>", same
// PBKDF2 parameters as the canonical format but hex-encoded.
type legacyPBKDF2 struct{}

const legacyTag = "pbkdf2"

func (legacyPBKDF2) sniff(stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 3 || parts[0] != legacyTag {
		return false
	}
	for _, p := range parts[1:] {
		if p == "" {
			return false
		}
		if _, err := hex.DecodeString(p); err != nil {
			return false
		}
	}
	return true
}

func (legacyPBKDF2) verify(plaintext, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 3 {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[2])
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(plaintext), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// legacyScrypt is the middle-generation format: "<128 hex hash>.<32 hex salt>",
// scrypt with the parameters that system shipped with.
type legacyScrypt struct{}

const (
	scryptN       = 16384
	scryptR       = 8
	scryptP       = 1
	scryptKeySize = 64

	scryptHashHexLen = 128
	scryptSaltHexLen = 32
)

func (legacyScrypt) sniff(stored string) bool {
	parts := strings.Split(stored, ".")
	if len(parts) != 2 {
		return false
	}
	if len(parts[0]) != scryptHashHexLen || len(parts[1]) != scryptSaltHexLen {
		return false
	}
	for _, p := range parts {
		if _, err := hex.DecodeString(p); err != nil {
			return false
		}
	}
	return true
}

func (legacyScrypt) verify(plaintext, stored string) bool {
	parts := strings.Split(stored, ".")
	if len(parts) != 2 {
		return false
	}
	want, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	got, err := scrypt.Key([]byte(plaintext), salt, scryptN, scryptR, scryptP, scryptKeySize)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}
