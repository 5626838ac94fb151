// Package tokencrypto implements the primitives used for verification tokens and for keeping
// client identifiers out of persisted caches in plaintext.
package tokencrypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyIterations is the PBKDF2 iteration count used to derive encryption keys.
	KeyIterations = 100000

	// HashIterations is the PBKDF2 iteration count used by Hash.
	HashIterations = 200000

	// KeyLength is the AES-256 key size.
	KeyLength = 32
)

// deriveKeys derives an AES-256 key and an HMAC-SHA256 key of KeyLength bytes each from one PBKDF2 run.
func deriveKeys(password, salt []byte) (encKey, macKey []byte) {
	k := pbkdf2.Key(password, salt, KeyIterations, 2*KeyLength, sha256.New)
	return k[:KeyLength], k[KeyLength:]
}

// DeriveKey derives a symmetric key from a password and salt. The same inputs always yield the same key.
func DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, KeyIterations, KeyLength, sha256.New)
}
