package tokencrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// HashSeparator separates the encoded digest from the hex encoded salt in a hash string.
const HashSeparator = "//"

// DefaultHashLength is the digest length produced by Hash when none is requested.
const DefaultHashLength = 32

const hashSaltLength = 32

// ErrMissingSalt is returned by CompareHash when neither the hash string nor the caller supplies a salt.
var ErrMissingSalt = errors.New("tokencrypto: salt cannot be empty if there is no salt in hash")

// Hash derives a digest of plaintext with PBKDF2-SHA256 and returns urlsafe-base64(digest) + "//" + hex(salt).
// A random salt is generated when salt is nil. A length of zero selects DefaultHashLength.
func Hash(plaintext string, salt []byte, length int) (string, error) {
	if length <= 0 {
		length = DefaultHashLength
	}

	if salt == nil {
		salt = make([]byte, hashSaltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return "", err
		}
	}

	digest := pbkdf2.Key([]byte(plaintext), salt, HashIterations, length, sha256.New)
	return base64.URLEncoding.EncodeToString(digest) + HashSeparator + hex.EncodeToString(salt), nil
}

// CompareHash reports whether plaintext hashes to hashString. The salt embedded in hashString takes
// precedence over salt. The digest length is taken from the stored digest.
func CompareHash(plaintext, hashString string, salt []byte) (bool, error) {
	encoded := hashString
	if digestPart, saltPart, found := strings.Cut(hashString, HashSeparator); found {
		encoded = digestPart
		salt = decodeSalt(saltPart)
	}

	if len(salt) == 0 {
		return false, ErrMissingSalt
	}

	digest, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil || len(digest) == 0 {
		return false, nil
	}

	comparison, err := Hash(plaintext, salt, len(digest))
	if err != nil {
		return false, err
	}

	return strings.SplitN(comparison, HashSeparator, 2)[0] == encoded, nil
}

// decodeSalt accepts hex encoded salts, and falls back to the raw bytes of the string otherwise.
func decodeSalt(s string) []byte {
	if b, err := hex.DecodeString(s); err == nil {
		return b
	}
	return []byte(s)
}
