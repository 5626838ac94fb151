package tokencrypto

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

const keyedHashContext = "riskgate 2024 reputation cache client key"

// KeyedHasher produces deterministic one-way keys for client identifiers.
// Unlike Hash, equal inputs always give equal outputs, so the result can be used as a map key.
type KeyedHasher struct {
	key []byte
}

// NewKeyedHasher derives a hashing key from a server side secret.
func NewKeyedHasher(secret []byte) *KeyedHasher {
	key := make([]byte, 32)
	blake3.DeriveKey(keyedHashContext, secret, key)
	return &KeyedHasher{key: key}
}

// Sum returns the hex encoded keyed hash of value.
func (k *KeyedHasher) Sum(value string) string {
	h, err := blake3.NewKeyed(k.key)
	if err != nil {
		// Only possible for keys that are not 32 bytes long.
		panic(err)
	}
	h.WriteString(value)
	return hex.EncodeToString(h.Sum(nil))
}
