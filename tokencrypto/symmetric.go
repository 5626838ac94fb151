package tokencrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	// MinSaltLength is the shortest salt accepted for token encryption.
	MinSaltLength = 16

	// DefaultSaltLength is the salt length used when none is configured.
	DefaultSaltLength = 32

	ivLength  = aes.BlockSize
	macLength = sha256.Size
)

// ErrDecryption is returned for malformed, forged or corrupted tokens and for wrong passwords.
// The cause is intentionally not distinguished.
var ErrDecryption = errors.New("tokencrypto: decryption failed")

// SymmetricCrypto encrypts short strings into opaque URL safe tokens.
type SymmetricCrypto struct {
	password   []byte
	saltLength int
	random     io.Reader
}

// NewSymmetricCrypto creates a SymmetricCrypto. An empty password is replaced by a random one,
// which makes the tokens valid for the life of the process only.
func NewSymmetricCrypto(password string, saltLength int) (*SymmetricCrypto, error) {
	if saltLength == 0 {
		saltLength = DefaultSaltLength
	}
	if saltLength < MinSaltLength {
		return nil, fmt.Errorf("tokencrypto: salt length %d is shorter than %d bytes", saltLength, MinSaltLength)
	}

	c := &SymmetricCrypto{saltLength: saltLength, random: rand.Reader}

	if password == "" {
		b := make([]byte, 48)
		if _, err := io.ReadFull(c.random, b); err != nil {
			return nil, err
		}
		password = base64.RawURLEncoding.EncodeToString(b)
	}
	c.password = []byte(password)

	return c, nil
}

// Encrypt encrypts plaintext with a freshly drawn salt and IV and returns
// urlsafe-base64(salt || iv || ciphertext || HMAC-SHA256(salt || iv || ciphertext)).
func (c *SymmetricCrypto) Encrypt(plaintext string) (token string, err error) {
	buf := make([]byte, c.saltLength+ivLength)
	if _, err = io.ReadFull(c.random, buf); err != nil {
		return
	}
	salt, iv := buf[:c.saltLength], buf[c.saltLength:]

	encKey, macKey := deriveKeys(c.password, salt)
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	data := append(buf, ciphertext...)
	token = base64.URLEncoding.EncodeToString(append(data, sum(macKey, data)...))
	return
}

// Decrypt reverses Encrypt. The MAC is checked before anything is decrypted. Any failure is reported as ErrDecryption.
func (c *SymmetricCrypto) Decrypt(token string) (plaintext string, err error) {
	data, decodeErr := base64.URLEncoding.DecodeString(token)
	if decodeErr != nil {
		err = ErrDecryption
		return
	}

	body := len(data) - c.saltLength - ivLength - macLength
	if body <= 0 || body%aes.BlockSize != 0 {
		err = ErrDecryption
		return
	}

	signed, mac := data[:len(data)-macLength], data[len(data)-macLength:]
	salt := signed[:c.saltLength]
	iv := signed[c.saltLength : c.saltLength+ivLength]
	ciphertext := signed[c.saltLength+ivLength:]

	encKey, macKey := deriveKeys(c.password, salt)
	if !hmac.Equal(mac, sum(macKey, signed)) {
		err = ErrDecryption
		return
	}

	block, cipherErr := aes.NewCipher(encKey)
	if cipherErr != nil {
		err = ErrDecryption
		return
	}

	decrypted := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, ciphertext)

	n, ok := pkcs7Unpad(decrypted, aes.BlockSize)
	if !ok {
		err = ErrDecryption
		return
	}

	plaintext = string(decrypted[:n])
	return
}

func sum(macKey, data []byte) []byte {
	h := hmac.New(sha256.New, macKey)
	h.Write(data)
	return h.Sum(nil)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// pkcs7Unpad validates the padding without branching on secret bytes and returns the unpadded length.
func pkcs7Unpad(b []byte, blockSize int) (int, bool) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return 0, false
	}

	last := b[len(b)-1]
	n := int(last)

	good := subtle.ConstantTimeLessOrEq(1, n) & subtle.ConstantTimeLessOrEq(n, blockSize)

	// Always inspect the full final block so the amount of work does not depend on the pad length.
	tail := b[len(b)-blockSize:]
	for i := 0; i < blockSize; i++ {
		inPad := subtle.ConstantTimeLessOrEq(blockSize, i+n)
		same := subtle.ConstantTimeByteEq(tail[i], last)
		good &= subtle.ConstantTimeSelect(inPad, same, 1)
	}

	return len(b) - n, good == 1
}
