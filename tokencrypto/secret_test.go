package tokencrypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadOrCreateSecretCreates(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	path := filepath.Join(t.TempDir(), "data", "secret.txt")

	// Act
	secret, err := LoadOrCreateSecret(path)

	// Assert
	assert.Nil(err)
	assert.Len(secret, SecretLength)
	fi, err := os.Stat(path)
	assert.Nil(err)
	assert.Equal(os.FileMode(0600), fi.Mode().Perm())
}

func TestLoadOrCreateSecretReadsExisting(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	path := filepath.Join(t.TempDir(), "secret.txt")
	first, err := LoadOrCreateSecret(path)
	assert.Nil(err)

	// Act
	second, err := LoadOrCreateSecret(path)

	// Assert
	assert.Nil(err)
	assert.Equal(first, second)
}

func TestRandomStringAlphabet(t *testing.T) {
	assert := assert.New(t)

	s, err := RandomString(500)

	assert.Nil(err)
	assert.Len(s, 500)
	for _, r := range s {
		assert.True(strings.ContainsRune(secretAlphabet, r))
	}
}
