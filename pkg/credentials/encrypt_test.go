package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return []byte("01234567890123456789012345678901") // 32 bytes
}

func TestCipher_EncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	ciphertext, err := c.Encrypt("super-secret-access-key")
	require.NoError(t, err)
	assert.NotEqual(t, "super-secret-access-key", ciphertext)

	plaintext, err := c.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-access-key", plaintext)
}

func TestCipher_DistinctCiphertextsPerCall(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	a, err := c.Encrypt("same-plaintext")
	require.NoError(t, err)
	b, err := c.Encrypt("same-plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "random nonce must make repeated encryptions differ")
}

func TestCipher_DecryptRejectsTamperedCiphertext(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	ciphertext, err := c.Encrypt("value")
	require.NoError(t, err)

	tampered := ciphertext[:len(ciphertext)-2] + "zz"
	_, err = c.Decrypt(tampered)
	assert.Error(t, err)
}
