package utils

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
}

func TestParseEncryptionKey(t *testing.T) {
	key, err := ParseEncryptionKey(testKey())
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = ParseEncryptionKey("")
	assert.Error(t, err)

	_, err = ParseEncryptionKey("not base64 !!")
	assert.Error(t, err)

	_, err = ParseEncryptionKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func TestCipher_RoundTrip(t *testing.T) {
	key, err := ParseEncryptionKey(testKey())
	require.NoError(t, err)
	c, err := NewCipher(key)
	require.NoError(t, err)

	enc, err := c.Encrypt("device-secret")
	require.NoError(t, err)
	assert.NotEqual(t, "device-secret", enc)

	again, err := c.Encrypt("device-secret")
	require.NoError(t, err)
	assert.NotEqual(t, enc, again, "nonce must differ per call")

	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "device-secret", dec)

	empty, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = c.Decrypt(base64.StdEncoding.EncodeToString([]byte("x")))
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("Secr3t!pass")
	require.NoError(t, err)

	ok, err := VerifyPassword("Secr3t!pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyPassword("x", "not-a-hash")
	assert.Error(t, err)
}

func TestNewID(t *testing.T) {
	id, err := NewID()
	require.NoError(t, err)
	assert.Len(t, id, IDLength)
	assert.True(t, IsValidID(id))
	assert.False(t, IsValidID("abc"))
}

func TestIsEmoji(t *testing.T) {
	assert.True(t, IsEmoji("🌊"))
	assert.False(t, IsEmoji("ab"))
	assert.False(t, IsEmoji("🌊🌊"))
	assert.False(t, IsEmoji(""))
}

func TestIsStrongPassword(t *testing.T) {
	assert.True(t, IsStrongPassword("Abcdef1!"))
	assert.False(t, IsStrongPassword("abcdef1!"))
	assert.False(t, IsStrongPassword("ABCDEF1!"))
	assert.False(t, IsStrongPassword("Abcdefg!"))
	assert.False(t, IsStrongPassword("Abcdefg1"))
	assert.False(t, IsStrongPassword("Abcde f1!"))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("jane@example.com"))
	assert.False(t, IsValidEmail("Jane <jane@example.com>"))
	assert.False(t, IsValidEmail("nope"))
	assert.False(t, IsValidEmail(""))
}
