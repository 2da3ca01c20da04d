package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueCipher_RoundTrip(t *testing.T) {
	t.Parallel()
	salt, err := newSalt()
	require.NoError(t, err)

	cipher, err := newValueCipher("passphrase", salt)
	require.NoError(t, err)

	sealed, err := cipher.seal([]byte("plaintext value"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "plaintext value")

	opened, err := cipher.open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "plaintext value", string(opened))
}

func TestValueCipher_WrongKeyFails(t *testing.T) {
	t.Parallel()
	salt, err := newSalt()
	require.NoError(t, err)

	cipher, err := newValueCipher("passphrase", salt)
	require.NoError(t, err)
	sealed, err := cipher.seal([]byte("plaintext value"))
	require.NoError(t, err)

	wrong, err := newValueCipher("other passphrase", salt)
	require.NoError(t, err)
	_, err = wrong.open(sealed)
	assert.Error(t, err)
}

func TestValueCipher_DifferentSaltDifferentKey(t *testing.T) {
	t.Parallel()
	saltA, err := newSalt()
	require.NoError(t, err)
	saltB, err := newSalt()
	require.NoError(t, err)
	require.NotEqual(t, saltA, saltB)

	cipherA, err := newValueCipher("passphrase", saltA)
	require.NoError(t, err)
	cipherB, err := newValueCipher("passphrase", saltB)
	require.NoError(t, err)

	sealed, err := cipherA.seal([]byte("value"))
	require.NoError(t, err)
	_, err = cipherB.open(sealed)
	assert.Error(t, err)
}

func TestValueCipher_TruncatedCiphertext(t *testing.T) {
	t.Parallel()
	salt, err := newSalt()
	require.NoError(t, err)
	cipher, err := newValueCipher("passphrase", salt)
	require.NoError(t, err)

	_, err = cipher.open([]byte("short"))
	assert.Error(t, err)
}
