package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize       = 8
	keyIterations  = 4096
	derivedKeySize = 32
)

// valueCipher encrypts individual cache values with AES-GCM. The key is
// derived once per store from the configured passphrase and a salt kept in
// the meta bucket, so reopening with the same passphrase reads old values.
type valueCipher struct {
	aead cipher.AEAD
}

func newValueCipher(password string, salt []byte) (*valueCipher, error) {
	key := pbkdf2.Key([]byte(password), salt, keyIterations, derivedKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &valueCipher{aead: aead}, nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// seal returns nonce || ciphertext.
func (c *valueCipher) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *valueCipher) open(data []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	return c.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
}
