package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	encryptionSaltSize   = 8
	encryptionIterations = 4096
	encryptionKeySize    = 32
)

// AesGcmEncryptWithPassword encrypts plaintext with a key derived from the
// password. The result is hex-encoded as salt-nonce-ciphertext so it can be
// stored as a plain string.
func AesGcmEncryptWithPassword(plaintext string, password string) (string, error) {
	salt := make([]byte, encryptionSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	aead, err := newAead(password, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := aead.Seal(nil, nonce, []byte(plaintext), nil)
	return fmt.Sprintf("%s-%s-%s",
		hex.EncodeToString(salt),
		hex.EncodeToString(nonce),
		hex.EncodeToString(ciphertext)), nil
}

// AesGcmDecryptWithPassword reverses AesGcmEncryptWithPassword. A wrong
// password or tampered value returns an error.
func AesGcmDecryptWithPassword(encrypted string, password string) (string, error) {
	parts := strings.Split(encrypted, "-")
	if len(parts) != 3 {
		return "", errors.New("invalid encrypted value format")
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", err
	}
	nonce, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", err
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", err
	}

	aead, err := newAead(password, salt)
	if err != nil {
		return "", err
	}
	if len(nonce) != aead.NonceSize() {
		return "", errors.New("invalid nonce size")
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newAead(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, encryptionIterations, encryptionKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
