package stego

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const encryptSaltSize = 16

func deriveKey(passphrase string, salt []byte) []byte {
	// 32 bytes for AES-256.
	return pbkdf2.Key([]byte(passphrase), salt, 100000, 32, sha256.New)
}

// encryptSecret seals the secret under a passphrase. The random salt rides
// in front of the ciphertext; together with the GCM nonce it is the only
// nondeterminism anywhere in the encode path.
func encryptSecret(secret []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, encryptSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	out := append([]byte(nil), salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, secret, nil), nil
}

func decryptSecret(data []byte, passphrase string) ([]byte, error) {
	if len(data) < encryptSaltSize {
		return nil, fmt.Errorf("encrypted payload too short")
	}
	salt, data := data[:encryptSaltSize], data[encryptSaltSize:]

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("encrypted payload too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
