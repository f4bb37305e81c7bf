package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrIntegrity is returned when a stored ciphertext fails
// authentication on decrypt: tampering or corruption.
var ErrIntegrity = errors.New("message ciphertext failed authentication")

// Codec encrypts message text at rest with AES-256-GCM. The key is
// held in memory for the process lifetime and must never be logged.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec seals a codec over a 32-byte key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("message key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encrypt returns the ciphertext (with the GCM tag appended) and the
// 96-bit nonce used. A fresh random nonce is drawn per call; a nonce is
// never reused under the same key.
func (c *Codec) Encrypt(plaintext string) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}
	ciphertext = c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return ciphertext, nonce, nil
}

// Decrypt authenticates and decrypts a stored ciphertext. An empty
// ciphertext means "no content" and decrypts to the empty string
// rather than an error.
func (c *Codec) Decrypt(ciphertext, nonce []byte) (string, error) {
	if len(ciphertext) == 0 {
		return "", nil
	}
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}
