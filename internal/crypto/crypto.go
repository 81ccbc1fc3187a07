// Package crypto seals small secrets, such as the stored OAuth token, with a
// passphrase-derived AES-256-GCM key.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	iterations = 100000
	keySize    = 32 // AES-256
)

// sealedPrefix marks sealed payloads so plaintext files can be told apart.
var sealedPrefix = []byte("meetup-events:v1:")

var (
	// ErrNotSealed is returned by Open for data without the sealed prefix.
	ErrNotSealed = errors.New("data is not sealed")
	// ErrWrongKey is returned when sealed data cannot be authenticated.
	ErrWrongKey = errors.New("cannot decrypt sealed data: wrong key or corrupted data")
)

// Encryptor seals and opens data with a passphrase. A nil Encryptor passes
// data through unchanged.
type Encryptor struct {
	passphrase []byte
}

// NewEncryptor creates an encryptor for passphrase, or nil when the
// passphrase is empty.
func NewEncryptor(passphrase string) *Encryptor {
	if passphrase == "" {
		return nil
	}
	return &Encryptor{passphrase: []byte(passphrase)}
}

// IsSealed reports whether data was produced by Seal.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), sealedPrefix)
}

func (e *Encryptor) gcm(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.passphrase, salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext. Each call uses a fresh salt and nonce, stored in
// front of the ciphertext.
func (e *Encryptor) Seal(plaintext []byte) ([]byte, error) {
	if e == nil {
		return plaintext, nil
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	gcm, err := e.gcm(salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	payload := append(salt, nonce...)
	payload = gcm.Seal(payload, nonce, plaintext, sealedPrefix)

	out := make([]byte, 0, len(sealedPrefix)+base64.StdEncoding.EncodedLen(len(payload)))
	out = append(out, sealedPrefix...)
	return base64.StdEncoding.AppendEncode(out, payload), nil
}

// Open decrypts data produced by Seal.
func (e *Encryptor) Open(sealed []byte) ([]byte, error) {
	if e == nil {
		return sealed, nil
	}

	sealed = bytes.TrimSpace(sealed)
	if !bytes.HasPrefix(sealed, sealedPrefix) {
		return nil, ErrNotSealed
	}
	payload, err := base64.StdEncoding.AppendDecode(nil, sealed[len(sealedPrefix):])
	if err != nil {
		return nil, fmt.Errorf("decoding sealed data: %w", err)
	}
	if len(payload) < saltSize {
		return nil, errors.New("sealed data too short")
	}

	salt, rest := payload[:saltSize], payload[saltSize:]
	gcm, err := e.gcm(salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, errors.New("sealed data too short")
	}

	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, sealedPrefix)
	if err != nil {
		return nil, ErrWrongKey
	}
	return plaintext, nil
}
