// Package crypto provides the cryptographic primitives for the HoldVox remote
// BLE protocol: HKDF-SHA256 key derivation from the provisioned shared secret,
// and AES-256-GCM encryption with separate IV and tag fields.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdfInfo binds derived keys to this protocol; the remote firmware uses the
// same constant.
const hkdfInfo = "holdvox-remote-v1"

// ParseSharedSecret decodes the hex-encoded secret provisioned on both the
// host and the remote. The secret must decode to exactly 32 bytes.
func ParseSharedSecret(hexSecret string) ([]byte, error) {
	secret, err := hex.DecodeString(hexSecret)
	if err != nil {
		return nil, fmt.Errorf("ble/crypto: shared secret is not valid hex: %w", err)
	}
	if len(secret) != 32 {
		return nil, fmt.Errorf("ble/crypto: shared secret must be 32 bytes, got %d", len(secret))
	}
	return secret, nil
}

// DeriveEncryptionKey uses HKDF-SHA256 to derive the 32-byte AES key from the
// shared secret: HKDF(secret, salt=nil, info=hkdfInfo, length=32).
func DeriveEncryptionKey(sharedSecret []byte) ([]byte, error) {
	hkdfReader := hkdf.New(sha256.New, sharedSecret, nil, []byte(hkdfInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		return nil, fmt.Errorf("ble/crypto: HKDF: %w", err)
	}
	return key, nil
}

// KeysEqual compares two derived keys in constant time.
func KeysEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Encrypt encrypts plaintext with AES-256-GCM, returning iv (12 bytes),
// ciphertext, and tag (16 bytes) separately, matching the remote's protobuf
// field layout.
func Encrypt(key, plaintext []byte) (iv, ciphertext, tag []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ble/crypto: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ble/crypto: new GCM: %w", err)
	}

	iv = make([]byte, aead.NonceSize()) // 12 bytes
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, nil, fmt.Errorf("ble/crypto: random IV: %w", err)
	}

	// Go's GCM Seal appends the tag to the ciphertext
	sealed := aead.Seal(nil, iv, plaintext, nil)

	tagSize := aead.Overhead() // 16
	ciphertext = sealed[:len(sealed)-tagSize]
	tag = sealed[len(sealed)-tagSize:]

	return iv, ciphertext, tag, nil
}

// Decrypt decrypts ciphertext with AES-256-GCM using separate iv, ciphertext, and tag.
func Decrypt(key, iv, ciphertext, tag []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ble/crypto: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ble/crypto: new GCM: %w", err)
	}

	// Reassemble: ciphertext || tag (as Go's GCM expects).
	// Use explicit allocation to avoid mutating the caller's ciphertext slice.
	sealed := make([]byte, len(ciphertext)+len(tag))
	copy(sealed, ciphertext)
	copy(sealed[len(ciphertext):], tag)
	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("ble/crypto: decrypt: %w", err)
	}
	return plaintext, nil
}
