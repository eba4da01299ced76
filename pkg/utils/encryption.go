package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// The GCM nonce is a fixed literal shared with existing clients. The AES key
// is generated fresh for every connection, so a (key, nonce) pair is never
// reused across sessions. Changing this would break the wire contract.
const gcmNonce = "dMailBackend"

const aesKeyLen = 16

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// ImportRSAPublicKey parses a base64-encoded PKCS#1 DER public key as sent by
// clients during the connection handshake.
func ImportRSAPublicKey(b64 string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return pub, nil
}

// GenerateAESKey returns a fresh 128-bit session key.
func GenerateAESKey() ([]byte, error) {
	key := make([]byte, aesKeyLen)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// EncryptKeyForPeer encrypts the base64 form of the session key under the
// client's RSA public key with PKCS#1 v1.5 padding and returns the result
// base64-encoded, which is exactly what goes into SetConnectionSymKey.
func EncryptKeyForPeer(pub *rsa.PublicKey, key []byte) (string, error) {
	plain := []byte(base64.StdEncoding.EncodeToString(key))
	enc, err := rsa.EncryptPKCS1v15(rand.Reader, pub, plain)
	if err != nil {
		return "", fmt.Errorf("encrypt session key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(enc), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// AESEncrypt seals plaintext with AES-GCM and returns base64 ciphertext.
func AESEncrypt(key, plaintext []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, []byte(gcmNonce), plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// AESDecrypt opens a base64-encoded AES-GCM ciphertext.
func AESDecrypt(key []byte, b64 string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	plain, err := gcm.Open(nil, []byte(gcmNonce), sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("open ciphertext: %w", err)
	}
	return plain, nil
}
