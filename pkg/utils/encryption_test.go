package utils

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der := x509.MarshalPKCS1PublicKey(&priv.PublicKey)
	return priv, base64.StdEncoding.EncodeToString(der)
}

func TestImportRSAPublicKey(t *testing.T) {
	priv, b64 := clientKeyPair(t)

	pub, err := ImportRSAPublicKey(b64)
	require.NoError(t, err)
	assert.True(t, priv.PublicKey.Equal(pub))
}

func TestImportRSAPublicKeyRejectsGarbage(t *testing.T) {
	_, err := ImportRSAPublicKey("not base64 at all!!")
	assert.Error(t, err)

	_, err = ImportRSAPublicKey(base64.StdEncoding.EncodeToString([]byte("not a key")))
	assert.Error(t, err)
}

func TestEncryptKeyForPeer(t *testing.T) {
	priv, b64 := clientKeyPair(t)
	pub, err := ImportRSAPublicKey(b64)
	require.NoError(t, err)

	key, err := GenerateAESKey()
	require.NoError(t, err)
	require.Len(t, key, 16)

	sealed, err := EncryptKeyForPeer(pub, key)
	require.NoError(t, err)

	// The client decrypts and base64-decodes to recover the session key.
	ciphertext, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
	require.NoError(t, err)
	recovered, err := base64.StdEncoding.DecodeString(string(plain))
	require.NoError(t, err)
	assert.Equal(t, key, recovered)
}

func TestAESRoundTrip(t *testing.T) {
	key, err := GenerateAESKey()
	require.NoError(t, err)

	frame := []byte(`{"command":"Ping"}`)
	sealed, err := AESEncrypt(key, frame)
	require.NoError(t, err)

	opened, err := AESDecrypt(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, frame, opened)
}

func TestAESDecryptRejectsTamperedFrame(t *testing.T) {
	key, err := GenerateAESKey()
	require.NoError(t, err)
	sealed, err := AESEncrypt(key, []byte("payload"))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[0] ^= 0xff
	_, err = AESDecrypt(key, base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)
}

func TestAESDecryptRejectsWrongKey(t *testing.T) {
	key1, _ := GenerateAESKey()
	key2, _ := GenerateAESKey()
	sealed, err := AESEncrypt(key1, []byte("payload"))
	require.NoError(t, err)

	_, err = AESDecrypt(key2, sealed)
	assert.Error(t, err)
}

func TestAESDecryptRejectsShortCiphertext(t *testing.T) {
	key, _ := GenerateAESKey()
	_, err := AESDecrypt(key, base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}
