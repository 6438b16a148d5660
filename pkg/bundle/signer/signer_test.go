package signer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/odcpw/berabundle-sub001/internal/logger"
	"github.com/stretchr/testify/assert"
)

const testPrivateKeyHex = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func testHash() []byte {
	return crypto.Keccak256([]byte("berabundle test payload"))
}

func Test_PrivateKeySigner(t *testing.T) {
	key, err := crypto.HexToECDSA(testPrivateKeyHex)
	assert.Nil(t, err)
	s := NewPrivateKeySigner(key)

	t.Run("Test that the address derives from the key", func(t *testing.T) {
		expected := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
		assert.Equal(t, expected, s.Address())
	})
	t.Run("Test that signatures carry the 27/28 recovery id and recover the signer", func(t *testing.T) {
		hash := testHash()
		sig, err := s.SignHash(hash)
		assert.Nil(t, err)
		assert.Equal(t, 65, len(sig))
		assert.True(t, sig[64] == 27 || sig[64] == 28)

		recoverable := make([]byte, 65)
		copy(recoverable, sig)
		recoverable[64] -= 27

		pubkey, err := crypto.SigToPub(hash, recoverable)
		assert.Nil(t, err)
		assert.Equal(t, s.Address(), strings.ToLower(crypto.PubkeyToAddress(*pubkey).Hex()))
	})
	t.Run("Test that a non-32-byte hash is rejected", func(t *testing.T) {
		_, err := s.SignHash([]byte("short"))
		assert.NotNil(t, err)
	})
}

func Test_KeystoreSigner(t *testing.T) {
	key, err := crypto.HexToECDSA(testPrivateKeyHex)
	assert.Nil(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey)

	encrypted, err := keystore.EncryptKey(&keystore.Key{
		Id:         uuid.New(),
		Address:    address,
		PrivateKey: key,
	}, "correct horse", keystore.LightScryptN, keystore.LightScryptP)
	assert.Nil(t, err)

	keystorePath := filepath.Join(t.TempDir(), "signer.json")
	assert.Nil(t, os.WriteFile(keystorePath, encrypted, 0o600))

	t.Run("Test that signing decrypts the keystore and matches the in-memory signer", func(t *testing.T) {
		s := NewKeystoreSigner(keystorePath, address.Hex(), func() (string, error) {
			return "correct horse", nil
		}, logger.NewNoopLogger())

		hash := testHash()
		sig, err := s.SignHash(hash)
		assert.Nil(t, err)

		reference, err := NewPrivateKeySigner(key).SignHash(hash)
		assert.Nil(t, err)
		assert.Equal(t, reference, sig)
	})
	t.Run("Test that a wrong password is terminal", func(t *testing.T) {
		s := NewKeystoreSigner(keystorePath, address.Hex(), func() (string, error) {
			return "wrong password", nil
		}, logger.NewNoopLogger())

		_, err := s.SignHash(testHash())
		assert.NotNil(t, err)
	})
	t.Run("Test that a password callback failure aborts signing", func(t *testing.T) {
		s := NewKeystoreSigner(keystorePath, address.Hex(), func() (string, error) {
			return "", fmt.Errorf("no password available")
		}, logger.NewNoopLogger())

		_, err := s.SignHash(testHash())
		assert.NotNil(t, err)
	})
	t.Run("Test that a missing keystore file errors", func(t *testing.T) {
		s := NewKeystoreSigner("/nonexistent/keystore.json", address.Hex(), func() (string, error) {
			return "correct horse", nil
		}, logger.NewNoopLogger())

		_, err := s.SignHash(testHash())
		assert.NotNil(t, err)
	})
}
