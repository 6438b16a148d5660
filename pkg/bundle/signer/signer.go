package signer

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// ISigner signs an already-structured 32-byte hash. No message prefix is
// added; the coordination protocol expects the bare signature.
type ISigner interface {
	SignHash(hash []byte) ([]byte, error)
	Address() string
}

// KeystoreSigner decrypts the key for each signing operation and wipes it
// before returning. The plaintext key never outlives a single SignHash call.
type KeystoreSigner struct {
	keystorePath  string
	signerAddress string
	passwordFunc  func() (string, error)
	logger        *zap.Logger
}

func NewKeystoreSigner(keystorePath string, signerAddress string, passwordFunc func() (string, error), l *zap.Logger) *KeystoreSigner {
	return &KeystoreSigner{
		keystorePath:  keystorePath,
		signerAddress: signerAddress,
		passwordFunc:  passwordFunc,
		logger:        l,
	}
}

func (s *KeystoreSigner) Address() string {
	return strings.ToLower(s.signerAddress)
}

func (s *KeystoreSigner) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("expected a 32-byte hash, got %d bytes", len(hash))
	}

	keyJson, err := os.ReadFile(s.keystorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore file: %w", err)
	}

	password, err := s.passwordFunc()
	if err != nil {
		return nil, err
	}

	// A decrypt failure is terminal: retrying with the same password cannot
	// succeed.
	key, err := keystore.DecryptKey(keyJson, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore: %w", err)
	}
	defer zeroKey(key.PrivateKey)

	return signHashWithKey(hash, key.PrivateKey)
}

// PrivateKeySigner holds an in-memory key. Used by tests and by the direct
// EOA path where the caller already performed the scoped decrypt.
type PrivateKeySigner struct {
	privateKey *ecdsa.PrivateKey
}

func NewPrivateKeySigner(privateKey *ecdsa.PrivateKey) *PrivateKeySigner {
	return &PrivateKeySigner{privateKey: privateKey}
}

func (s *PrivateKeySigner) Address() string {
	return strings.ToLower(crypto.PubkeyToAddress(s.privateKey.PublicKey).Hex())
}

func (s *PrivateKeySigner) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("expected a 32-byte hash, got %d bytes", len(hash))
	}
	return signHashWithKey(hash, s.privateKey)
}

func signHashWithKey(hash []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}
	// Normalize the recovery id to the 27/28 convention contracts expect.
	sig[64] += 27
	return sig, nil
}

func zeroKey(k *ecdsa.PrivateKey) {
	b := k.D.Bits()
	for i := range b {
		b[i] = 0
	}
}
