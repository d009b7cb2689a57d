package client

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/predictprotocol/walletauth/ethsig"
)

// Signer produces wallet signatures for challenge messages. A wallet UI
// implementation may block until the user approves or rejects.
type Signer interface {
	Address() string
	SignMessage(message string) (string, error)
}

// LocalSigner signs with an in-process private key.
type LocalSigner struct {
	key *ecdsa.PrivateKey
}

func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

func (s *LocalSigner) Address() string {
	return crypto.PubkeyToAddress(s.key.PublicKey).Hex()
}

func (s *LocalSigner) SignMessage(message string) (string, error) {
	return ethsig.Sign(message, s.key)
}
