// Package ethsig implements EIP-191 personal_sign message recovery. It
// recovers the signer address from a message/signature pair; comparing the
// recovered address against a claimed one is the caller's job.
package ethsig

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/predictprotocol/walletauth/core"
)

// Recover returns the address that produced signature over message under the
// EIP-191 personal_sign scheme. The message is hashed exactly as signed, with
// no additional transformation.
func Recover(message, signature string) (common.Address, error) {
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature hex: %w", core.ErrInvalidSignature)
	}

	if len(sigBytes) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d: %w", len(sigBytes), core.ErrInvalidSignature)
	}

	// The recovery id (v) may come as 0/1 or 27/28 depending on the wallet.
	if sigBytes[64] >= 27 {
		sigBytes[64] -= 27
	}

	msgHash := personalHash(message)

	pubKey, err := crypto.SigToPub(msgHash.Bytes(), sigBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", core.ErrInvalidSignature)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// Sign produces an EIP-191 personal_sign signature over message with the
// given key, with the recovery byte in wallet format (27/28).
func Sign(message string, key *ecdsa.PrivateKey) (string, error) {
	msgHash := personalHash(message)

	sig, err := crypto.Sign(msgHash.Bytes(), key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[64] += 27

	return "0x" + hex.EncodeToString(sig), nil
}

// IsValidAddress checks that a string is a well-formed 0x-prefixed address.
func IsValidAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") {
		return false
	}
	if len(address) != 42 {
		return false
	}
	_, err := hex.DecodeString(address[2:])
	return err == nil
}

// Normalize lowercases an address for use as a storage key.
func Normalize(address string) string {
	return strings.ToLower(address)
}

func personalHash(message string) common.Hash {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256Hash([]byte(prefixed))
}
