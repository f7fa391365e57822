package utils

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidSignature = errors.New("invalid signature")

// RestoreSignerAddress recovers the account that personal-signed data. The
// recovery id may be given either as 0/1 or as 27/28.
func RestoreSignerAddress(data, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature has %d bytes: %w", len(sig), ErrInvalidSignature)
	}
	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pk, err := crypto.SigToPub(accounts.TextHash(data), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("can't recover ecdsa signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pk), nil
}

// RestoreSignerFromParts is RestoreSignerAddress for a signature split into
// its r, s and v components.
func RestoreSignerFromParts(data, r, s []byte, v byte) (common.Address, error) {
	if len(r) != 32 || len(s) != 32 {
		return common.Address{}, fmt.Errorf("r and s must be 32 bytes: %w", ErrInvalidSignature)
	}
	sig := make([]byte, 0, crypto.SignatureLength)
	sig = append(sig, r...)
	sig = append(sig, s...)
	sig = append(sig, v)
	return RestoreSignerAddress(data, sig)
}
