// Package wallet stores the beneficiary's signing key. The vesting services
// consume it through the Store interface only; key formats and encryption are
// this package's concern.
package wallet

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Store is the wallet collaborator consumed by the vesting services.
type Store interface {
	// HasWallet reports whether a wallet exists.
	HasWallet() bool

	// Address returns the wallet's 0x-prefixed account address.
	Address() (string, error)

	// Unlock decrypts the signing key with the password.
	// Returns ErrInvalidPassword on a bad credential.
	Unlock(password string) (*btcec.PrivateKey, error)
}

var (
	// ErrNoWallet is returned when no wallet has been created.
	ErrNoWallet = errors.New("no wallet found")

	// ErrInvalidPassword is returned when the password fails to decrypt
	// the signing key.
	ErrInvalidPassword = errors.New("invalid password: could not decrypt signing key")
)
