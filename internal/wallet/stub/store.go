// Package stub implements wallet.Store for testing.
package stub

import (
	"github.com/btcsuite/btcd/btcec/v2"

	"token-vesting-lab/internal/ledger"
	"token-vesting-lab/internal/wallet"
)

// Store implements wallet.Store with a fixed in-memory key.
type Store struct {
	Key      *btcec.PrivateKey
	Password string
	Missing  bool // simulate an absent wallet

	UnlockCalls int
}

// NewStore creates a stub wallet with a fresh key unlocked by password.
func NewStore(password string) *Store {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		panic(err)
	}
	return &Store{Key: key, Password: password}
}

// Compile-time interface check.
var _ wallet.Store = (*Store)(nil)

// HasWallet reports whether the stub wallet exists.
func (s *Store) HasWallet() bool {
	return !s.Missing
}

// Address returns the stub wallet's address.
func (s *Store) Address() (string, error) {
	if s.Missing {
		return "", wallet.ErrNoWallet
	}
	return ledger.AddressOf(s.Key.PubKey()), nil
}

// Unlock returns the key when the password matches.
func (s *Store) Unlock(password string) (*btcec.PrivateKey, error) {
	s.UnlockCalls++
	if s.Missing {
		return nil, wallet.ErrNoWallet
	}
	if password != s.Password {
		return nil, wallet.ErrInvalidPassword
	}
	return s.Key, nil
}
