package wallet

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-vesting-lab/internal/ledger"
)

func TestFileStore_CreateAndUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	store := NewFileStore(path)

	assert.False(t, store.HasWallet())
	_, err := store.Address()
	assert.ErrorIs(t, err, ErrNoWallet)

	address, err := store.Create("hunter2", "2026-08-27T00:00:00Z")
	require.NoError(t, err)
	require.True(t, ledger.ValidAddress(address))
	assert.True(t, store.HasWallet())

	got, err := store.Address()
	require.NoError(t, err)
	assert.Equal(t, address, got)

	key, err := store.Unlock("hunter2")
	require.NoError(t, err)
	assert.Equal(t, address, ledger.AddressOf(key.PubKey()))
}

func TestFileStore_WrongPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	store := NewFileStore(path)

	_, err := store.Create("correct horse", "")
	require.NoError(t, err)

	_, err = store.Unlock("battery staple")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPassword), "got %v", err)
}

func TestFileStore_CreateTwiceFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	store := NewFileStore(path)

	_, err := store.Create("pw", "")
	require.NoError(t, err)

	_, err = store.Create("pw", "")
	assert.Error(t, err)
}
