package ledger

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
)

func testKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	raw := make([]byte, 32)
	raw[31] = 0x01
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return priv
}

func TestAddressOf(t *testing.T) {
	// Well-known address for private key 0x...01.
	key := testKey(t)
	got := AddressOf(key.PubKey())
	want := "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf"
	if got != want {
		t.Errorf("AddressOf = %s, want %s", got, want)
	}
}

func TestRLPString(t *testing.T) {
	cases := []struct {
		in   []byte
		want string
	}{
		{nil, "80"},
		{[]byte{0x00}, "00"},
		{[]byte{0x7f}, "7f"},
		{[]byte{0x80}, "8180"},
		{[]byte("dog"), "83646f67"},
	}
	for _, tc := range cases {
		if got := hex.EncodeToString(rlpString(tc.in)); got != tc.want {
			t.Errorf("rlpString(%x) = %s, want %s", tc.in, got, tc.want)
		}
	}

	// Strings of 56 bytes or more take a length-of-length header.
	long := bytes.Repeat([]byte{0xaa}, 56)
	enc := rlpString(long)
	if enc[0] != 0xb8 || enc[1] != 56 {
		t.Errorf("long string header = %x %x, want b8 38", enc[0], enc[1])
	}
	if len(enc) != 58 {
		t.Errorf("long string length = %d, want 58", len(enc))
	}
}

func TestRLPList(t *testing.T) {
	if got := hex.EncodeToString(rlpList(nil)); got != "c0" {
		t.Errorf("empty list = %s, want c0", got)
	}

	// [ "cat", "dog" ] from the canonical examples.
	enc := rlpList([][]byte{rlpString([]byte("cat")), rlpString([]byte("dog"))})
	if got := hex.EncodeToString(enc); got != "c88363617483646f67" {
		t.Errorf("list = %s", got)
	}
}

func TestRLPUint(t *testing.T) {
	cases := []struct {
		in   uint64
		want string
	}{
		{0, "80"},
		{15, "0f"},
		{1024, "820400"},
	}
	for _, tc := range cases {
		if got := hex.EncodeToString(rlpUint(tc.in)); got != tc.want {
			t.Errorf("rlpUint(%d) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestRLPBig(t *testing.T) {
	if got := hex.EncodeToString(rlpBig(nil)); got != "80" {
		t.Errorf("rlpBig(nil) = %s, want 80", got)
	}
	if got := hex.EncodeToString(rlpBig(big.NewInt(0))); got != "80" {
		t.Errorf("rlpBig(0) = %s, want 80", got)
	}
	if got := hex.EncodeToString(rlpBig(big.NewInt(1024))); got != "820400" {
		t.Errorf("rlpBig(1024) = %s, want 820400", got)
	}
}

func TestSignLegacyTx(t *testing.T) {
	key := testKey(t)
	params := txParams{
		Nonce:    1,
		GasPrice: big.NewInt(1_000_000_000),
		Gas:      60_000,
		To:       addrB,
		Data:     []byte{0x19, 0x16, 0x55, 0x87},
		ChainID:  big.NewInt(1337),
	}

	raw, txHash, err := signLegacyTx(key, params)
	if err != nil {
		t.Fatalf("signLegacyTx failed: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("empty raw transaction")
	}
	if !strings.HasPrefix(txHash, "0x") || len(txHash) != 66 {
		t.Errorf("malformed tx hash %q", txHash)
	}

	// RFC 6979 nonces make signing deterministic.
	raw2, txHash2, err := signLegacyTx(key, params)
	if err != nil {
		t.Fatalf("second sign failed: %v", err)
	}
	if !bytes.Equal(raw, raw2) || txHash != txHash2 {
		t.Error("signing is not deterministic")
	}

	// The chain id is folded into v, so a different chain produces a
	// different payload.
	params.ChainID = big.NewInt(1)
	raw3, _, err := signLegacyTx(key, params)
	if err != nil {
		t.Fatalf("sign with other chain id failed: %v", err)
	}
	if bytes.Equal(raw, raw3) {
		t.Error("chain id not bound into the signed payload")
	}
}

func TestSignLegacyTxRejectsBadAddress(t *testing.T) {
	_, _, err := signLegacyTx(testKey(t), txParams{
		To:       "0x1234",
		GasPrice: big.NewInt(1),
		ChainID:  big.NewInt(1337),
	})
	if err == nil {
		t.Error("expected error for short to address")
	}
}
