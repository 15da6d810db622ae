package ledger

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Legacy (pre-typed) transaction encoding with EIP-155 replay protection.
// The surface is deliberately narrow: one contract call, zero value.

// txParams holds the fields of a legacy transaction.
type txParams struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       string // 0x-prefixed contract address
	Value    *big.Int
	Data     []byte
	ChainID  *big.Int
}

// AddressOf derives the 0x-prefixed account address from a secp256k1 public
// key: keccak-256 of the uncompressed key body, last 20 bytes.
func AddressOf(pub *btcec.PublicKey) string {
	uncompressed := pub.SerializeUncompressed()
	h := keccak256(uncompressed[1:])
	return "0x" + hex.EncodeToString(h[12:])
}

// signLegacyTx signs the transaction per EIP-155 and returns the raw RLP
// payload for eth_sendRawTransaction plus its transaction hash.
func signLegacyTx(key *btcec.PrivateKey, p txParams) ([]byte, string, error) {
	to, err := hex.DecodeString(trimHexPrefix(p.To))
	if err != nil || len(to) != 20 {
		return nil, "", fmt.Errorf("invalid to address %q", p.To)
	}

	base := [][]byte{
		rlpUint(p.Nonce),
		rlpBig(p.GasPrice),
		rlpUint(p.Gas),
		rlpString(to),
		rlpBig(p.Value),
		rlpString(p.Data),
	}

	// Signing payload: (..., chainID, 0, 0)
	signItems := append(append([][]byte{}, base...),
		rlpBig(p.ChainID), rlpString(nil), rlpString(nil))
	sigHash := keccak256(rlpList(signItems))

	// Compact signature layout is [header, r(32), s(32)] with
	// header = 27 + recovery id.
	compact := btcecdsa.SignCompact(key, sigHash, false)
	recID := int64(compact[0]) - 27
	r := new(big.Int).SetBytes(compact[1:33])
	s := new(big.Int).SetBytes(compact[33:65])

	v := new(big.Int).Mul(p.ChainID, big.NewInt(2))
	v.Add(v, big.NewInt(35+recID))

	signed := append(append([][]byte{}, base...),
		rlpBig(v), rlpBig(r), rlpBig(s))
	raw := rlpList(signed)

	return raw, "0x" + hex.EncodeToString(keccak256(raw)), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// rlpString encodes a byte string.
func rlpString(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	return append(rlpLength(len(b), 0x80), b...)
}

// rlpList encodes a list of already-encoded items.
func rlpList(items [][]byte) []byte {
	var payload []byte
	for _, item := range items {
		payload = append(payload, item...)
	}
	return append(rlpLength(len(payload), 0xc0), payload...)
}

// rlpLength encodes a length header with the given offset.
func rlpLength(n int, offset byte) []byte {
	if n < 56 {
		return []byte{offset + byte(n)}
	}
	sizeBytes := bigEndianTrimmed(uint64(n))
	header := []byte{offset + 55 + byte(len(sizeBytes))}
	return append(header, sizeBytes...)
}

// rlpUint encodes an unsigned integer as a minimal big-endian string.
func rlpUint(v uint64) []byte {
	return rlpString(bigEndianTrimmed(v))
}

// rlpBig encodes a non-negative big integer as a minimal big-endian string.
func rlpBig(v *big.Int) []byte {
	if v == nil || v.Sign() == 0 {
		return rlpString(nil)
	}
	return rlpString(v.Bytes())
}

// bigEndianTrimmed returns v in big-endian with leading zeros stripped;
// zero encodes as empty.
func bigEndianTrimmed(v uint64) []byte {
	if v == 0 {
		return nil
	}
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	i := 0
	for buf[i] == 0 {
		i++
	}
	return buf[i:]
}
