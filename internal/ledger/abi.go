package ledger

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Minimal contract-ABI codec for the fixed call surface this client uses:
// ERC-20 metadata reads, balanceOf, and the vesting manager's
// vestingSchedules / release functions. All arguments are addresses, all
// return words are 32 bytes.

const wordSize = 32

// keccak256 hashes data with legacy Keccak-256 (the EVM hash).
func keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// selector returns the 4-byte function selector for a canonical signature
// such as "balanceOf(address)".
func selector(signature string) []byte {
	return keccak256([]byte(signature))[:4]
}

// encodeCall builds calldata for a function taking only address arguments.
func encodeCall(signature string, addrs ...string) ([]byte, error) {
	data := selector(signature)
	for _, a := range addrs {
		word, err := addressWord(a)
		if err != nil {
			return nil, err
		}
		data = append(data, word...)
	}
	return data, nil
}

// addressWord left-pads a 20-byte address into a 32-byte ABI word.
func addressWord(addr string) ([]byte, error) {
	if !ValidAddress(addr) {
		return nil, fmt.Errorf("invalid address %q", addr)
	}
	raw, err := hex.DecodeString(addr[2:])
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", addr, err)
	}
	word := make([]byte, wordSize)
	copy(word[wordSize-len(raw):], raw)
	return word, nil
}

// decodeReturn strips the 0x prefix and decodes an eth_call result.
func decodeReturn(hexData string) ([]byte, error) {
	s := strings.TrimPrefix(hexData, "0x")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

// wordAt returns the 32-byte word at index i, or an error if out of range.
func wordAt(data []byte, i int) ([]byte, error) {
	start := i * wordSize
	if len(data) < start+wordSize {
		return nil, fmt.Errorf("return data too short: want word %d, have %d bytes", i, len(data))
	}
	return data[start : start+wordSize], nil
}

// uintWord interprets a 32-byte word as an unsigned big integer.
func uintWord(data []byte, i int) (*big.Int, error) {
	w, err := wordAt(data, i)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(w), nil
}

// decodeString decodes a single dynamic-string return value
// (offset word, length word, then packed bytes).
func decodeString(data []byte) (string, error) {
	offset, err := uintWord(data, 0)
	if err != nil {
		return "", err
	}
	if !offset.IsInt64() || offset.Int64()+wordSize > int64(len(data)) {
		return "", fmt.Errorf("string offset out of range")
	}
	o := int(offset.Int64())

	length := new(big.Int).SetBytes(data[o : o+wordSize])
	if !length.IsInt64() || o+wordSize+int(length.Int64()) > len(data) {
		return "", fmt.Errorf("string length out of range")
	}
	n := int(length.Int64())

	return string(data[o+wordSize : o+wordSize+n]), nil
}

// hexQuantity parses a JSON-RPC quantity ("0x5208") into a big integer.
func hexQuantity(s string) (*big.Int, error) {
	t := strings.TrimPrefix(s, "0x")
	if t == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(t, 16)
	if !ok {
		return nil, fmt.Errorf("malformed quantity %q", s)
	}
	return v, nil
}

// hexUint64 parses a JSON-RPC quantity into uint64.
func hexUint64(s string) (uint64, error) {
	v, err := hexQuantity(s)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("quantity %q overflows uint64", s)
	}
	return v.Uint64(), nil
}
