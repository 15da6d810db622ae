package ledger

import (
	"bytes"
	"encoding/hex"
	"testing"
)

const (
	addrA = "0x00000000000000000000000000000000000000aa"
	addrB = "0x1111111111111111111111111111111111111111"
)

func TestSelector(t *testing.T) {
	// Known ERC-20 selectors.
	cases := []struct {
		signature string
		want      string
	}{
		{"name()", "06fdde03"},
		{"symbol()", "95d89b41"},
		{"decimals()", "313ce567"},
		{"balanceOf(address)", "70a08231"},
		{"transfer(address,uint256)", "a9059cbb"},
	}

	for _, tc := range cases {
		got := hex.EncodeToString(selector(tc.signature))
		if got != tc.want {
			t.Errorf("selector(%q) = %s, want %s", tc.signature, got, tc.want)
		}
	}
}

func TestEncodeCall(t *testing.T) {
	data, err := encodeCall("balanceOf(address)", addrB)
	if err != nil {
		t.Fatalf("encodeCall failed: %v", err)
	}

	if len(data) != 4+wordSize {
		t.Fatalf("calldata length = %d, want %d", len(data), 4+wordSize)
	}
	if hex.EncodeToString(data[:4]) != "70a08231" {
		t.Errorf("selector mismatch: %x", data[:4])
	}

	// Address is right-aligned in its word.
	word := data[4:]
	if !bytes.Equal(word[:12], make([]byte, 12)) {
		t.Errorf("address word not left-padded: %x", word)
	}
	if hex.EncodeToString(word[12:]) != addrB[2:] {
		t.Errorf("address word body mismatch: %x", word[12:])
	}
}

func TestEncodeCallTwoAddresses(t *testing.T) {
	data, err := encodeCall("vestingSchedules(address,address)", addrB, addrA)
	if err != nil {
		t.Fatalf("encodeCall failed: %v", err)
	}
	if len(data) != 4+2*wordSize {
		t.Fatalf("calldata length = %d, want %d", len(data), 4+2*wordSize)
	}
}

func TestEncodeCallRejectsBadAddress(t *testing.T) {
	for _, bad := range []string{"", "0x1234", "not-an-address", "0xzz11111111111111111111111111111111111111"} {
		if _, err := encodeCall("balanceOf(address)", bad); err == nil {
			t.Errorf("encodeCall accepted %q", bad)
		}
	}
}

func TestDecodeString(t *testing.T) {
	// offset word (0x20), length word, packed bytes padded to a word.
	payload := "Lab Token"
	data := make([]byte, 3*wordSize)
	data[wordSize-1] = wordSize             // offset
	data[2*wordSize-1] = byte(len(payload)) // length
	copy(data[2*wordSize:], payload)

	got, err := decodeString(data)
	if err != nil {
		t.Fatalf("decodeString failed: %v", err)
	}
	if got != payload {
		t.Errorf("decodeString = %q, want %q", got, payload)
	}
}

func TestDecodeStringOutOfRange(t *testing.T) {
	data := make([]byte, wordSize)
	data[wordSize-1] = 0xff // offset far past the data
	if _, err := decodeString(data); err == nil {
		t.Error("expected error for out-of-range offset")
	}
}

func TestUintWord(t *testing.T) {
	data := make([]byte, 2*wordSize)
	data[wordSize-1] = 7
	data[2*wordSize-2] = 1 // 256

	v, err := uintWord(data, 0)
	if err != nil || v.Int64() != 7 {
		t.Errorf("word 0 = %v, %v", v, err)
	}
	v, err = uintWord(data, 1)
	if err != nil || v.Int64() != 256 {
		t.Errorf("word 1 = %v, %v", v, err)
	}
	if _, err := uintWord(data, 2); err == nil {
		t.Error("expected error for word past end")
	}
}

func TestHexQuantity(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0x0", 0},
		{"0x", 0},
		{"0x5208", 21000},
		{"0x3b9aca00", 1_000_000_000},
	}
	for _, tc := range cases {
		v, err := hexQuantity(tc.in)
		if err != nil {
			t.Errorf("hexQuantity(%q) failed: %v", tc.in, err)
			continue
		}
		if v.Int64() != tc.want {
			t.Errorf("hexQuantity(%q) = %s, want %d", tc.in, v, tc.want)
		}
	}

	if _, err := hexQuantity("0xzz"); err == nil {
		t.Error("expected error for malformed quantity")
	}
}

func TestHexUint64Overflow(t *testing.T) {
	if _, err := hexUint64("0x10000000000000000"); err == nil {
		t.Error("expected overflow error")
	}
}

func TestValidAddress(t *testing.T) {
	if !ValidAddress(addrB) {
		t.Error("valid address rejected")
	}
	for _, bad := range []string{"", "0x", addrB + "11", addrB[:41], "1111111111111111111111111111111111111111"} {
		if ValidAddress(bad) {
			t.Errorf("invalid address accepted: %q", bad)
		}
	}
}
