package amount

import (
	"errors"
	"math/big"
	"testing"
)

func TestDecode_BasicPlacement(t *testing.T) {
	cases := []struct {
		raw      string
		decimals int
		want     string
	}{
		{"0", 18, "0"},
		{"1000000000", 9, "1"},
		{"5", 9, "0.000000005"},
		{"1500000000", 9, "1.5"},
		{"123", 0, "123"},
		{"1234567", 3, "1234.567"},
		{"1000000000000000000", 18, "1"},
		// Exceeds float64's exact-integer range; must stay exact
		{"123456789012345678901234567", 18, "123456789.012345678901234567"},
	}

	for _, tc := range cases {
		raw, ok := new(big.Int).SetString(tc.raw, 10)
		if !ok {
			t.Fatalf("bad test input %q", tc.raw)
		}
		got, err := Decode(raw, tc.decimals)
		if err != nil {
			t.Fatalf("Decode(%s, %d): %v", tc.raw, tc.decimals, err)
		}
		if got != tc.want {
			t.Errorf("Decode(%s, %d) = %q, want %q", tc.raw, tc.decimals, got, tc.want)
		}
	}
}

func TestDecode_InvalidInputs(t *testing.T) {
	if _, err := Decode(big.NewInt(-1), 9); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative raw: got %v, want ErrInvalidAmount", err)
	}
	if _, err := Decode(big.NewInt(1), -1); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative decimals: got %v, want ErrInvalidAmount", err)
	}
	if _, err := Decode(nil, 9); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("nil raw: got %v, want ErrInvalidAmount", err)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	cases := []struct {
		raw      string
		decimals int
	}{
		{"0", 0},
		{"0", 18},
		{"5", 9},
		{"1000000000", 9},
		{"1", 18},
		{"999999999999999999999999999", 18},
		{"123456789012345678901234567", 6},
	}

	for _, tc := range cases {
		raw, _ := new(big.Int).SetString(tc.raw, 10)
		dec, err := Decode(raw, tc.decimals)
		if err != nil {
			t.Fatalf("Decode(%s, %d): %v", tc.raw, tc.decimals, err)
		}
		back, err := Encode(dec, tc.decimals)
		if err != nil {
			t.Fatalf("Encode(%q, %d): %v", dec, tc.decimals, err)
		}
		if back.Cmp(raw) != 0 {
			t.Errorf("round trip (%s, %d): got %s via %q", tc.raw, tc.decimals, back, dec)
		}
	}
}

func TestEncode_TooManyFractionalDigits(t *testing.T) {
	if _, err := Encode("0.0001", 3); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("got %v, want ErrInvalidAmount", err)
	}
}

func TestFormat_DisplayPolicy(t *testing.T) {
	cases := []struct {
		dec  string
		want string
	}{
		{"0", "0"},
		{"0.000000005", "5.00e-09"},
		{"0.009", "9.00e-03"},
		{"0.01", "0.01"},
		{"1", "1"},
		{"1.5", "1.5"},
		{"1234.5", "1,234.5"},
		{"999999.99", "999,999.99"},
		{"1000000", "1.00M"},
		{"1500000", "1.50M"},
		{"250000000", "250.00M"},
	}

	for _, tc := range cases {
		if got := Format(tc.dec); got != tc.want {
			t.Errorf("Format(%q) = %q, want %q", tc.dec, got, tc.want)
		}
	}
}

func TestFormat_BoundaryFromSpecScenario(t *testing.T) {
	// 1_000_000_000 base units at 9 decimals is exactly one whole token.
	dec, err := Decode(big.NewInt(1_000_000_000), 9)
	if err != nil {
		t.Fatal(err)
	}
	if got := Format(dec); got != "1" {
		t.Errorf("Format = %q, want %q", got, "1")
	}

	// 5 base units at 9 decimals is far below the exponential threshold.
	dec, err = Decode(big.NewInt(5), 9)
	if err != nil {
		t.Fatal(err)
	}
	if dec != "0.000000005" {
		t.Fatalf("Decode = %q", dec)
	}
	if got := Format(dec); got != "5.00e-09" {
		t.Errorf("Format = %q, want %q", got, "5.00e-09")
	}
}
