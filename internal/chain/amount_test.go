package chain

import (
	"math/big"
	"testing"

	"github.com/u2kpay/backend/internal/errs"
)

func TestToTokenUnits(t *testing.T) {
	tests := []struct {
		input    string
		decimals int
		expected string
	}{
		{"0.5", 18, "500000000000000000"},
		{"1", 18, "1000000000000000000"},
		{"1.0", 18, "1000000000000000000"},
		{"0", 18, "0"},
		{"0.000000000000000001", 18, "1"},
		{"123.456", 18, "123456000000000000000"},
		{"42", 6, "42000000"},
		{"0.25", 6, "250000"},
		{".5", 18, "500000000000000000"},
		{"7.", 18, "7000000000000000000"},
		{"+2", 18, "2000000000000000000"},
		{"1000000000", 18, "1000000000000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ToTokenUnits(tt.input, tt.decimals)
			if err != nil {
				t.Fatalf("ToTokenUnits(%q, %d) error: %v", tt.input, tt.decimals, err)
			}
			if got.String() != tt.expected {
				t.Errorf("ToTokenUnits(%q, %d) = %s, want %s", tt.input, tt.decimals, got, tt.expected)
			}
		})
	}
}

func TestToTokenUnitsRejects(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals int
	}{
		{"negative", "-1", 18},
		{"negative fraction", "-0.5", 18},
		{"empty", "", 18},
		{"whitespace", "   ", 18},
		{"bare dot", ".", 18},
		{"letters", "abc", 18},
		{"exponent", "1e18", 18},
		{"infinity", "Inf", 18},
		{"nan", "NaN", 18},
		{"two dots", "1.2.3", 18},
		{"over-precise", "0.1234567", 6},
		{"comma", "1,5", 18},
		{"hex", "0x10", 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToTokenUnits(tt.input, tt.decimals)
			if err == nil {
				t.Fatalf("ToTokenUnits(%q, %d) accepted invalid input", tt.input, tt.decimals)
			}
			if !errs.IsValidation(err) {
				t.Errorf("error kind = %v, want validation", errs.KindOf(err))
			}
		})
	}
}

func TestFromTokenUnits(t *testing.T) {
	tests := []struct {
		input    string
		decimals int
		expected string
	}{
		{"500000000000000000", 18, "0.5"},
		{"1000000000000000000", 18, "1"},
		{"0", 18, "0"},
		{"1", 18, "0.000000000000000001"},
		{"123456000000000000000", 18, "123.456"},
		{"250000", 6, "0.25"},
		{"-1500000000000000000", 18, "-1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, _ := new(big.Int).SetString(tt.input, 10)
			if got := FromTokenUnits(v, tt.decimals); got != tt.expected {
				t.Errorf("FromTokenUnits(%s, %d) = %q, want %q", tt.input, tt.decimals, got, tt.expected)
			}
		})
	}

	if got := FromTokenUnits(nil, 18); got != "0" {
		t.Errorf("FromTokenUnits(nil) = %q, want 0", got)
	}
}

// Round-trip exactness: for any fixed-point value, converting to a decimal
// string and back yields the identical integer.
func TestRoundTripExactness(t *testing.T) {
	values := []string{
		"0", "1", "999", "500000000000000000", "1000000000000000000",
		"123456789012345678", "100000000000000000000000000",
		"333333333333333333",
	}
	for _, s := range values {
		v, _ := new(big.Int).SetString(s, 10)
		human := FromTokenUnits(v, 18)
		back, err := ToTokenUnits(human, 18)
		if err != nil {
			t.Fatalf("round trip of %s via %q failed: %v", s, human, err)
		}
		if back.Cmp(v) != 0 {
			t.Errorf("round trip of %s via %q = %s", s, human, back)
		}
	}
}

func TestWeiHelpers(t *testing.T) {
	wei, err := ToWei("0.5")
	if err != nil {
		t.Fatal(err)
	}
	if wei.String() != "500000000000000000" {
		t.Errorf("ToWei(0.5) = %s", wei)
	}
	if got := FromWei(wei); got != "0.5" {
		t.Errorf("FromWei = %q, want 0.5", got)
	}
}
