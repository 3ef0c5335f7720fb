package chain

import (
	"math/big"
	"strings"

	"github.com/u2kpay/backend/internal/errs"
)

// DefaultDecimals is the fixed-point precision of both the U2K token and the
// native currency minor unit (wei).
const DefaultDecimals = 18

var pow10 = func() []*big.Int {
	out := make([]*big.Int, DefaultDecimals+1)
	for i := range out {
		out[i] = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(i)), nil)
	}
	return out
}()

func scale(decimals int) *big.Int {
	if decimals >= 0 && decimals <= DefaultDecimals {
		return pow10[decimals]
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// ToTokenUnits converts a human decimal string ("0.5") into the token's
// fixed-point integer representation. The conversion is scaled-integer
// arithmetic end to end; floats are never involved, so repeated round-trips
// cannot drift. Negative, malformed, and over-precise inputs are rejected.
func ToTokenUnits(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, errs.Validationf("invalid token decimals %d", decimals)
	}
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, errs.Validationf("amount is required")
	}
	if strings.HasPrefix(s, "-") {
		return nil, errs.Validationf("amount must not be negative: %q", amount)
	}
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return nil, errs.Validationf("malformed amount %q", amount)
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, errs.Validationf("malformed amount %q", amount)
	}
	if len(frac) > decimals {
		return nil, errs.Validationf("amount %q has more than %d decimal places", amount, decimals)
	}

	w, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, errs.Validationf("malformed amount %q", amount)
	}
	w.Mul(w, scale(decimals))

	if frac != "" {
		// Pad the fractional part out to full precision before adding.
		f, ok := new(big.Int).SetString(frac, 10)
		if !ok {
			return nil, errs.Validationf("malformed amount %q", amount)
		}
		f.Mul(f, scale(decimals-len(frac)))
		w.Add(w, f)
	}
	return w, nil
}

// FromTokenUnits renders a fixed-point integer back to a human decimal
// string, trimming trailing zeros ("500000000000000000" -> "0.5").
func FromTokenUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)

	q, r := new(big.Int).QuoRem(abs, scale(decimals), new(big.Int))
	out := q.String()
	if r.Sign() != 0 {
		frac := r.String()
		for len(frac) < decimals {
			frac = "0" + frac
		}
		frac = strings.TrimRight(frac, "0")
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// ToWei converts a human decimal amount of native currency to wei.
func ToWei(amount string) (*big.Int, error) {
	return ToTokenUnits(amount, DefaultDecimals)
}

// FromWei converts wei back to a human decimal string.
func FromWei(v *big.Int) string {
	return FromTokenUnits(v, DefaultDecimals)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
