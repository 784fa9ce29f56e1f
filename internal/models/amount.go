package models

import (
	"math/big"
	"strings"
)

// FormatAmount renders a raw base-unit amount as a human-readable decimal
// string. Whole-token amounts drop the fraction; sub-token amounts keep four
// fractional digits. Unparseable input comes back unchanged.
func FormatAmount(raw string, decimals int) string {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || decimals <= 0 {
		return raw
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, fraction := new(big.Int).QuoRem(value, divisor, new(big.Int))

	if whole.Sign() != 0 {
		return whole.String()
	}

	fractionStr := fraction.String()
	if pad := decimals - len(fractionStr); pad > 0 {
		fractionStr = strings.Repeat("0", pad) + fractionStr
	}
	if len(fractionStr) > 4 {
		fractionStr = fractionStr[:4]
	}
	return "0." + fractionStr
}
