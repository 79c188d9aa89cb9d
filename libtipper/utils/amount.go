package utils

import (
	"math"
	"math/big"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// printer groups thousands with commas the same way regardless of the host
// locale so previews stay byte-identical across machines.
var printer = message.NewPrinter(language.English)

// pow10 returns 10^decimals as a big integer.
func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// TokenToPlanck converts a whole-token amount into the chain's smallest unit,
// rounding half away from zero. Non-finite or negative input yields nil.
func TokenToPlanck(tokens float64, decimals uint8) *big.Int {
	if math.IsNaN(tokens) || math.IsInf(tokens, 0) || tokens < 0 {
		return nil
	}

	f := new(big.Float).SetPrec(256).SetFloat64(tokens)
	f.Mul(f, new(big.Float).SetPrec(256).SetInt(pow10(decimals)))
	f.Add(f, big.NewFloat(0.5))

	planck, _ := f.Int(nil)
	return planck
}

// PlanckToToken converts an amount in the smallest unit into whole tokens.
func PlanckToToken(planck *big.Int, decimals uint8) float64 {
	if planck == nil {
		return 0
	}
	f := new(big.Float).SetPrec(256).SetInt(planck)
	f.Quo(f, new(big.Float).SetPrec(256).SetInt(pow10(decimals)))
	v, _ := f.Float64()
	return v
}

// FormatToken renders planck as "<amount> <symbol>" with at most four
// fraction digits. A nil amount renders as an empty string.
func FormatToken(planck *big.Int, decimals uint8, symbol string) string {
	if planck == nil {
		return ""
	}
	v := PlanckToToken(planck, decimals)
	return printer.Sprintf("%v %s", number.Decimal(v, number.MaxFractionDigits(4)), symbol)
}

// FormatCurrency renders a fiat value with two to maxFractionDigits fraction
// digits. The dollar sign is prefixed, any other symbol is suffixed.
func FormatCurrency(value *float64, symbol string, maxFractionDigits int) string {
	if value == nil {
		return ""
	}
	if maxFractionDigits < 2 {
		maxFractionDigits = 2
	}

	valueStr := printer.Sprint(number.Decimal(*value,
		number.MinFractionDigits(2), number.MaxFractionDigits(maxFractionDigits)))
	if symbol == "$" {
		return "$" + valueStr
	}
	return valueStr + " " + symbol
}

// FormatUSD is FormatCurrency for US dollars.
func FormatUSD(value *float64) string {
	return FormatCurrency(value, "$", 2)
}

// FormatNumber groups thousands and keeps up to three fraction digits.
func FormatNumber(value float64) string {
	return printer.Sprint(number.Decimal(value, number.MaxFractionDigits(3)))
}

// FormatInteger rounds value to the nearest integer and groups thousands.
func FormatInteger(value float64) string {
	return printer.Sprint(number.Decimal(math.Round(value), number.MaxFractionDigits(0)))
}
