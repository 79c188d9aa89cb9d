package tip

import (
	"math/big"

	"github.com/crypto-power/tipwizard/libtipper/chains"
)

// PriceTotals is the monetary breakdown of a draft.
type PriceTotals struct {
	TipAmount   float64
	ReferralFee float64
	TotalAmount float64
	// TotalAmountToken is nil while no conversion rate is available.
	TotalAmountToken *float64
}

// CalculatePriceTotals converts the draft's reference currency amounts into
// the chain token using rate. The rate is passed in by the caller, never read
// from shared state.
func CalculatePriceTotals(draft *FormDraft, rate *float64) PriceTotals {
	var totals PriceTotals
	if draft != nil {
		totals.TipAmount, _ = ParseNumber(draft.TipAmount)
		feePercent, _ := ParseNumber(draft.ReferralFeePercent)
		totals.ReferralFee = totals.TipAmount * feePercent / 100
	}
	totals.TotalAmount = totals.TipAmount + totals.ReferralFee

	if rate != nil && *rate > 0 {
		token := totals.TotalAmount / *rate
		totals.TotalAmountToken = &token
	}
	return totals
}

// SpendAmounts are the planck amounts of the treasury spends for a validated
// form.
type SpendAmounts struct {
	Tip      *big.Int
	Referral *big.Int
	Total    *big.Int
}

// SpendAmountsFor converts a validated form into planck amounts at rate.
// It returns nil when the rate is unknown or the tip rounds to nothing.
func SpendAmountsFor(form *ValidatedForm, rate *float64, params *chains.Params) *SpendAmounts {
	if form == nil || rate == nil || *rate <= 0 {
		return nil
	}

	tip := params.ToPlanck(form.Amount / *rate)
	if tip == nil || tip.Sign() <= 0 {
		return nil
	}

	referral := new(big.Int)
	if form.HasReferral() {
		fee := params.ToPlanck(form.Amount * form.ReferralFeePercent / 100 / *rate)
		if fee != nil {
			referral = fee
		}
	}

	return &SpendAmounts{
		Tip:      tip,
		Referral: referral,
		Total:    new(big.Int).Add(tip, referral),
	}
}
