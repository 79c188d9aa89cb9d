package tip

import (
	"math/big"

	"github.com/crypto-power/tipwizard/libtipper/chains"
)

// Category is the size class of a tip.
type Category int

const (
	// CategoryIndeterminate means no amount or no conversion rate yet.
	CategoryIndeterminate Category = iota
	CategorySmall
	CategoryBig
	// CategoryTooLarge blocks submission on the tipper tracks.
	CategoryTooLarge
)

func (c Category) String() string {
	switch c {
	case CategorySmall:
		return "Small Tipper"
	case CategoryBig:
		return "Big Tipper"
	case CategoryTooLarge:
		return "Too Large"
	default:
		return "Indeterminate"
	}
}

// Track returns the tipper track a category is submitted on.
func (c Category) Track() (chains.TipperTrack, bool) {
	switch c {
	case CategorySmall:
		return chains.SmallTipper, true
	case CategoryBig:
		return chains.BigTipper, true
	}
	return "", false
}

// Classify maps a planck amount onto a category. An amount exactly at a
// limit belongs to the lower category.
func Classify(amount *big.Int, th chains.Thresholds) Category {
	if amount == nil || amount.Sign() <= 0 || th.SmallTipper == nil || th.BigTipper == nil {
		return CategoryIndeterminate
	}

	switch {
	case amount.Cmp(th.SmallTipper) <= 0:
		return CategorySmall
	case amount.Cmp(th.BigTipper) <= 0:
		return CategoryBig
	default:
		return CategoryTooLarge
	}
}

// ClassifyToken classifies a whole-token amount, nil while the rate is
// unknown.
func ClassifyToken(tokens *float64, params *chains.Params) Category {
	if tokens == nil {
		return CategoryIndeterminate
	}
	return Classify(params.ToPlanck(*tokens), params.Thresholds())
}

// AutoTrack picks the tipper track written back into the form whenever the
// amount changes. Amounts above the big tipper limit still map to the big
// tipper track and are blocked by the submit gate instead.
func AutoTrack(tokens *float64, params *chains.Params) chains.TipperTrack {
	if ClassifyToken(tokens, params) >= CategoryBig {
		return chains.BigTipper
	}
	return chains.SmallTipper
}
