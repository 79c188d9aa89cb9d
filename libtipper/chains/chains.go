// Package chains holds the static parameters of the relay chains the tip
// wizard can target.
package chains

import (
	"math/big"
	"strings"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper/utils"
)

// ChainType identifies a supported relay chain.
type ChainType string

const (
	KSM ChainType = "KSM"
	DOT ChainType = "DOT"
)

// TipperTrack is the name of one of the governance tracks a tip can target.
type TipperTrack string

const (
	SmallTipper TipperTrack = "small_tipper"
	BigTipper   TipperTrack = "big_tipper"
	Treasurer   TipperTrack = "treasurer"
)

// Fixed on-chain track identifiers.
const (
	TreasurerTrackID   uint16 = 11
	SmallTipperTrackID uint16 = 30
	BigTipperTrackID   uint16 = 31
)

// Params describes a chain's token and the limits applied to tips on it.
type Params struct {
	Type        ChainType
	Name        string
	Symbol      string
	Decimals    uint8
	KrakenPair  string
	SS58Prefix  uint16
	BlockLength int64 // seconds

	// Tip limits in whole tokens.
	SmallTipperLimit float64
	BigTipperLimit   float64
}

// Thresholds are the tipper limits in planck.
type Thresholds struct {
	SmallTipper *big.Int
	BigTipper   *big.Int
}

var params = map[ChainType]*Params{
	KSM: {
		Type:             KSM,
		Name:             "Kusama",
		Symbol:           "KSM",
		Decimals:         12,
		KrakenPair:       "KSMUSD",
		SS58Prefix:       2,
		BlockLength:      6,
		SmallTipperLimit: 8.25,
		BigTipperLimit:   33.33,
	},
	DOT: {
		Type:             DOT,
		Name:             "Polkadot",
		Symbol:           "DOT",
		Decimals:         10,
		KrakenPair:       "DOTUSD",
		SS58Prefix:       0,
		BlockLength:      6,
		SmallTipperLimit: 250,
		BigTipperLimit:   1000,
	},
}

// DefaultChain is used when no chain has been selected yet.
const DefaultChain = KSM

// Supported returns every chain the wizard can target in a stable order.
func Supported() []ChainType {
	return []ChainType{KSM, DOT}
}

// Lookup returns the parameters for chain.
func Lookup(chain ChainType) (*Params, error) {
	p, ok := params[chain]
	if !ok {
		return nil, errors.E(errors.Invalid, utils.ErrUnknownChain)
	}
	return p, nil
}

// ParseChain converts a user supplied chain symbol into a ChainType.
func ParseChain(s string) (ChainType, error) {
	chain := ChainType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := params[chain]; !ok {
		return "", errors.E(errors.Invalid, utils.ErrUnknownChain)
	}
	return chain, nil
}

// Thresholds returns the tipper limits converted into planck.
func (p *Params) Thresholds() Thresholds {
	return Thresholds{
		SmallTipper: utils.TokenToPlanck(p.SmallTipperLimit, p.Decimals),
		BigTipper:   utils.TokenToPlanck(p.BigTipperLimit, p.Decimals),
	}
}

// ToPlanck converts whole tokens into planck for this chain.
func (p *Params) ToPlanck(tokens float64) *big.Int {
	return utils.TokenToPlanck(tokens, p.Decimals)
}

// ToToken converts planck into whole tokens for this chain.
func (p *Params) ToToken(planck *big.Int) float64 {
	return utils.PlanckToToken(planck, p.Decimals)
}

// FormatToken renders planck with the chain's symbol.
func (p *Params) FormatToken(planck *big.Int) string {
	return utils.FormatToken(planck, p.Decimals, p.Symbol)
}

// TrackID returns the on-chain identifier of a tipper track.
func TrackID(track TipperTrack) (uint16, bool) {
	switch track {
	case SmallTipper:
		return SmallTipperTrackID, true
	case BigTipper:
		return BigTipperTrackID, true
	case Treasurer:
		return TreasurerTrackID, true
	}
	return 0, false
}
