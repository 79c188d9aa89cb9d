package referenda

import (
	"context"
	"math/big"
	"strings"
	"time"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/utils"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const originsType = "Origins"

var tipperOrigins = map[chains.TipperTrack]string{
	chains.SmallTipper: "SmallTipper",
	chains.BigTipper:   "BigTipper",
}

// ResolveTrack returns the track a referendum will be submitted on. A tipper
// track wins when one is selected. Otherwise the treasurer track is used
// while no value is known, and the spender track able to spend value after.
func ResolveTrack(ctx context.Context, gov Governance, value *big.Int, tipperTrack chains.TipperTrack) (*ResolvedTrack, error) {
	const op errors.Op = "referenda.ResolveTrack"

	if originValue, ok := tipperOrigins[tipperTrack]; ok {
		id, _ := chains.TrackID(tipperTrack)
		track, err := gov.TrackByID(ctx, id)
		if err != nil {
			return nil, errors.E(op, err)
		}
		if track == nil {
			return nil, errors.E(op, errors.NotExist, errors.Errorf("couldn't find track for %s", tipperTrack))
		}
		return &ResolvedTrack{
			Track:  track,
			Origin: Origin{Type: originsType, Value: originValue},
		}, nil
	}

	if value == nil || value.Sign() == 0 {
		track, err := gov.TrackByName(ctx, string(chains.Treasurer))
		if err != nil {
			return nil, errors.E(op, err)
		}
		if track == nil {
			return nil, errors.E(op, errors.NotExist, utils.ErrTrackNotFound)
		}
		return &ResolvedTrack{
			Track:  track,
			Origin: Origin{Type: originsType, Value: "Treasurer"},
		}, nil
	}

	resolved, err := gov.SpenderTrack(ctx, value)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if resolved == nil || resolved.Track == nil {
		return nil, errors.E(op, errors.NotExist, utils.ErrTrackNotFound)
	}
	return resolved, nil
}

// DecisionDeposit is the track's decision deposit less the submission
// deposit, never below zero.
func DecisionDeposit(track *Track, submissionDeposit *big.Int) *big.Int {
	deposit := new(big.Int)
	if track == nil || track.DecisionDeposit == nil {
		return deposit
	}
	deposit.Set(track.DecisionDeposit)
	if submissionDeposit != nil {
		deposit.Sub(deposit, submissionDeposit)
	}
	if deposit.Sign() < 0 {
		log.Warnf("Track %s decision deposit %v is below the submission deposit %v",
			track.Name, track.DecisionDeposit, submissionDeposit)
		deposit.SetInt64(0)
	}
	return deposit
}

// ReferendaDuration is the number of blocks from submission to enactment
// when the referendum passes as quickly as the track allows.
func ReferendaDuration(track *Track) uint64 {
	if track == nil {
		return 0
	}
	return uint64(track.PreparePeriod) + uint64(track.DecisionPeriod) +
		uint64(track.ConfirmPeriod) + uint64(track.MinEnactmentPeriod)
}

// Duration converts ReferendaDuration into wall time.
func Duration(track *Track, blockLength time.Duration) time.Duration {
	return time.Duration(ReferendaDuration(track)) * blockLength
}

// FormatTrackName turns an on-chain track name into display text.
func FormatTrackName(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

// TrackTitle is FormatTrackName in title case, e.g. "Small Tipper".
func TrackTitle(name string) string {
	return cases.Title(language.Und).String(FormatTrackName(name))
}
