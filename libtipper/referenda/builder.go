package referenda

import (
	"context"
	"math/big"
	"strconv"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/tip"
)

// DummySigner is the development account fees are estimated against when no
// account has been selected yet.
const DummySigner = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

// Builder constructs the tip referendum transactions for one chain.
type Builder struct {
	Client ChainClient
	Gov    Governance
	Params *chains.Params
}

// NewBuilder returns a Builder for the chain described by params.
func NewBuilder(client ChainClient, gov Governance, params *chains.Params) *Builder {
	return &Builder{Client: client, Gov: gov, Params: params}
}

// proposal builds the treasury spend call(s) for form and its explanation.
func (b *Builder) proposal(form *tip.ValidatedForm, spends *tip.SpendAmounts) (*Call, Explanation) {
	call := b.Client.TreasurySpend(form.Beneficiary, spends.Tip)

	referral, referralFee := "None", "None"
	if form.HasReferral() && spends.Referral.Sign() > 0 {
		referralCall := b.Client.TreasurySpend(form.Referral, spends.Referral)
		call = b.Client.BatchAll(call, referralCall)
		referral = form.Referral
		referralFee = strconv.FormatFloat(form.ReferralFeePercent, 'f', -1, 64) + "%"
	}

	return call, Explanation{
		Text: "Treasury spend referendum",
		Params: map[string]interface{}{
			"beneficiary": form.Beneficiary,
			"amount":      b.Params.FormatToken(spends.Tip),
			"referral":    referral,
			"referralFee": referralFee,
		},
	}
}

// topUp returns how much the beneficiary must receive to hold the recipient
// deposit. Unknown accounts are not topped up.
func (b *Builder) topUp(ctx context.Context, beneficiary string) (*big.Int, error) {
	deposit, err := b.Client.RecipientDeposit(ctx)
	if err != nil {
		return nil, err
	}
	free, exists, err := b.Client.FreeBalance(ctx, beneficiary)
	if err != nil {
		return nil, err
	}
	if !exists || deposit == nil {
		return new(big.Int), nil
	}
	if free == nil {
		free = new(big.Int)
	}
	return new(big.Int).Sub(deposit, free), nil
}

// BuildCreationTx assembles the referendum creation transaction. A nil
// descriptor without error means there is nothing to submit yet: no form, no
// rate or a tip that rounds to nothing.
func (b *Builder) BuildCreationTx(ctx context.Context, form *tip.ValidatedForm, rate *float64) (*TxDescriptor, error) {
	const op errors.Op = "referenda.BuildCreationTx"

	if form == nil || form.Beneficiary == "" {
		return nil, nil
	}
	spends := tip.SpendAmountsFor(form, rate, b.Params)
	if spends == nil {
		return nil, nil
	}

	proposal, proposalExplanation := b.proposal(form, spends)

	resolved, err := ResolveTrack(ctx, b.Gov, spends.Total, form.Track)
	if err != nil {
		return nil, errors.E(op, err)
	}

	amount, err := b.topUp(ctx, form.Beneficiary)
	if err != nil {
		return nil, errors.E(op, err)
	}

	var calls []*TxDescriptor
	if amount.Sign() > 0 {
		calls = append(calls, &TxDescriptor{
			Tx: b.Client.TransferKeepAlive(form.Beneficiary, amount),
			Explanation: Explanation{
				Text: "Transfer balance to curator",
				Params: map[string]interface{}{
					"destination": form.Beneficiary,
					"value":       b.Params.FormatToken(amount),
				},
			},
		})
	}

	calls = append(calls, &TxDescriptor{
		Tx: b.Gov.CreateReferendum(resolved.Origin, proposal),
		Explanation: Explanation{
			Text: "Create referendum",
			Params: map[string]interface{}{
				"track": FormatTrackName(resolved.Track.Name),
				"call":  proposalExplanation,
			},
		},
	})

	if len(calls) == 1 {
		return calls[0], nil
	}

	inner := make([]*Call, 0, len(calls))
	params := make(map[string]interface{}, len(calls))
	for i, c := range calls {
		inner = append(inner, c.Tx)
		params[strconv.Itoa(i)] = c.Explanation
	}
	return &TxDescriptor{
		Tx:          b.Client.BatchAll(inner...),
		Explanation: Explanation{Text: "batch", Params: params},
	}, nil
}

// BuildDecisionDepositTx builds the decision deposit for referendum index.
func (b *Builder) BuildDecisionDepositTx(index uint32) *TxDescriptor {
	return &TxDescriptor{
		Tx: b.Client.PlaceDecisionDeposit(index),
		Explanation: Explanation{
			Text: "Place decision deposit",
			Params: map[string]interface{}{
				"index": strconv.FormatUint(uint64(index), 10),
			},
		},
	}
}

// EstimateFees estimates the fee of creating the referendum for form when
// signed by from, DummySigner if empty. It reports zero while there is
// nothing to submit.
func (b *Builder) EstimateFees(ctx context.Context, form *tip.ValidatedForm, rate *float64, from string) (*big.Int, error) {
	const op errors.Op = "referenda.EstimateFees"

	if form == nil || form.Beneficiary == "" {
		return new(big.Int), nil
	}
	spends := tip.SpendAmountsFor(form, rate, b.Params)
	if spends == nil {
		return new(big.Int), nil
	}
	if from == "" {
		from = DummySigner
	}

	proposal, _ := b.proposal(form, spends)
	resolved, err := ResolveTrack(ctx, b.Gov, spends.Total, form.Track)
	if err != nil {
		return nil, errors.E(op, err)
	}

	fees, err := b.Client.EstimateFees(ctx, b.Gov.CreateReferendum(resolved.Origin, proposal), from)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return fees, nil
}
