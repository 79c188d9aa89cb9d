package libtipper

import (
	"context"
	"math/big"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/referenda"
	"github.com/crypto-power/tipwizard/libtipper/tip"
	"github.com/crypto-power/tipwizard/libtipper/txprocess"
	"github.com/crypto-power/tipwizard/libtipper/utils"
)

// Draft returns a copy of the current wizard answers.
func (mgr *TipManager) Draft() *tip.FormDraft {
	mgr.mtx.RLock()
	defer mgr.mtx.RUnlock()
	return mgr.draft.Copy()
}

// SaveDraft replaces the wizard answers and persists them. Pasted HTML in
// the description is converted to markdown and the tipper track follows the
// amount.
func (mgr *TipManager) SaveDraft(draft *tip.FormDraft) (*tip.FormDraft, error) {
	const op errors.Op = "libtipper.SaveDraft"

	if draft == nil {
		return nil, errors.E(op, errors.Invalid, "nil draft")
	}
	draft = draft.Copy()
	draft.TipDescription = tip.NormalizeDescription(draft.TipDescription)

	params := mgr.Chain()
	totals := tip.CalculatePriceTotals(draft, mgr.RateSource.Rate())
	if totals.TotalAmountToken != nil {
		draft.TipperTrack = tip.AutoTrack(totals.TotalAmountToken, params)
	}

	if err := mgr.Forms.Save(draft); err != nil {
		return nil, errors.E(op, err)
	}

	// A transaction built from the previous answers must be reviewed again.
	mgr.mtx.Lock()
	mgr.draft = draft
	mgr.wizard = wizardState{}
	session := mgr.session
	mgr.mtx.Unlock()
	mgr.discardPrepared(session)

	mgr.refreshEstimate()
	return draft.Copy(), nil
}

// ClearDraft resets the wizard to its defaults and dismisses any pending
// transaction.
func (mgr *TipManager) ClearDraft() error {
	const op errors.Op = "libtipper.ClearDraft"

	if err := mgr.Forms.Clear(); err != nil {
		return errors.E(op, err)
	}

	mgr.mtx.Lock()
	mgr.draft = tip.DefaultDraft()
	mgr.wizard = wizardState{}
	session := mgr.session
	session.prepared, session.spends = nil, nil
	mgr.mtx.Unlock()

	if session.sequencer != nil {
		if err := session.sequencer.Reset(); err != nil {
			return errors.E(op, err)
		}
	}
	mgr.refreshEstimate()
	return nil
}

// estimateInput derives the estimator input from the draft at rate.
func estimateInput(draft *tip.FormDraft, rate *float64, params *chains.Params) (chains.TipperTrack, *big.Int) {
	totals := tip.CalculatePriceTotals(draft, rate)
	var value *big.Int
	if totals.TotalAmountToken != nil {
		value = params.ToPlanck(*totals.TotalAmountToken)
	}
	return draft.TipperTrack, value
}

func (mgr *TipManager) refreshEstimate() {
	mgr.mtx.RLock()
	session, draft := mgr.session, mgr.draft
	mgr.mtx.RUnlock()

	if session.estimator == nil {
		return
	}
	track, value := estimateInput(draft, mgr.RateSource.Rate(), session.params)
	session.estimator.Update(track, value)
}

// Estimate returns the current cost estimate. It is nil while calculating
// and while the tip size leaves nothing to submit.
func (mgr *TipManager) Estimate() *referenda.Cost {
	cost, _ := mgr.EstimateWithNote()
	return cost
}

// EstimateWithNote returns the cost estimate, or the reason it is withheld
// when the amount is unknown or too large for the tipper tracks. Both are
// empty while calculating.
func (mgr *TipManager) EstimateWithNote() (*referenda.Cost, string) {
	mgr.mtx.RLock()
	session, draft := mgr.session, mgr.draft
	mgr.mtx.RUnlock()
	if session.estimator == nil {
		return nil, ""
	}

	totals := tip.CalculatePriceTotals(draft, mgr.RateSource.Rate())
	switch tip.ClassifyToken(totals.TotalAmountToken, session.params) {
	case tip.CategoryIndeterminate:
		return nil, tip.ReasonAmountUnknown
	case tip.CategoryTooLarge:
		return nil, tip.ReasonTooLarge
	}
	return session.estimator.Estimate(), ""
}

// validated validates the current draft against the selected chain.
func (mgr *TipManager) validated() (*chainSession, *tip.ValidatedForm, tip.ValidationErrors) {
	mgr.mtx.RLock()
	session, draft := mgr.session, mgr.draft
	mgr.mtx.RUnlock()

	form, errs := tip.Validate(draft, session.params)
	return session, form, errs
}

// EstimateFees computes the creation fees for the current draft, signed by
// the selected account or the dummy signer, and folds them into the
// estimate.
func (mgr *TipManager) EstimateFees(ctx context.Context) (*big.Int, error) {
	const op errors.Op = "libtipper.EstimateFees"

	session, form, errs := mgr.validated()
	if len(errs) > 0 {
		return nil, errors.E(op, errors.Invalid, errs)
	}
	if session.builder == nil {
		return nil, errors.E(op, errors.Invalid, utils.ErrFailedPrecondition)
	}

	rate := mgr.RateSource.Rate()
	fees, err := session.builder.EstimateFees(ctx, form, rate, mgr.Account())
	if err != nil {
		return nil, errors.E(op, err)
	}

	track, value := estimateInput(mgr.Draft(), rate, session.params)
	session.estimator.SetFees(track, value, fees)
	return fees, nil
}

// Review moves the wizard to the review step and builds the creation
// transaction for the current answers. agreed records the return of unused
// funds agreement.
func (mgr *TipManager) Review(ctx context.Context, agreed bool) (*txprocess.ActiveStep, error) {
	const op errors.Op = "libtipper.Review"

	session, form, errs := mgr.validated()
	if len(errs) > 0 {
		return nil, errors.E(op, errors.Invalid, errs)
	}
	if session.sequencer == nil {
		return nil, errors.E(op, errors.Invalid, utils.ErrFailedPrecondition)
	}

	rate := mgr.RateSource.Rate()
	if _, err := session.sequencer.Prepare(ctx, form, rate); err != nil {
		return nil, errors.E(op, err)
	}

	mgr.mtx.Lock()
	session.prepared = form
	session.spends = tip.SpendAmountsFor(form, rate, session.params)
	mgr.wizard = wizardState{reviewStep: true, returnFundsAgreed: agreed}
	mgr.mtx.Unlock()

	return session.sequencer.ActiveStep(), nil
}

// Submit signs and submits step. Referendum creation is only submitted from
// the review step, with every review check of the submit gate passing.
func (mgr *TipManager) Submit(step txprocess.Step) error {
	const op errors.Op = "libtipper.Submit"

	mgr.mtx.RLock()
	session := mgr.session
	reviewed := mgr.wizard.reviewStep && session.prepared != nil
	mgr.mtx.RUnlock()
	if session.sequencer == nil {
		return errors.E(op, errors.Invalid, utils.ErrFailedPrecondition)
	}

	if step == txprocess.StepCreation {
		state := mgr.submitState(true)
		if !state.Enabled {
			kind := errors.Invalid
			if state.InsufficientBalance {
				kind = errors.InsufficientBalance
			}
			return errors.E(op, kind, errors.Errorf("submit disabled: %v", state.Reasons))
		}
		if !reviewed {
			return errors.E(op, errors.Invalid, utils.ErrNotReviewed)
		}
	}

	if err := session.sequencer.Submit(step); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Dismiss drops the pending transaction of step.
func (mgr *TipManager) Dismiss(step txprocess.Step) error {
	mgr.mtx.RLock()
	session := mgr.session
	mgr.mtx.RUnlock()
	if session.sequencer == nil {
		return errors.E(errors.Invalid, utils.ErrFailedPrecondition)
	}
	return session.sequencer.Dismiss(step)
}

// ActiveStep returns the transaction step the UI shows.
func (mgr *TipManager) ActiveStep() *txprocess.ActiveStep {
	mgr.mtx.RLock()
	session := mgr.session
	mgr.mtx.RUnlock()
	if session.sequencer == nil {
		return nil
	}
	return session.sequencer.ActiveStep()
}

// SubmitState evaluates the submit gate for the current answers.
func (mgr *TipManager) SubmitState() tip.SubmitState {
	return mgr.submitState(false)
}

// submitState evaluates the gate. review applies the review step checks
// even when the wizard is not on that step.
func (mgr *TipManager) submitState(review bool) tip.SubmitState {
	session, _, errs := mgr.validated()

	mgr.mtx.RLock()
	draft, wizard, account, balance := mgr.draft, mgr.wizard, mgr.account, mgr.balance
	mgr.mtx.RUnlock()

	totals := tip.CalculatePriceTotals(draft, mgr.RateSource.Rate())
	var cost *big.Int
	if estimate := mgr.Estimate(); estimate != nil {
		cost = estimate.Total()
	}

	return tip.EvaluateSubmit(tip.SubmitInput{
		Errors:            errs,
		ReviewStep:        review || wizard.reviewStep,
		ReturnFundsAgreed: wizard.returnFundsAgreed,
		AccountSelected:   account != "",
		Balance:           balance,
		RequiredCost:      cost,
		Category:          tip.ClassifyToken(totals.TotalAmountToken, session.params),
		Beneficiary:       draft.TipBeneficiary,
		Referral:          draft.Referral,
	})
}
