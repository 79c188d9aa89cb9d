package tip

import "math/big"

// Reasons reported when submission is disabled.
const (
	ReasonInvalidForm         = "form has errors"
	ReasonReturnFundsNotAgree = "return of unused funds not agreed"
	ReasonInsufficientBalance = "insufficient balance"
	ReasonMissingRecipients   = "tip beneficiary and referral are required"
	ReasonAmountUnknown       = "enter amount to see cost"
	ReasonTooLarge            = "tip is too large for the tipper tracks"
)

// SubmitInput is everything the submit gate depends on.
type SubmitInput struct {
	Errors            ValidationErrors
	ReviewStep        bool
	ReturnFundsAgreed bool
	AccountSelected   bool
	Balance           *big.Int // nil while unknown
	RequiredCost      *big.Int // deposits plus fees, nil while calculating
	Category          Category
	Beneficiary       string
	Referral          string
}

// SubmitState is the derived "submit enabled" value plus the insufficient
// balance warning.
type SubmitState struct {
	Enabled             bool
	InsufficientBalance bool
	// Shortfall is set together with InsufficientBalance.
	Shortfall *big.Int
	Reasons   []string
}

// hasSufficientBalance compares balance and cost when both are known. With
// no account selected the connect-account flow takes over, so the check
// passes for the button and never raises the warning.
func hasSufficientBalance(in SubmitInput) (bool, bool) {
	if in.AccountSelected && in.Balance != nil && in.RequiredCost != nil {
		ok := in.Balance.Cmp(in.RequiredCost) >= 0
		return ok, ok
	}
	return !in.AccountSelected, true
}

// EvaluateSubmit derives whether the submit control is enabled.
func EvaluateSubmit(in SubmitInput) SubmitState {
	var state SubmitState

	if len(in.Errors) > 0 {
		state.Reasons = append(state.Reasons, ReasonInvalidForm)
	}

	switch in.Category {
	case CategoryIndeterminate:
		state.Reasons = append(state.Reasons, ReasonAmountUnknown)
	case CategoryTooLarge:
		state.Reasons = append(state.Reasons, ReasonTooLarge)
	}

	forButton, forWarning := hasSufficientBalance(in)
	if in.AccountSelected && !forWarning && in.Category != CategoryTooLarge {
		state.InsufficientBalance = true
		state.Shortfall = new(big.Int).Sub(in.RequiredCost, in.Balance)
	}

	if in.ReviewStep {
		if !in.ReturnFundsAgreed {
			state.Reasons = append(state.Reasons, ReasonReturnFundsNotAgree)
		}
		if in.AccountSelected && !forButton {
			state.Reasons = append(state.Reasons, ReasonInsufficientBalance)
		}
		if in.Beneficiary == "" || in.Referral == "" {
			state.Reasons = append(state.Reasons, ReasonMissingRecipients)
		}
	}

	state.Enabled = len(state.Reasons) == 0
	return state
}
