package tip_test

import (
	"math/big"

	. "github.com/crypto-power/tipwizard/libtipper/tip"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Submit gate", func() {
	var in SubmitInput

	BeforeEach(func() {
		in = SubmitInput{
			ReviewStep:        true,
			ReturnFundsAgreed: true,
			AccountSelected:   true,
			Balance:           big.NewInt(100),
			RequiredCost:      big.NewInt(40),
			Category:          CategorySmall,
			Beneficiary:       alice,
			Referral:          bob,
		}
	})

	It("is enabled when every condition holds", func() {
		state := EvaluateSubmit(in)
		Expect(state.Enabled).To(BeTrue())
		Expect(state.InsufficientBalance).To(BeFalse())
		Expect(state.Reasons).To(BeEmpty())
	})

	It("reports the shortfall when the balance is too low", func() {
		in.Balance = big.NewInt(25)
		state := EvaluateSubmit(in)
		Expect(state.Enabled).To(BeFalse())
		Expect(state.InsufficientBalance).To(BeTrue())
		Expect(state.Shortfall.Int64()).To(Equal(int64(15)))
		Expect(state.Reasons).To(ContainElement(ReasonInsufficientBalance))
	})

	It("is disabled for an indeterminate amount", func() {
		in.Category = CategoryIndeterminate
		in.RequiredCost = nil
		state := EvaluateSubmit(in)
		Expect(state.Enabled).To(BeFalse())
		Expect(state.Reasons).To(ContainElement(ReasonAmountUnknown))
	})

	It("is disabled for a tip that is too large regardless of balance", func() {
		in.Category = CategoryTooLarge
		in.Balance = big.NewInt(1 << 60)
		state := EvaluateSubmit(in)
		Expect(state.Enabled).To(BeFalse())
		Expect(state.InsufficientBalance).To(BeFalse())
		Expect(state.Reasons).To(ConsistOf(ReasonTooLarge))
	})

	It("needs the return of funds agreement and both recipients on review", func() {
		in.ReturnFundsAgreed = false
		in.Referral = ""
		state := EvaluateSubmit(in)
		Expect(state.Reasons).To(ConsistOf(ReasonReturnFundsNotAgree, ReasonMissingRecipients))
	})

	It("does not warn about balance when no account is selected", func() {
		in.AccountSelected = false
		in.Balance = nil
		state := EvaluateSubmit(in)
		Expect(state.Enabled).To(BeTrue())
		Expect(state.InsufficientBalance).To(BeFalse())
	})

	It("is disabled while the form has errors", func() {
		in.Errors = ValidationErrors{FieldTitle: "This field is required"}
		state := EvaluateSubmit(in)
		Expect(state.Enabled).To(BeFalse())
		Expect(state.Reasons).To(ContainElement(ReasonInvalidForm))
	})
})
