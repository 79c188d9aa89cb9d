package tip_test

import (
	"encoding/json"
	"math/big"

	"github.com/crypto-power/tipwizard/libtipper/chains"
	. "github.com/crypto-power/tipwizard/libtipper/tip"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const (
	alice = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	bob   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
)

func completeDraft() *FormDraft {
	return &FormDraft{
		TipTitle:           "Docs translation",
		TipDescription:     "Translated the staking guide.",
		TipAmount:          NewNumber(100),
		ReferralFeePercent: NewNumber(10),
		TipBeneficiary:     alice,
		Referral:           bob,
	}
}

var _ = Describe("Form", func() {
	var ksm *chains.Params

	BeforeEach(func() {
		ksm, _ = chains.Lookup(chains.KSM)
	})

	Context("Number", func() {
		It("decodes numbers and numeric strings", func() {
			var draft FormDraft
			err := json.Unmarshal([]byte(`{"tipAmount":"12.5","referralFeePercent":7}`), &draft)
			Expect(err).To(BeNil())

			v, ok := ParseNumber(draft.TipAmount)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(12.5))

			v, ok = ParseNumber(draft.ReferralFeePercent)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(7.0))
		})

		It("coerces blanks to zero and rejects garbage", func() {
			blank := Number("")
			v, ok := ParseNumber(&blank)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(0.0))

			garbage := Number("12abc")
			_, ok = ParseNumber(&garbage)
			Expect(ok).To(BeFalse())

			_, ok = ParseNumber(nil)
			Expect(ok).To(BeFalse())
		})

		It("encodes parsable values as JSON numbers", func() {
			data, err := json.Marshal(DefaultDraft())
			Expect(err).To(BeNil())
			Expect(string(data)).To(Equal(`{"tipAmount":0,"referralFeePercent":10}`))
		})
	})

	Context("Validate", func() {
		It("accepts a complete draft", func() {
			form, errs := Validate(completeDraft(), ksm)
			Expect(errs).To(BeNil())
			Expect(form.Chain).To(Equal(chains.KSM))
			Expect(form.Amount).To(Equal(100.0))
			Expect(form.HasReferral()).To(BeTrue())
		})

		It("reports every missing required field", func() {
			form, errs := Validate(&FormDraft{}, ksm)
			Expect(form).To(BeNil())
			Expect(errs).To(HaveKey(FieldTitle))
			Expect(errs).To(HaveKey(FieldDescription))
			Expect(errs).To(HaveKey(FieldAmount))
			Expect(errs).To(HaveKey(FieldBeneficiary))
			Expect(errs).ToNot(HaveKey(FieldReferral))
			Expect(errs.Error()).To(ContainSubstring("tipTitle: This field is required"))
		})

		It("rejects malformed addresses and out of range fees", func() {
			draft := completeDraft()
			draft.TipBeneficiary = "nope"
			draft.Referral = alice[:len(alice)-2]
			draft.ReferralFeePercent = NewNumber(101)
			draft.TipperTrack = chains.TipperTrack("root")

			_, errs := Validate(draft, ksm)
			Expect(errs).To(HaveKeyWithValue(FieldBeneficiary, "Invalid Kusama address"))
			Expect(errs).To(HaveKey(FieldReferral))
			Expect(errs).To(HaveKey(FieldReferralFee))
			Expect(errs).To(HaveKey(FieldTrack))
		})

		It("rejects negative amounts", func() {
			draft := completeDraft()
			draft.TipAmount = NewNumber(-1)
			_, errs := Validate(draft, ksm)
			Expect(errs).To(HaveKey(FieldAmount))
		})
	})

	Context("Spend amounts", func() {
		It("splits the tip and referral fee in planck", func() {
			form, _ := Validate(completeDraft(), ksm)
			rate := 20.0
			spends := SpendAmountsFor(form, &rate, ksm)
			Expect(spends).ToNot(BeNil())
			Expect(spends.Tip.Cmp(big.NewInt(5_000_000_000_000))).To(Equal(0))
			Expect(spends.Referral.Cmp(big.NewInt(500_000_000_000))).To(Equal(0))
			Expect(spends.Total.Cmp(big.NewInt(5_500_000_000_000))).To(Equal(0))
		})

		It("is nil while the rate is unknown or the tip is empty", func() {
			form, _ := Validate(completeDraft(), ksm)
			Expect(SpendAmountsFor(form, nil, ksm)).To(BeNil())

			form.Amount = 0
			rate := 20.0
			Expect(SpendAmountsFor(form, &rate, ksm)).To(BeNil())
		})

		It("skips the referral spend without a referral", func() {
			form, _ := Validate(completeDraft(), ksm)
			form.Referral = ""
			rate := 20.0
			spends := SpendAmountsFor(form, &rate, ksm)
			Expect(spends.Referral.Sign()).To(Equal(0))
			Expect(spends.Total.Cmp(spends.Tip)).To(Equal(0))
		})
	})
})
