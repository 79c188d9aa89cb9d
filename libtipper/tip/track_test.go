package tip_test

import (
	"math/big"

	"github.com/crypto-power/tipwizard/libtipper/chains"
	. "github.com/crypto-power/tipwizard/libtipper/tip"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func float(v float64) *float64 { return &v }

var _ = Describe("Track classifier", func() {
	var (
		ksm *chains.Params
		th  chains.Thresholds
	)

	BeforeEach(func() {
		ksm, _ = chains.Lookup(chains.KSM)
		th = ksm.Thresholds()
	})

	It("puts amounts at a limit into the lower category", func() {
		one := big.NewInt(1)
		Expect(Classify(th.SmallTipper, th)).To(Equal(CategorySmall))
		Expect(Classify(new(big.Int).Add(th.SmallTipper, one), th)).To(Equal(CategoryBig))
		Expect(Classify(th.BigTipper, th)).To(Equal(CategoryBig))
		Expect(Classify(new(big.Int).Add(th.BigTipper, one), th)).To(Equal(CategoryTooLarge))
	})

	It("is indeterminate without an amount", func() {
		Expect(Classify(nil, th)).To(Equal(CategoryIndeterminate))
		Expect(Classify(big.NewInt(0), th)).To(Equal(CategoryIndeterminate))
		Expect(Classify(big.NewInt(-5), th)).To(Equal(CategoryIndeterminate))
		Expect(Classify(big.NewInt(5), chains.Thresholds{})).To(Equal(CategoryIndeterminate))
	})

	It("always returns exactly one known category", func() {
		for _, amount := range []int64{1, 999, 8_249_999_999_999, 8_250_000_000_001, 1 << 62} {
			c := Classify(big.NewInt(amount), th)
			Expect(c).To(BeElementOf(CategoryIndeterminate, CategorySmall, CategoryBig, CategoryTooLarge))
			Expect(Classify(big.NewInt(amount), th)).To(Equal(c))
		}
	})

	Context("from form input", func() {
		It("is indeterminate when amount is zero and rate unknown", func() {
			draft := &FormDraft{TipAmount: NewNumber(0)}
			totals := CalculatePriceTotals(draft, nil)
			Expect(totals.TotalAmountToken).To(BeNil())
			Expect(ClassifyToken(totals.TotalAmountToken, ksm)).To(Equal(CategoryIndeterminate))
		})

		It("classifies a small tip", func() {
			draft := &FormDraft{TipAmount: NewNumber(100)}
			totals := CalculatePriceTotals(draft, float(20))
			Expect(*totals.TotalAmountToken).To(BeNumerically("==", 5))
			Expect(ClassifyToken(totals.TotalAmountToken, ksm)).To(Equal(CategorySmall))
			Expect(AutoTrack(totals.TotalAmountToken, ksm)).To(Equal(chains.SmallTipper))
		})

		It("flags a tip that is too large", func() {
			draft := &FormDraft{TipAmount: NewNumber(1_000_000)}
			totals := CalculatePriceTotals(draft, float(20))
			Expect(*totals.TotalAmountToken).To(BeNumerically("==", 50_000))
			Expect(ClassifyToken(totals.TotalAmountToken, ksm)).To(Equal(CategoryTooLarge))
			Expect(AutoTrack(totals.TotalAmountToken, ksm)).To(Equal(chains.BigTipper))
		})
	})

	It("maps categories to tipper tracks", func() {
		track, ok := CategorySmall.Track()
		Expect(ok).To(BeTrue())
		Expect(track).To(Equal(chains.SmallTipper))

		_, ok = CategoryTooLarge.Track()
		Expect(ok).To(BeFalse())
	})
})
