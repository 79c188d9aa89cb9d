package referenda_test

import (
	"context"

	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/devchain"
	. "github.com/crypto-power/tipwizard/libtipper/referenda"
	"github.com/crypto-power/tipwizard/libtipper/tip"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const (
	alice = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	bob   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
)

var _ = Describe("Builder", func() {
	var (
		ctx     context.Context
		ksm     *chains.Params
		chain   *devchain.Chain
		builder *Builder
		form    *tip.ValidatedForm
		rate    float64
	)

	BeforeEach(func() {
		ctx = context.Background()
		ksm, _ = chains.Lookup(chains.KSM)
		chain = devchain.New(ksm)
		builder = NewBuilder(chain, chain, ksm)
		rate = 20
		form = &tip.ValidatedForm{
			Chain:              chains.KSM,
			Title:              "Docs",
			Description:        "Docs work",
			Amount:             100,
			ReferralFeePercent: 10,
			Beneficiary:        alice,
			Referral:           bob,
			Track:              chains.SmallTipper,
		}
	})

	It("returns nothing to submit while required input is missing", func() {
		d, err := builder.BuildCreationTx(ctx, nil, &rate)
		Expect(err).To(BeNil())
		Expect(d).To(BeNil())

		d, err = builder.BuildCreationTx(ctx, form, nil)
		Expect(err).To(BeNil())
		Expect(d).To(BeNil())

		form.Amount = 0
		d, err = builder.BuildCreationTx(ctx, form, &rate)
		Expect(err).To(BeNil())
		Expect(d).To(BeNil())
	})

	It("creates the referendum alone when no top up is needed", func() {
		d, err := builder.BuildCreationTx(ctx, form, &rate)
		Expect(err).To(BeNil())
		Expect(d.Tx.String()).To(Equal("Referenda.submit"))
		Expect(d.Explanation.Text).To(Equal("Create referendum"))
		Expect(d.Explanation.Params).To(HaveKeyWithValue("track", "small tipper"))

		proposal := d.Tx.Args["proposal"].(*Call)
		Expect(proposal.String()).To(Equal("Utility.batch_all"))
		Expect(proposal.Inner()).To(HaveLen(2))
		Expect(proposal.Inner()[0].Args["beneficiary"]).To(Equal(alice))
		Expect(proposal.Inner()[1].Args["beneficiary"]).To(Equal(bob))
		Expect(d.Tx.Args["proposal_origin"]).To(Equal(Origin{Type: "Origins", Value: "SmallTipper"}))

		call := d.Explanation.Params["call"].(Explanation)
		Expect(call.Text).To(Equal("Treasury spend referendum"))
		Expect(call.Params).To(HaveKeyWithValue("amount", "5 KSM"))
		Expect(call.Params).To(HaveKeyWithValue("referralFee", "10%"))
	})

	It("spends only to the beneficiary without a referral", func() {
		form.Referral = ""
		d, err := builder.BuildCreationTx(ctx, form, &rate)
		Expect(err).To(BeNil())
		proposal := d.Tx.Args["proposal"].(*Call)
		Expect(proposal.String()).To(Equal("Treasury.spend"))

		call := d.Explanation.Params["call"].(Explanation)
		Expect(call.Params).To(HaveKeyWithValue("referral", "None"))
	})

	It("batches a top up of the beneficiary ahead of the referendum", func() {
		chain = devchain.New(ksm, devchain.WithBalance(alice, ksm.ToPlanck(0.25)))
		builder = NewBuilder(chain, chain, ksm)

		d, err := builder.BuildCreationTx(ctx, form, &rate)
		Expect(err).To(BeNil())
		Expect(d.Tx.String()).To(Equal("Utility.batch_all"))
		Expect(d.Explanation.Text).To(Equal("batch"))

		inner := d.Tx.Inner()
		Expect(inner).To(HaveLen(2))
		Expect(inner[0].String()).To(Equal("Balances.transfer_keep_alive"))
		Expect(inner[0].Args["value"]).To(Equal(ksm.ToPlanck(0.75)))
		Expect(inner[1].String()).To(Equal("Referenda.submit"))

		transfer := d.Explanation.Params["0"].(Explanation)
		Expect(transfer.Text).To(Equal("Transfer balance to curator"))
		Expect(transfer.Params).To(HaveKeyWithValue("value", "0.75 KSM"))
		Expect(d.Explanation.Params["1"].(Explanation).Text).To(Equal("Create referendum"))
	})

	It("skips the top up for a funded beneficiary", func() {
		chain = devchain.New(ksm, devchain.WithBalance(alice, ksm.ToPlanck(3)))
		builder = NewBuilder(chain, chain, ksm)

		d, err := builder.BuildCreationTx(ctx, form, &rate)
		Expect(err).To(BeNil())
		Expect(d.Tx.String()).To(Equal("Referenda.submit"))
	})

	It("builds the decision deposit for an index", func() {
		d := builder.BuildDecisionDepositTx(412)
		Expect(d.Tx.String()).To(Equal("Referenda.place_decision_deposit"))
		Expect(d.Tx.Args["index"]).To(Equal(uint32(412)))
		Expect(d.Explanation.Text).To(Equal("Place decision deposit"))
	})

	It("estimates fees against the dummy signer", func() {
		fees, err := builder.EstimateFees(ctx, form, &rate, "")
		Expect(err).To(BeNil())
		Expect(fees).To(Equal(ksm.ToPlanck(0.001)))

		fees, err = builder.EstimateFees(ctx, form, nil, "")
		Expect(err).To(BeNil())
		Expect(fees.Sign()).To(Equal(0))
	})
})
