package libtipper_test

import (
	"context"
	"math/big"
	"os"
	"sync"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper"
	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/devchain"
	"github.com/crypto-power/tipwizard/libtipper/ext"
	"github.com/crypto-power/tipwizard/libtipper/history"
	"github.com/crypto-power/tipwizard/libtipper/tip"
	"github.com/crypto-power/tipwizard/libtipper/txprocess"
	"github.com/crypto-power/tipwizard/libtipper/utils"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const (
	alice = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	bob   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
)

type stepRecorder struct {
	mtx      sync.Mutex
	failed   []txprocess.Step
	created  []uint32
	deposits []uint32
}

func (r *stepRecorder) OnStepStateChanged(step txprocess.Step, state txprocess.ProcessState) {
	if state.Kind != txprocess.StateFinalizedFailure && state.Kind != txprocess.StateErrored {
		return
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.failed = append(r.failed, step)
}

func (r *stepRecorder) OnReferendumCreated(index uint32) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.created = append(r.created, index)
}

func (r *stepRecorder) OnDecisionDepositPlaced(index uint32) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.deposits = append(r.deposits, index)
}

func (r *stepRecorder) failures() []txprocess.Step {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]txprocess.Step(nil), r.failed...)
}

type historyRecorder struct {
	mtx      sync.Mutex
	created  []string
	deposits []string
	failures []string
}

func (r *historyRecorder) OnReferendumCreated(referendum *history.Referendum) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.created = append(r.created, referendum.Key)
}

func (r *historyRecorder) OnDecisionDepositPlaced(referendum *history.Referendum) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.deposits = append(r.deposits, referendum.Key)
}

func (r *historyRecorder) OnSubmissionFailed(chain chains.ChainType, step, _ string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.failures = append(r.failures, string(chain)+":"+step)
}

func (r *historyRecorder) keys() ([]string, []string, []string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]string(nil), r.created...), append([]string(nil), r.deposits...), append([]string(nil), r.failures...)
}

func validDraft() *tip.FormDraft {
	return &tip.FormDraft{
		TipTitle:           "Wallet fixes",
		TipDescription:     "<p>Thanks for <strong>fixing</strong> the wallet</p>",
		TipAmount:          tip.NewNumber(100),
		ReferralFeePercent: tip.NewNumber(10),
		TipBeneficiary:     bob,
		Referral:           alice,
	}
}

func stepOf(mgr *libtipper.TipManager) func() string {
	return func() string {
		step := mgr.ActiveStep()
		if step == nil {
			return ""
		}
		return string(step.Step) + ":" + string(step.Kind)
	}
}

var _ = Describe("TipManager", func() {
	var (
		rootDir   string
		mgr       *libtipper.TipManager
		devMtx    sync.Mutex
		devchains map[chains.ChainType]*devchain.Chain
		ctx       = context.Background()
	)

	factory := func(params *chains.Params) (*libtipper.Backend, error) {
		c := devchain.New(params,
			devchain.WithBalance(alice, params.ToPlanck(1000)),
			devchain.WithNextIndex(412))

		devMtx.Lock()
		devchains[params.Type] = c
		devMtx.Unlock()

		return &libtipper.Backend{Client: c, Gov: c, Signer: c, SelectSigner: c.SetSigner}, nil
	}

	devchainFor := func(chain chains.ChainType) *devchain.Chain {
		devMtx.Lock()
		defer devMtx.Unlock()
		return devchains[chain]
	}

	open := func(chain chains.ChainType) *libtipper.TipManager {
		m, err := libtipper.NewTipManager(&libtipper.Config{
			RootDir:    rootDir,
			Chain:      chain,
			RateSource: ext.Fixed,
			FixedRate:  20,
			Backends:   factory,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(m.Start()).To(Succeed())
		return m
	}

	reopen := func(chain chains.ChainType) {
		mgr.Shutdown()
		mgr = open(chain)
	}

	BeforeEach(func() {
		var err error
		rootDir, err = os.MkdirTemp("", "tipper")
		Expect(err).ToNot(HaveOccurred())
		devchains = make(map[chains.ChainType]*devchain.Chain)
		mgr = open(chains.KSM)
		Eventually(mgr.RateSource.Ready).Should(BeTrue())
	})

	AfterEach(func() {
		mgr.Shutdown()
		os.RemoveAll(rootDir)
	})

	It("requires a chain backend", func() {
		_, err := libtipper.NewTipManager(&libtipper.Config{RootDir: rootDir})
		Expect(err).To(HaveOccurred())
	})

	It("refuses a second manager on the same directory", func() {
		_, err := libtipper.NewTipManager(&libtipper.Config{RootDir: rootDir, Backends: factory})
		Expect(err).To(MatchError(ContainSubstring(utils.ErrDatabaseInUse)))
	})

	It("starts from the default draft", func() {
		draft := mgr.Draft()
		Expect(draft.TipAmount.String()).To(Equal("0"))
		Expect(draft.ReferralFeePercent.String()).To(Equal("10"))
		Expect(mgr.Chain().Type).To(Equal(chains.KSM))
		Expect(mgr.RateSource.Pair()).To(Equal("KSMUSD"))
	})

	Describe("SaveDraft", func() {
		It("normalizes the description and selects the tipper track", func() {
			saved, err := mgr.SaveDraft(validDraft())
			Expect(err).ToNot(HaveOccurred())
			Expect(saved.TipDescription).To(Equal("Thanks for **fixing** the wallet"))
			Expect(saved.TipperTrack).To(Equal(chains.SmallTipper))

			larger := validDraft()
			larger.TipAmount = tip.NewNumber(400)
			saved, err = mgr.SaveDraft(larger)
			Expect(err).ToNot(HaveOccurred())
			Expect(saved.TipperTrack).To(Equal(chains.BigTipper))
		})

		It("survives a restart", func() {
			_, err := mgr.SaveDraft(validDraft())
			Expect(err).ToNot(HaveOccurred())

			reopen(chains.KSM)
			draft := mgr.Draft()
			Expect(draft.TipTitle).To(Equal("Wallet fixes"))
			Expect(draft.TipBeneficiary).To(Equal(bob))
			Expect(mgr.Forms.LastSaved().IsZero()).To(BeFalse())
		})

		It("is cleared back to the defaults", func() {
			_, err := mgr.SaveDraft(validDraft())
			Expect(err).ToNot(HaveOccurred())
			Expect(mgr.ClearDraft()).To(Succeed())

			Expect(mgr.Draft().TipTitle).To(BeEmpty())
			stored, err := mgr.Forms.Load()
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.TipTitle).To(BeEmpty())
		})

		It("rejects a nil draft", func() {
			_, err := mgr.SaveDraft(nil)
			Expect(errors.Is(err, errors.Invalid)).To(BeTrue())
		})
	})

	Describe("Overview", func() {
		It("derives the wizard view from the draft and rate", func() {
			_, err := mgr.SaveDraft(validDraft())
			Expect(err).ToNot(HaveOccurred())
			Eventually(mgr.Estimate).ShouldNot(BeNil())

			view := mgr.Overview(ctx)
			Expect(view.Chain).To(Equal(chains.KSM))
			Expect(view.Errors).To(BeEmpty())
			Expect(*view.Rate).To(Equal(20.0))
			Expect(view.Totals.TotalAmount).To(Equal(110.0))
			Expect(view.TotalText).To(Equal("5.5 KSM"))
			Expect(view.Category).To(Equal("Small Tipper"))
			Expect(view.Track).ToNot(BeNil())
			Expect(view.Track.Title).To(Equal("Small Tipper"))
			Expect(view.Track.DurationText).To(Equal("7 days"))
			Expect(view.EstimateText).ToNot(BeEmpty())
			Expect(view.Markdown).To(ContainSubstring("Wallet fixes"))
			Expect(view.HTML).To(ContainSubstring("<strong>fixing</strong>"))
			Expect(view.LastSaved).ToNot(BeNil())
			Expect(view.Step).To(BeNil())
		})

		It("reports the form errors of an empty draft", func() {
			view := mgr.Overview(ctx)
			Expect(view.Errors).To(HaveKey(tip.FieldTitle))
			Expect(view.Submit.Enabled).To(BeFalse())
		})

		It("asks for an amount before showing a cost", func() {
			view := mgr.Overview(ctx)
			Expect(view.Category).To(Equal("Indeterminate"))
			Expect(view.Estimate).To(BeNil())
			Expect(view.EstimateText).To(BeEmpty())
			Expect(view.EstimateNote).To(Equal(tip.ReasonAmountUnknown))

			_, err := mgr.SaveDraft(validDraft())
			Expect(err).ToNot(HaveOccurred())
			Expect(mgr.SetRateSource(ext.None)).To(Succeed())
			Eventually(mgr.RateSource.Rate).Should(BeNil())

			view = mgr.Overview(ctx)
			Expect(view.Category).To(Equal("Indeterminate"))
			Expect(view.Estimate).To(BeNil())
			Expect(view.EstimateNote).To(Equal(tip.ReasonAmountUnknown))
			Expect(view.Submit.Enabled).To(BeFalse())
		})

		It("hides the cost and balance of a tip too large for the tipper tracks", func() {
			Expect(mgr.SetAccount(alice)).To(Succeed())
			_, err := mgr.SaveDraft(validDraft())
			Expect(err).ToNot(HaveOccurred())
			Eventually(func() *big.Int { return mgr.Overview(ctx).Balance }).ShouldNot(BeNil())

			huge := validDraft()
			huge.TipAmount = tip.NewNumber(1000000)
			_, err = mgr.SaveDraft(huge)
			Expect(err).ToNot(HaveOccurred())

			view := mgr.Overview(ctx)
			Expect(view.Category).To(Equal("Too Large"))
			Expect(view.Estimate).To(BeNil())
			Expect(view.EstimateText).To(BeEmpty())
			Expect(view.EstimateNote).To(Equal(tip.ReasonTooLarge))
			Expect(view.Balance).To(BeNil())
			Expect(view.Submit.Enabled).To(BeFalse())
			Expect(view.Submit.Reasons).To(ContainElement(tip.ReasonTooLarge))
		})
	})

	Describe("accounts", func() {
		It("rejects malformed addresses", func() {
			err := mgr.SetAccount("not-an-address")
			Expect(errors.Is(err, errors.Invalid)).To(BeTrue())
			Expect(mgr.Account()).To(BeEmpty())
		})

		It("tracks the balance of the selected account", func() {
			Expect(mgr.SetAccount(alice)).To(Succeed())
			balance, err := mgr.SignerBalance(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(balance.String()).To(Equal(mgr.Chain().ToPlanck(1000).String()))

			reopen("")
			Expect(mgr.Account()).To(Equal(alice))
		})

		It("needs an account for the balance", func() {
			_, err := mgr.SignerBalance(ctx)
			Expect(err).To(MatchError(ContainSubstring(utils.ErrNoAccountSelected)))
		})
	})

	Describe("submission", func() {
		var steps *stepRecorder
		var notes *historyRecorder

		BeforeEach(func() {
			steps = &stepRecorder{}
			notes = &historyRecorder{}
			Expect(mgr.AddStepListener(steps, "test")).To(Succeed())
			Expect(mgr.AddNotificationListener(notes, "test")).To(Succeed())

			_, err := mgr.SaveDraft(validDraft())
			Expect(err).ToNot(HaveOccurred())
		})

		It("rejects duplicate listeners", func() {
			Expect(mgr.AddStepListener(steps, "test")).ToNot(Succeed())
		})

		It("refuses to submit before the review step", func() {
			Expect(mgr.SetAccount(alice)).To(Succeed())
			err := mgr.Submit(txprocess.StepCreation)
			Expect(err).To(MatchError(ContainSubstring(tip.ReasonReturnFundsNotAgree)))
		})

		It("creates the referendum and places its decision deposit", func() {
			Expect(mgr.SetAccount(alice)).To(Succeed())

			step, err := mgr.Review(ctx, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(step.Kind).To(Equal(txprocess.ActiveDescriptor))
			Expect(step.Step).To(Equal(txprocess.StepCreation))

			Eventually(func() bool { return mgr.SubmitState().Enabled }).Should(BeTrue())
			Expect(mgr.Submit(txprocess.StepCreation)).To(Succeed())

			Eventually(stepOf(mgr)).Should(Equal("decision:done"))
			Eventually(func() []string { _, deposits, _ := notes.keys(); return deposits }).
				Should(Equal([]string{"KSM:412"}))

			referendum, err := mgr.History.Get(chains.KSM, 412)
			Expect(err).ToNot(HaveOccurred())
			Expect(referendum.Title).To(Equal("Wallet fixes"))
			Expect(referendum.Beneficiary).To(Equal(bob))
			Expect(referendum.Referral).To(Equal(alice))
			Expect(referendum.Track).To(Equal(string(chains.SmallTipper)))
			Expect(referendum.AmountPlanck).To(Equal(mgr.Chain().ToPlanck(5.5).String()))
			Expect(referendum.CreationTxHash).ToNot(BeEmpty())
			Expect(referendum.DecisionDepositPlaced).To(BeTrue())

			created, _, _ := notes.keys()
			Expect(created).To(Equal([]string{"KSM:412"}))

			submitted := devchainFor(chains.KSM).Submitted()
			Expect(submitted).To(HaveLen(2))
			Expect(submitted[1].Method).To(Equal("place_decision_deposit"))
		})

		It("reports a failed creation", func() {
			Expect(mgr.SetAccount(alice)).To(Succeed())
			devchainFor(chains.KSM).QueueOutcomes(devchain.OutcomeFailure)

			_, err := mgr.Review(ctx, true)
			Expect(err).ToNot(HaveOccurred())
			Eventually(func() bool { return mgr.SubmitState().Enabled }).Should(BeTrue())
			Expect(mgr.Submit(txprocess.StepCreation)).To(Succeed())

			Eventually(steps.failures).Should(Equal([]txprocess.Step{txprocess.StepCreation}))
			Eventually(func() []string { _, _, failures := notes.keys(); return failures }).
				Should(Equal([]string{"KSM:ref"}))
			Expect(stepOf(mgr)()).To(Equal("ref:submitting"))

			count, err := mgr.History.Count(chains.KSM)
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(BeZero())

			Expect(mgr.Dismiss(txprocess.StepCreation)).To(Succeed())
			Expect(mgr.ActiveStep()).To(BeNil())
		})

		It("drops the prepared transaction when the answers change", func() {
			Expect(mgr.SetAccount(alice)).To(Succeed())
			_, err := mgr.Review(ctx, true)
			Expect(err).ToNot(HaveOccurred())
			Eventually(func() bool { return mgr.SubmitState().Enabled }).Should(BeTrue())

			edited := validDraft()
			edited.TipAmount = tip.NewNumber(300)
			edited.Referral = ""
			_, err = mgr.SaveDraft(edited)
			Expect(err).ToNot(HaveOccurred())

			Expect(mgr.ActiveStep()).To(BeNil())
			err = mgr.Submit(txprocess.StepCreation)
			Expect(errors.Is(err, errors.Invalid)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring(tip.ReasonReturnFundsNotAgree)))
			Expect(devchainFor(chains.KSM).Submitted()).To(BeEmpty())
		})

		It("refuses a submission that was not reviewed again", func() {
			Expect(mgr.SetAccount(alice)).To(Succeed())
			_, err := mgr.Review(ctx, true)
			Expect(err).ToNot(HaveOccurred())

			Expect(mgr.SetAccount(bob)).To(Succeed())
			Expect(mgr.ActiveStep()).To(BeNil())
			Expect(mgr.Submit(txprocess.StepCreation)).ToNot(Succeed())
			Expect(devchainFor(chains.KSM).Submitted()).To(BeEmpty())
		})

		It("records the amounts the transaction was built with", func() {
			Expect(mgr.SetAccount(alice)).To(Succeed())
			_, err := mgr.Review(ctx, true)
			Expect(err).ToNot(HaveOccurred())

			mgr.RateSource.SetFixedRate(40)
			Eventually(func() float64 {
				if rate := mgr.RateSource.Rate(); rate != nil {
					return *rate
				}
				return 0
			}).Should(Equal(40.0))

			Eventually(func() bool { return mgr.SubmitState().Enabled }).Should(BeTrue())
			Expect(mgr.Submit(txprocess.StepCreation)).To(Succeed())
			Eventually(func() []string { created, _, _ := notes.keys(); return created }).
				Should(Equal([]string{"KSM:412"}))

			referendum, err := mgr.History.Get(chains.KSM, 412)
			Expect(err).ToNot(HaveOccurred())
			Expect(referendum.AmountPlanck).To(Equal(mgr.Chain().ToPlanck(5.5).String()))
		})

		It("blocks an account that cannot pay", func() {
			Expect(mgr.SetAccount(bob)).To(Succeed())
			_, err := mgr.Review(ctx, true)
			Expect(err).ToNot(HaveOccurred())

			Eventually(func() bool { return mgr.SubmitState().InsufficientBalance }).Should(BeTrue())
			err = mgr.Submit(txprocess.StepCreation)
			Expect(errors.Is(err, errors.InsufficientBalance)).To(BeTrue())
		})

		It("folds explicit fee estimates into the cost", func() {
			Eventually(mgr.Estimate).ShouldNot(BeNil())
			fees, err := mgr.EstimateFees(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(fees.String()).To(Equal(mgr.Chain().ToPlanck(0.001).String()))
			Eventually(func() string { return mgr.Estimate().Fees.String() }).Should(Equal(fees.String()))
		})
	})

	Describe("SetRateSource", func() {
		It("is used when no source is configured", func() {
			Expect(mgr.SetRateSource(ext.None)).To(Succeed())
			mgr.Shutdown()

			var err error
			mgr, err = libtipper.NewTipManager(&libtipper.Config{RootDir: rootDir, Chain: chains.KSM, Backends: factory})
			Expect(err).ToNot(HaveOccurred())
			Expect(mgr.RateSource.Name()).To(Equal("None"))
		})
	})

	Describe("SetChain", func() {
		It("switches the chain and remembers it", func() {
			Expect(mgr.SetAccount(alice)).To(Succeed())
			Expect(mgr.SetChain(chains.DOT)).To(Succeed())

			Expect(mgr.Chain().Type).To(Equal(chains.DOT))
			Expect(mgr.RateSource.Pair()).To(Equal("DOTUSD"))
			Expect(mgr.Account()).To(BeEmpty())
			Expect(mgr.ActiveStep()).To(BeNil())

			reopen("")
			Expect(mgr.Chain().Type).To(Equal(chains.DOT))

			Expect(mgr.SetChain(chains.KSM)).To(Succeed())
			Expect(mgr.Account()).To(Equal(alice))
		})

		It("keeps a chain chosen at startup for later runs", func() {
			reopen(chains.DOT)
			Expect(mgr.Chain().Type).To(Equal(chains.DOT))

			reopen("")
			Expect(mgr.Chain().Type).To(Equal(chains.DOT))
			Expect(mgr.SelectedChain()).To(Equal(chains.DOT))
		})

		It("rejects unknown chains", func() {
			Expect(mgr.SetChain("BTC")).ToNot(Succeed())
			Expect(mgr.Chain().Type).To(Equal(chains.KSM))
		})

		It("is refused while a transaction is in flight", func() {
			_, err := mgr.SaveDraft(validDraft())
			Expect(err).ToNot(HaveOccurred())
			Expect(mgr.SetAccount(alice)).To(Succeed())
			devchainFor(chains.KSM).QueueOutcomes(devchain.OutcomePending)

			_, err = mgr.Review(ctx, true)
			Expect(err).ToNot(HaveOccurred())
			Eventually(func() bool { return mgr.SubmitState().Enabled }).Should(BeTrue())
			Expect(mgr.Submit(txprocess.StepCreation)).To(Succeed())
			Eventually(stepOf(mgr)).Should(Equal("ref:submitting"))

			err = mgr.SetChain(chains.DOT)
			Expect(err).To(MatchError(ContainSubstring(utils.ErrStepInProgress)))

			Expect(mgr.Dismiss(txprocess.StepCreation)).To(Succeed())
			Expect(mgr.SetChain(chains.DOT)).To(Succeed())
		})
	})
})
