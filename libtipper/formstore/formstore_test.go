package formstore_test

import (
	"os"
	"path/filepath"

	"github.com/asdine/storm"
	"github.com/crypto-power/tipwizard/libtipper/chains"
	. "github.com/crypto-power/tipwizard/libtipper/formstore"
	"github.com/crypto-power/tipwizard/libtipper/tip"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	bolt "go.etcd.io/bbolt"
)

func sampleDraft() *tip.FormDraft {
	return &tip.FormDraft{
		TipTitle:           "Docs",
		TipDescription:     "Rewrote the staking guide",
		TipAmount:          tip.NewNumber(150),
		ReferralFeePercent: tip.NewNumber(5),
		TipBeneficiary:     "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY",
		TipperTrack:        chains.BigTipper,
	}
}

// storeBehaviour runs the same expectations against every driver. open
// returns a fresh store and a function writing raw bytes under the form key.
func storeBehaviour(open func(dir string) (*Store, func(raw string))) {
	var (
		dir      string
		store    *Store
		writeRaw func(raw string)
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "formstore")
		Expect(err).To(BeNil())
		store, writeRaw = open(dir)
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
		os.RemoveAll(dir)
	})

	It("returns the defaults when nothing is stored", func() {
		draft, err := store.Load()
		Expect(err).To(BeNil())
		Expect(draft).To(Equal(tip.DefaultDraft()))
		Expect(store.LastSavedAgo()).To(BeEmpty())
	})

	It("round trips a saved draft", func() {
		Expect(store.Save(sampleDraft())).To(Succeed())

		draft, err := store.Load()
		Expect(err).To(BeNil())
		Expect(draft.TipTitle).To(Equal("Docs"))
		Expect(draft.TipAmount.String()).To(Equal("150"))
		Expect(draft.ReferralFeePercent.String()).To(Equal("5"))
		Expect(draft.TipperTrack).To(Equal(chains.BigTipper))
		Expect(store.LastSaved().IsZero()).To(BeFalse())
	})

	It("keeps defaults for fields never answered", func() {
		writeRaw(`{"tipTitle":"Only a title"}`)

		draft, err := store.Load()
		Expect(err).To(BeNil())
		Expect(draft.TipTitle).To(Equal("Only a title"))
		Expect(draft.ReferralFeePercent.String()).To(Equal("10"))
	})

	It("keeps partially typed numbers", func() {
		writeRaw(`{"tipAmount":"12."}`)

		draft, err := store.Load()
		Expect(err).To(BeNil())
		Expect(draft.TipAmount.String()).To(Equal("12."))
	})

	It("discards unreadable data", func() {
		writeRaw(`{"tipTitle":`)

		draft, err := store.Load()
		Expect(err).To(BeNil())
		Expect(draft).To(Equal(tip.DefaultDraft()))

		writeRaw(`[1,2,3]`)
		draft, err = store.Load()
		Expect(err).To(BeNil())
		Expect(draft).To(Equal(tip.DefaultDraft()))
	})

	It("discards the legacy bounty shape", func() {
		writeRaw(`{"projectTitle":"Old bounty","prizePool":100,"supervisors":[]}`)

		draft, err := store.Load()
		Expect(err).To(BeNil())
		Expect(draft).To(Equal(tip.DefaultDraft()))

		// Once discarded the data is gone for good.
		Expect(store.Save(sampleDraft())).To(Succeed())
		draft, err = store.Load()
		Expect(err).To(BeNil())
		Expect(draft.TipTitle).To(Equal("Docs"))
	})

	It("keeps data that carries a beneficiary alongside legacy keys", func() {
		writeRaw(`{"projectTitle":"x","tipBeneficiary":"5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"}`)

		draft, err := store.Load()
		Expect(err).To(BeNil())
		Expect(draft.TipBeneficiary).To(Equal("5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"))
	})

	It("clears the stored draft", func() {
		Expect(store.Save(sampleDraft())).To(Succeed())
		Expect(store.Clear()).To(Succeed())
		Expect(store.Clear()).To(Succeed())

		draft, err := store.Load()
		Expect(err).To(BeNil())
		Expect(draft).To(Equal(tip.DefaultDraft()))
		Expect(store.LastSaved().IsZero()).To(BeTrue())
	})

	It("rejects a nil draft", func() {
		Expect(store.Save(nil)).NotTo(Succeed())
	})
}

var _ = Describe("Store", func() {
	Context("with the bdb driver", func() {
		var db *storm.DB

		AfterEach(func() {
			if db != nil {
				db.Close()
			}
		})

		storeBehaviour(func(dir string) (*Store, func(string)) {
			var err error
			db, err = storm.Open(filepath.Join(dir, "tipper.db"))
			Expect(err).To(BeNil())

			writeRaw := func(raw string) {
				err := db.Bolt.Update(func(tx *bolt.Tx) error {
					bucket, err := tx.CreateBucketIfNotExists([]byte(BucketName))
					if err != nil {
						return err
					}
					return bucket.Put([]byte(TipFormKey), []byte(raw))
				})
				Expect(err).To(BeNil())
			}
			return NewStormStore(db, TipFormKey), writeRaw
		})
	})

	Context("with the badger driver", func() {
		storeBehaviour(func(dir string) (*Store, func(string)) {
			store, err := OpenBadgerStore(filepath.Join(dir, "formdata"), TipFormKey)
			Expect(err).To(BeNil())

			// Raw writes go through a second handle on the same store.
			writeRaw := func(raw string) {
				Expect(WriteRaw(store, raw)).To(Succeed())
			}
			return store, writeRaw
		})
	})
})
