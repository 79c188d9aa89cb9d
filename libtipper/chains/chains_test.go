package chains_test

import (
	"encoding/hex"
	"math/big"

	. "github.com/crypto-power/tipwizard/libtipper/chains"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const (
	alicePubKey  = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceGeneric = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	aliceKusama  = "HNZata7iMYWmk5RvZRTiAsSDhV8366zq2YGb3tLH5Upf74F"
	alicePolkdot = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
)

var _ = Describe("Chains", func() {
	Context("Lookup", func() {
		It("returns kusama parameters", func() {
			p, err := Lookup(KSM)
			Expect(err).To(BeNil())
			Expect(p.Decimals).To(Equal(uint8(12)))
			Expect(p.KrakenPair).To(Equal("KSMUSD"))
		})

		It("rejects unknown chains", func() {
			_, err := Lookup(ChainType("BTC"))
			Expect(err).ToNot(BeNil())

			_, err = ParseChain("btc")
			Expect(err).ToNot(BeNil())
		})

		It("parses chain symbols case insensitively", func() {
			chain, err := ParseChain(" dot ")
			Expect(err).To(BeNil())
			Expect(chain).To(Equal(DOT))
		})

		It("converts tipper limits into planck", func() {
			p, _ := Lookup(KSM)
			th := p.Thresholds()
			Expect(th.SmallTipper.Cmp(big.NewInt(8_250_000_000_000))).To(Equal(0))
			Expect(th.BigTipper.Cmp(big.NewInt(33_330_000_000_000))).To(Equal(0))
		})
	})

	Context("Track ids", func() {
		It("maps tipper tracks to their fixed ids", func() {
			id, ok := TrackID(SmallTipper)
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal(uint16(30)))

			id, ok = TrackID(BigTipper)
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal(uint16(31)))

			_, ok = TrackID(TipperTrack("root"))
			Expect(ok).To(BeFalse())
		})
	})

	Context("SS58", func() {
		It("decodes well known addresses", func() {
			for addr, prefix := range map[string]uint16{
				aliceGeneric: 42,
				aliceKusama:  2,
				alicePolkdot: 0,
			} {
				By("decoding " + addr)
				gotPrefix, pubKey, err := DecodeAddress(addr)
				Expect(err).To(BeNil())
				Expect(gotPrefix).To(Equal(prefix))
				Expect(hex.EncodeToString(pubKey)).To(Equal(alicePubKey))
			}
		})

		It("encodes public keys for every prefix form", func() {
			pubKey, _ := hex.DecodeString(alicePubKey)
			addr, err := EncodeAddress(pubKey, 2)
			Expect(err).To(BeNil())
			Expect(addr).To(Equal(aliceKusama))

			for _, prefix := range []uint16{0, 63, 64, 255, 1284, 16383} {
				addr, err := EncodeAddress(pubKey, prefix)
				Expect(err).To(BeNil())
				gotPrefix, gotKey, err := DecodeAddress(addr)
				Expect(err).To(BeNil())
				Expect(gotPrefix).To(Equal(prefix))
				Expect(gotKey).To(Equal(pubKey))
			}
		})

		It("rejects corrupted checksums", func() {
			corrupted := aliceKusama[:len(aliceKusama)-1] + "G"
			_, _, err := DecodeAddress(corrupted)
			Expect(err).ToNot(BeNil())

			_, _, err = DecodeAddress("not-an-address")
			Expect(err).ToNot(BeNil())
		})

		It("validates addresses against the chain prefix", func() {
			ksm, _ := Lookup(KSM)
			_, err := ksm.ValidateAddress(aliceKusama)
			Expect(err).To(BeNil())
			_, err = ksm.ValidateAddress(aliceGeneric)
			Expect(err).To(BeNil())
			_, err = ksm.ValidateAddress(alicePolkdot)
			Expect(err).ToNot(BeNil())
		})

		It("shortens long addresses", func() {
			Expect(SliceMiddle(aliceKusama)).To(Equal("HNZata...Upf74F"))
			Expect(SliceMiddle("short")).To(Equal("short"))
		})
	})
})
