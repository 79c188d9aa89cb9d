package referenda_test

import (
	"encoding/json"

	. "github.com/crypto-power/tipwizard/libtipper/referenda"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractReferendumIndex", func() {
	submitted := func(data ...interface{}) []ChainEvent {
		return []ChainEvent{
			{Pallet: "Balances", Name: "Withdraw"},
			{Pallet: "Referenda", Name: "Submitted", Data: data},
			{Pallet: "System", Name: "ExtrinsicSuccess"},
		}
	}

	It("reads the index from the first data field", func() {
		for _, v := range []interface{}{uint32(7), uint64(7), 7, int64(7), 7.0, json.Number("7"), "7"} {
			index, ok := ExtractReferendumIndex(submitted(v, "track"))
			Expect(ok).To(BeTrue())
			Expect(index).To(Equal(uint32(7)))
		}
	})

	It("leaves the index unset when the event is absent", func() {
		_, ok := ExtractReferendumIndex([]ChainEvent{{Pallet: "System", Name: "ExtrinsicSuccess"}})
		Expect(ok).To(BeFalse())

		_, ok = ExtractReferendumIndex(nil)
		Expect(ok).To(BeFalse())
	})

	It("leaves the index unset when the value is malformed", func() {
		for _, v := range []interface{}{-1, 1.5, "abc", int64(-3), nil, map[string]interface{}{"index": 1}} {
			_, ok := ExtractReferendumIndex(submitted(v))
			Expect(ok).To(BeFalse())
		}

		_, ok := ExtractReferendumIndex(submitted())
		Expect(ok).To(BeFalse())
	})
})
