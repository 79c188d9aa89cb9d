package tip_test

import (
	. "github.com/crypto-power/tipwizard/libtipper/tip"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Markdown", func() {
	It("renders placeholders for an empty draft", func() {
		text := GenerateMarkdown(nil, nil, nil, "KSM")
		Expect(text).To(Equal(`# Untitled Tip

Tip Amount: $0
Referral Fee: $0 (0%)

TBD KSM Requested

## Beneficiaries

**Tip Beneficiary:** TBD
**Referral:** TBD

Excess or unused funds will be returned to the treasury.

## Description

Tip description to be defined...
`))
	})

	It("renders a complete draft with identity names", func() {
		total := 5.5
		text := GenerateMarkdown(completeDraft(), &total, map[string]string{alice: "Alice"}, "KSM")
		Expect(text).To(ContainSubstring("# Docs translation\n"))
		Expect(text).To(ContainSubstring("Tip Amount: $100\nReferral Fee: $10 (10%)\n"))
		Expect(text).To(ContainSubstring("6 KSM Requested"))
		Expect(text).To(ContainSubstring("**Tip Beneficiary:** Alice\n"))
		Expect(text).To(ContainSubstring("**Referral:** " + bob + "\n"))
		Expect(text).To(HaveSuffix("Translated the staking guide.\n"))
	})

	It("is idempotent", func() {
		total := 1234.4
		identities := map[string]string{alice: "Alice", bob: "Bob"}
		first := GenerateMarkdown(completeDraft(), &total, identities, "DOT")
		second := GenerateMarkdown(completeDraft(), &total, identities, "DOT")
		Expect(first).To(Equal(second))
		Expect(first).To(ContainSubstring("1,234 DOT Requested"))
	})

	It("renders the preview to html", func() {
		out := RenderPreviewHTML(GenerateMarkdown(nil, nil, nil, "KSM"))
		Expect(out).To(ContainSubstring("<h1"))
		Expect(out).To(ContainSubstring("Untitled Tip"))
		Expect(out).To(ContainSubstring("<strong>Tip Beneficiary:</strong>"))
	})

	Context("description normalization", func() {
		It("converts pasted html into markdown", func() {
			Expect(NormalizeDescription("<p>Hello <strong>world</strong></p>")).To(Equal("Hello **world**"))
			Expect(NormalizeDescription("<p><u>plain</u> and <del>gone</del></p>")).To(Equal("plain and ~~gone~~"))
		})

		It("leaves plain text alone", func() {
			text := "Fixed *three* bugs in the wallet"
			Expect(NormalizeDescription(text)).To(Equal(text))
		})
	})
})
