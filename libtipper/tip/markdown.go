package tip

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/crypto-power/tipwizard/libtipper/utils"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const (
	untitledTip        = "Untitled Tip"
	tbd                = "TBD"
	descriptionPending = "Tip description to be defined..."
)

// GenerateMarkdown renders the referendum body for a possibly partial draft.
// Missing fields are replaced by placeholders. Identical inputs always yield
// identical output.
func GenerateMarkdown(draft *FormDraft, totalToken *float64, identities map[string]string, symbol string) string {
	if draft == nil {
		draft = &FormDraft{}
	}

	title := draft.TipTitle
	if title == "" {
		title = untitledTip
	}

	tipAmount, _ := ParseNumber(draft.TipAmount)
	feePercent, _ := ParseNumber(draft.ReferralFeePercent)
	feeAmount := tipAmount * feePercent / 100

	requested := tbd
	if totalToken != nil && *totalToken != 0 {
		requested = utils.FormatInteger(*totalToken)
	}

	description := draft.TipDescription
	if description == "" {
		description = descriptionPending
	}

	var b strings.Builder
	b.WriteString("# " + title + "\n\n")
	b.WriteString("Tip Amount: $" + utils.FormatNumber(tipAmount) + "\n")
	b.WriteString("Referral Fee: $" + utils.FormatNumber(feeAmount) + " (" + utils.FormatNumber(feePercent) + "%)\n\n")
	b.WriteString(requested + " " + symbol + " Requested\n\n")
	b.WriteString("## Beneficiaries\n\n")
	b.WriteString("**Tip Beneficiary:** " + displayName(draft.TipBeneficiary, identities) + "\n")
	b.WriteString("**Referral:** " + displayName(draft.Referral, identities) + "\n\n")
	b.WriteString("Excess or unused funds will be returned to the treasury.\n\n")
	b.WriteString("## Description\n\n")
	b.WriteString(description + "\n")
	return b.String()
}

func displayName(address string, identities map[string]string) string {
	if address == "" {
		return tbd
	}
	if name := identities[address]; name != "" {
		return name
	}
	return address
}

// RenderPreviewHTML converts the generated markdown into HTML for display.
func RenderPreviewHTML(text string) string {
	// Parsers keep state and cannot be reused between documents.
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})
	return string(markdown.ToHTML([]byte(text), p, renderer))
}

var descriptionConverter = md.NewConverter("", true, nil).AddRules(
	md.Rule{
		// Underline has no markdown form, keep the text.
		Filter: []string{"u", "ins"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			return md.String(content)
		},
	},
	md.Rule{
		Filter: []string{"del", "s", "strike"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			content = strings.TrimSpace(content)
			if content == "" {
				return md.String("")
			}
			return md.String("~~" + content + "~~")
		},
	},
)

// NormalizeDescription converts HTML pasted into the description field into
// markdown. Text without any element is returned unchanged.
func NormalizeDescription(text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil || doc.Find("body").Children().Length() == 0 {
		return text
	}

	converted, err := descriptionConverter.ConvertString(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(converted)
}
