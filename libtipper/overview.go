package libtipper

import (
	"context"
	"math/big"
	"time"

	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/referenda"
	"github.com/crypto-power/tipwizard/libtipper/tip"
	"github.com/crypto-power/tipwizard/libtipper/txprocess"
	"github.com/crypto-power/tipwizard/libtipper/utils"
)

// TrackInfo describes the governance track a tip would be submitted on.
type TrackInfo struct {
	ID       uint16        `json:"id"`
	Name     string        `json:"name"`
	Title    string        `json:"title"`
	Duration time.Duration `json:"duration"`
	// DurationText is the duration in whole days, e.g. "7 days".
	DurationText string `json:"durationText"`
}

// Overview is everything the wizard screens render, derived from the
// current answers, rate, estimate and transaction state.
type Overview struct {
	Chain  chains.ChainType `json:"chain"`
	Symbol string           `json:"symbol"`

	Draft  *tip.FormDraft       `json:"draft"`
	Errors tip.ValidationErrors `json:"errors,omitempty"`
	Totals tip.PriceTotals      `json:"totals"`
	// TotalText is the token total, e.g. "5 KSM". Empty without a rate.
	TotalText string     `json:"totalText,omitempty"`
	Rate      *float64   `json:"rate"`
	Category  string     `json:"category"`
	Track     *TrackInfo `json:"track,omitempty"`

	Estimate     *referenda.Cost `json:"estimate"`
	EstimateText string          `json:"estimateText,omitempty"`
	// EstimateNote says why no estimate is shown, e.g. "enter amount to see
	// cost".
	EstimateNote string `json:"estimateNote,omitempty"`

	Account string `json:"account,omitempty"`
	// Balance is hidden along with the deposits of a tip too large to submit.
	Balance  *big.Int        `json:"balance"`
	Submit   tip.SubmitState `json:"submit"`
	Markdown string          `json:"markdown"`
	HTML     string          `json:"html"`

	Step      *txprocess.ActiveStep `json:"step"`
	LastSaved string                `json:"lastSaved,omitempty"`
}

// Overview derives the wizard view. Identity and track lookups that fail
// leave the corresponding fields empty.
func (mgr *TipManager) Overview(ctx context.Context) *Overview {
	mgr.mtx.RLock()
	session, draft := mgr.session, mgr.draft.Copy()
	account := mgr.account
	var balance *big.Int
	if mgr.balance != nil {
		balance = new(big.Int).Set(mgr.balance)
	}
	mgr.mtx.RUnlock()

	params := session.params
	rate := mgr.RateSource.Rate()
	totals := tip.CalculatePriceTotals(draft, rate)
	_, errs := tip.Validate(draft, params)

	category := tip.ClassifyToken(totals.TotalAmountToken, params)
	view := &Overview{
		Chain:    params.Type,
		Symbol:   params.Symbol,
		Draft:    draft,
		Errors:   errs,
		Totals:   totals,
		Rate:     rate,
		Category: category.String(),
		Account:  account,
		Submit:   mgr.SubmitState(),
		Step:     mgr.ActiveStep(),
	}
	if category != tip.CategoryTooLarge {
		view.Balance = balance
	}
	if totals.TotalAmountToken != nil {
		view.TotalText = params.FormatToken(params.ToPlanck(*totals.TotalAmountToken))
	}
	estimate, note := mgr.EstimateWithNote()
	view.EstimateNote = note
	if estimate != nil {
		view.Estimate = estimate
		view.EstimateText = params.FormatToken(estimate.Total())
	}

	var identities map[string]string
	if session.identities != nil {
		identities = session.identities.Resolve(ctx, draft.TipBeneficiary, draft.Referral)
	}
	view.Markdown = tip.GenerateMarkdown(draft, totals.TotalAmountToken, identities, params.Symbol)
	view.HTML = tip.RenderPreviewHTML(view.Markdown)

	view.LastSaved = mgr.Forms.LastSavedAgo()

	if session.backend != nil {
		track, value := estimateInput(draft, rate, params)
		resolved, err := referenda.ResolveTrack(ctx, session.backend.Gov, value, track)
		if err != nil {
			log.Debugf("Unable to resolve track for overview: %v", err)
		} else {
			duration := referenda.Duration(resolved.Track, time.Duration(params.BlockLength)*time.Second)
			view.Track = &TrackInfo{
				ID:           resolved.Track.ID,
				Name:         resolved.Track.Name,
				Title:        referenda.TrackTitle(resolved.Track.Name),
				Duration:     duration,
				DurationText: utils.FormatInteger(duration.Hours()/24) + " days",
			}
		}
	}
	return view
}

// Preview renders the referendum description of the current answers.
func (mgr *TipManager) Preview(ctx context.Context) (markdown, html string) {
	mgr.mtx.RLock()
	session, draft := mgr.session, mgr.draft.Copy()
	mgr.mtx.RUnlock()

	totals := tip.CalculatePriceTotals(draft, mgr.RateSource.Rate())
	var identities map[string]string
	if session.identities != nil {
		identities = session.identities.Resolve(ctx, draft.TipBeneficiary, draft.Referral)
	}
	markdown = tip.GenerateMarkdown(draft, totals.TotalAmountToken, identities, session.params.Symbol)
	return markdown, tip.RenderPreviewHTML(markdown)
}
