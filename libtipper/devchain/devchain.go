// Package devchain is an in-memory relay chain implementing the chain client,
// governance and signer collaborators. It backs the --devchain mode and the
// tests of every package that drives transactions.
package devchain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/referenda"
	"github.com/crypto-power/tipwizard/libtipper/txprocess"
	"golang.org/x/crypto/blake2b"
)

// Outcome scripts how the next submitted transaction ends.
type Outcome int

const (
	// OutcomeSuccess finalizes with ok=true.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure finalizes with ok=false.
	OutcomeFailure
	// OutcomeCancel rejects the signing prompt.
	OutcomeCancel
	// OutcomeError fails the broadcast.
	OutcomeError
	// OutcomeDuplicateFinalized emits the successful finalized event twice.
	OutcomeDuplicateFinalized
	// OutcomeNoIndex finalizes successfully without a Submitted event.
	OutcomeNoIndex
	// OutcomePending broadcasts and never finalizes.
	OutcomePending
)

// Chain is the simulated chain.
type Chain struct {
	params *chains.Params
	signer string

	mtx               sync.Mutex
	balances          map[string]*big.Int
	identities        map[string]string
	tracks            map[uint16]*referenda.Track
	trackDelays       map[uint16]time.Duration
	submissionDeposit *big.Int
	recipientDeposit  *big.Int
	fee               *big.Int
	lookupErr         error
	outcomes          []Outcome
	nextIndex         uint32
	blockTime         time.Duration
	calls             map[string]int
	submitted         []*referenda.Call
	txCount           int
}

// Option configures a Chain.
type Option func(*Chain)

// WithBalance sets the free balance of address.
func WithBalance(address string, planck *big.Int) Option {
	return func(c *Chain) { c.balances[address] = new(big.Int).Set(planck) }
}

// WithIdentity sets the display name of address.
func WithIdentity(address, name string) Option {
	return func(c *Chain) { c.identities[address] = name }
}

// WithOutcomes scripts the outcome of the next submissions in order.
func WithOutcomes(outcomes ...Outcome) Option {
	return func(c *Chain) { c.outcomes = append(c.outcomes, outcomes...) }
}

// WithBlockTime sets the delay between lifecycle events.
func WithBlockTime(d time.Duration) Option {
	return func(c *Chain) { c.blockTime = d }
}

// WithSigner sets the account transactions are signed with.
func WithSigner(address string) Option {
	return func(c *Chain) { c.signer = address }
}

// WithNextIndex sets the index of the next submitted referendum.
func WithNextIndex(index uint32) Option {
	return func(c *Chain) { c.nextIndex = index }
}

// New returns a simulated chain for params with deposits and tracks shaped
// after the live network.
func New(params *chains.Params, opts ...Option) *Chain {
	token := func(v float64) *big.Int { return params.ToPlanck(v) }
	days := func(d uint32) uint32 { return d * 24 * 60 * 10 }

	c := &Chain{
		params:            params,
		signer:            referenda.DummySigner,
		balances:          make(map[string]*big.Int),
		identities:        make(map[string]string),
		trackDelays:       make(map[uint16]time.Duration),
		submissionDeposit: token(0.0333),
		recipientDeposit:  token(1),
		fee:               token(0.001),
		blockTime:         time.Millisecond,
		nextIndex:         400,
		calls:             make(map[string]int),
		tracks: map[uint16]*referenda.Track{
			chains.TreasurerTrackID: {
				ID: chains.TreasurerTrackID, Name: "treasurer", DecisionDeposit: token(10),
				PreparePeriod: 1200, DecisionPeriod: days(7), ConfirmPeriod: 300, MinEnactmentPeriod: days(1),
			},
			chains.SmallTipperTrackID: {
				ID: chains.SmallTipperTrackID, Name: "small_tipper", DecisionDeposit: token(1),
				PreparePeriod: 10, DecisionPeriod: days(7), ConfirmPeriod: 10, MinEnactmentPeriod: 10,
			},
			chains.BigTipperTrackID: {
				ID: chains.BigTipperTrackID, Name: "big_tipper", DecisionDeposit: token(3.333),
				PreparePeriod: 100, DecisionPeriod: days(7), ConfirmPeriod: 100, MinEnactmentPeriod: 100,
			},
			32: {
				ID: 32, Name: "small_spender", DecisionDeposit: token(33.333),
				PreparePeriod: 2400, DecisionPeriod: days(28), ConfirmPeriod: 1200, MinEnactmentPeriod: days(1),
			},
			33: {
				ID: 33, Name: "medium_spender", DecisionDeposit: token(66.666),
				PreparePeriod: 2400, DecisionPeriod: days(28), ConfirmPeriod: 2400, MinEnactmentPeriod: days(1),
			},
			34: {
				ID: 34, Name: "big_spender", DecisionDeposit: token(133.333),
				PreparePeriod: 2400, DecisionPeriod: days(28), ConfirmPeriod: 4800, MinEnactmentPeriod: days(1),
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Params returns the parameters of the simulated chain.
func (c *Chain) Params() *chains.Params {
	return c.params
}

// SetTrack replaces or adds a track.
func (c *Chain) SetTrack(track *referenda.Track) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.tracks[track.ID] = track
}

// RemoveTrack deletes a track.
func (c *Chain) RemoveTrack(id uint16) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	delete(c.tracks, id)
}

// SetSubmissionDeposit replaces the network submission deposit.
func (c *Chain) SetSubmissionDeposit(planck *big.Int) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.submissionDeposit = new(big.Int).Set(planck)
}

// SetTrackDelay delays lookups of track id by d.
func (c *Chain) SetTrackDelay(id uint16, d time.Duration) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.trackDelays[id] = d
}

// SetLookupError makes every constant and track lookup fail with err until
// cleared with nil.
func (c *Chain) SetLookupError(err error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.lookupErr = err
}

// QueueOutcomes appends scripted outcomes.
func (c *Chain) QueueOutcomes(outcomes ...Outcome) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.outcomes = append(c.outcomes, outcomes...)
}

// CallCount returns how many times a call was constructed.
func (c *Chain) CallCount(name string) int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.calls[name]
}

// Submitted returns every call handed to the signer.
func (c *Chain) Submitted() []*referenda.Call {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]*referenda.Call(nil), c.submitted...)
}

func (c *Chain) lookup(ctx context.Context, delay time.Duration) error {
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.lookupErr
}

func (c *Chain) newCall(pallet, method string, args map[string]interface{}) *referenda.Call {
	c.mtx.Lock()
	c.calls[pallet+"."+method]++
	c.mtx.Unlock()
	return &referenda.Call{Pallet: pallet, Method: method, Args: args}
}

// SubmissionDeposit implements referenda.ChainClient.
func (c *Chain) SubmissionDeposit(ctx context.Context) (*big.Int, error) {
	if err := c.lookup(ctx, 0); err != nil {
		return nil, err
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return new(big.Int).Set(c.submissionDeposit), nil
}

// RecipientDeposit implements referenda.ChainClient.
func (c *Chain) RecipientDeposit(ctx context.Context) (*big.Int, error) {
	if err := c.lookup(ctx, 0); err != nil {
		return nil, err
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return new(big.Int).Set(c.recipientDeposit), nil
}

// FreeBalance implements referenda.ChainClient.
func (c *Chain) FreeBalance(ctx context.Context, address string) (*big.Int, bool, error) {
	if err := c.lookup(ctx, 0); err != nil {
		return nil, false, err
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	balance, ok := c.balances[address]
	if !ok {
		return new(big.Int), false, nil
	}
	return new(big.Int).Set(balance), true, nil
}

// Identity implements referenda.ChainClient.
func (c *Chain) Identity(ctx context.Context, address string) (string, error) {
	if err := c.lookup(ctx, 0); err != nil {
		return "", err
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.identities[address], nil
}

func countCalls(call *referenda.Call) int64 {
	inner := call.Inner()
	if len(inner) == 0 {
		return 1
	}
	var n int64
	for _, c := range inner {
		n += countCalls(c)
	}
	return n
}

// EstimateFees implements referenda.ChainClient.
func (c *Chain) EstimateFees(ctx context.Context, call *referenda.Call, from string) (*big.Int, error) {
	if err := c.lookup(ctx, 0); err != nil {
		return nil, err
	}
	if call == nil {
		return nil, errors.E(errors.Invalid, "nil call")
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return new(big.Int).Mul(c.fee, big.NewInt(countCalls(call))), nil
}

// TreasurySpend implements referenda.ChainClient.
func (c *Chain) TreasurySpend(beneficiary string, amount *big.Int) *referenda.Call {
	return c.newCall("Treasury", "spend", map[string]interface{}{
		"amount":      new(big.Int).Set(amount),
		"beneficiary": beneficiary,
		"asset_kind":  "native",
	})
}

// TransferKeepAlive implements referenda.ChainClient.
func (c *Chain) TransferKeepAlive(dest string, value *big.Int) *referenda.Call {
	return c.newCall("Balances", "transfer_keep_alive", map[string]interface{}{
		"dest":  dest,
		"value": new(big.Int).Set(value),
	})
}

// BatchAll implements referenda.ChainClient.
func (c *Chain) BatchAll(calls ...*referenda.Call) *referenda.Call {
	return c.newCall("Utility", "batch_all", map[string]interface{}{
		"calls": calls,
	})
}

// PlaceDecisionDeposit implements referenda.ChainClient.
func (c *Chain) PlaceDecisionDeposit(index uint32) *referenda.Call {
	return c.newCall("Referenda", "place_decision_deposit", map[string]interface{}{
		"index": index,
	})
}

// TrackByID implements referenda.Governance.
func (c *Chain) TrackByID(ctx context.Context, id uint16) (*referenda.Track, error) {
	c.mtx.Lock()
	delay := c.trackDelays[id]
	c.mtx.Unlock()

	if err := c.lookup(ctx, delay); err != nil {
		return nil, err
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()
	track, ok := c.tracks[id]
	if !ok {
		return nil, nil
	}
	t := *track
	return &t, nil
}

// TrackByName implements referenda.Governance.
func (c *Chain) TrackByName(ctx context.Context, name string) (*referenda.Track, error) {
	c.mtx.Lock()
	var id uint16
	var found bool
	for trackID, track := range c.tracks {
		if track.Name == name {
			id, found = trackID, true
			break
		}
	}
	c.mtx.Unlock()

	if !found {
		if err := c.lookup(ctx, 0); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return c.TrackByID(ctx, id)
}

// SpenderTrack implements referenda.Governance. Spend limits grow by an
// order of magnitude from one spender track to the next.
func (c *Chain) SpenderTrack(ctx context.Context, value *big.Int) (*referenda.ResolvedTrack, error) {
	th := c.params.Thresholds()
	limits := []struct {
		id     uint16
		origin string
		limit  *big.Int
	}{
		{chains.SmallTipperTrackID, "SmallTipper", th.SmallTipper},
		{chains.BigTipperTrackID, "BigTipper", th.BigTipper},
		{32, "SmallSpender", new(big.Int).Mul(th.BigTipper, big.NewInt(10))},
		{33, "MediumSpender", new(big.Int).Mul(th.BigTipper, big.NewInt(100))},
		{34, "BigSpender", new(big.Int).Mul(th.BigTipper, big.NewInt(1000))},
	}

	id, origin := chains.TreasurerTrackID, "Treasurer"
	for _, l := range limits {
		if value.Cmp(l.limit) <= 0 {
			id, origin = l.id, l.origin
			break
		}
	}

	track, err := c.TrackByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, nil
	}
	return &referenda.ResolvedTrack{
		Track:  track,
		Origin: referenda.Origin{Type: "Origins", Value: origin},
	}, nil
}

// CreateReferendum implements referenda.Governance.
func (c *Chain) CreateReferendum(origin referenda.Origin, proposal *referenda.Call) *referenda.Call {
	return c.newCall("Referenda", "submit", map[string]interface{}{
		"proposal_origin":  origin,
		"proposal":         proposal,
		"enactment_moment": "After(0)",
	})
}

// SetSigner switches the account transactions are signed with.
func (c *Chain) SetSigner(address string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.signer = address
}

// SetBalance replaces the free balance of address.
func (c *Chain) SetBalance(address string, planck *big.Int) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.balances[address] = new(big.Int).Set(planck)
}

// Address implements txprocess.Signer.
func (c *Chain) Address() string {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.signer
}

func containsSubmit(call *referenda.Call) bool {
	if call == nil {
		return false
	}
	if call.Pallet == "Referenda" && call.Method == "submit" {
		return true
	}
	for _, inner := range call.Inner() {
		if containsSubmit(inner) {
			return true
		}
	}
	return false
}

func (c *Chain) nextOutcome() Outcome {
	if len(c.outcomes) == 0 {
		return OutcomeSuccess
	}
	outcome := c.outcomes[0]
	c.outcomes = c.outcomes[1:]
	return outcome
}

// SignSubmitAndWatch implements txprocess.Signer.
func (c *Chain) SignSubmitAndWatch(ctx context.Context, tx *referenda.Call) (<-chan txprocess.TxEvent, error) {
	if tx == nil {
		return nil, errors.E(errors.Invalid, "nil transaction")
	}

	c.mtx.Lock()
	c.txCount++
	outcome := c.nextOutcome()
	txHash := hashOf(fmt.Sprintf("%s:%d", tx, c.txCount))
	blockHash := hashOf(txHash)
	c.submitted = append(c.submitted, tx)

	var events []referenda.ChainEvent
	if containsSubmit(tx) && outcome != OutcomeNoIndex {
		events = append(events, referenda.ChainEvent{
			Pallet: "Referenda",
			Name:   "Submitted",
			Data:   []interface{}{c.nextIndex},
		})
		if outcome == OutcomeSuccess || outcome == OutcomeDuplicateFinalized {
			c.nextIndex++
		}
	}
	if tx.Pallet == "Referenda" && tx.Method == "place_decision_deposit" {
		events = append(events, referenda.ChainEvent{
			Pallet: "Referenda",
			Name:   "DecisionDepositPlaced",
			Data:   []interface{}{tx.Args["index"], c.signer},
		})
	}
	events = append(events, referenda.ChainEvent{Pallet: "System", Name: "ExtrinsicSuccess"})
	blockTime, signer := c.blockTime, c.signer
	c.mtx.Unlock()

	log.Debugf("%s.%s signed by %s, tx %s", tx.Pallet, tx.Method, signer, txHash)

	ch := make(chan txprocess.TxEvent, 8)
	go func() {
		defer close(ch)

		send := func(ev txprocess.TxEvent) bool {
			select {
			case <-time.After(blockTime):
			case <-ctx.Done():
				return false
			}
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if outcome == OutcomeCancel {
			send(txprocess.TxEvent{Type: txprocess.EventError, Err: txprocess.ErrCancelled})
			return
		}
		if !send(txprocess.TxEvent{Type: txprocess.EventSigned, TxHash: txHash}) {
			return
		}
		if outcome == OutcomeError {
			send(txprocess.TxEvent{Type: txprocess.EventError, TxHash: txHash,
				Err: errors.E(errors.IO, "transaction could not be broadcast")})
			return
		}
		if !send(txprocess.TxEvent{Type: txprocess.EventBroadcasted, TxHash: txHash}) {
			return
		}
		if !send(txprocess.TxEvent{Type: txprocess.EventBestBlock, TxHash: txHash, BlockHash: blockHash, Ok: outcome != OutcomeFailure}) {
			return
		}
		if outcome == OutcomePending {
			<-ctx.Done()
			return
		}

		finalized := txprocess.TxEvent{
			Type:      txprocess.EventFinalized,
			TxHash:    txHash,
			BlockHash: blockHash,
			Ok:        outcome != OutcomeFailure,
		}
		if outcome == OutcomeFailure {
			finalized.Events = []referenda.ChainEvent{{Pallet: "System", Name: "ExtrinsicFailed"}}
		} else {
			finalized.Events = events
		}
		if !send(finalized) {
			return
		}
		log.Infof("Finalized %s in block %s (ok=%v)", txHash, blockHash, finalized.Ok)
		if outcome == OutcomeDuplicateFinalized {
			send(finalized)
		}
	}()

	return ch, nil
}

func hashOf(s string) string {
	sum := blake2b.Sum256([]byte(s))
	return "0x" + hex.EncodeToString(sum[:])
}
