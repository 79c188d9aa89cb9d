// Package referenda resolves governance tracks, estimates the cost of a tip
// referendum and builds the transactions that create it.
package referenda

import (
	"context"
	"math/big"
)

// Call is a runtime call as constructed by the chain client. Batches carry
// their inner calls under the "calls" argument.
type Call struct {
	Pallet string                 `json:"pallet"`
	Method string                 `json:"method"`
	Args   map[string]interface{} `json:"args,omitempty"`
}

func (c *Call) String() string {
	if c == nil {
		return ""
	}
	return c.Pallet + "." + c.Method
}

// Inner returns the calls wrapped by a batch, or nil.
func (c *Call) Inner() []*Call {
	if c == nil {
		return nil
	}
	calls, _ := c.Args["calls"].([]*Call)
	return calls
}

// Origin is the dispatch origin a referendum is submitted with.
type Origin struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Track holds the deposit and timing parameters of a referenda track.
// Periods are in blocks.
type Track struct {
	ID                 uint16   `json:"id"`
	Name               string   `json:"name"`
	DecisionDeposit    *big.Int `json:"decisionDeposit"`
	PreparePeriod      uint32   `json:"preparePeriod"`
	DecisionPeriod     uint32   `json:"decisionPeriod"`
	ConfirmPeriod      uint32   `json:"confirmPeriod"`
	MinEnactmentPeriod uint32   `json:"minEnactmentPeriod"`
}

// ResolvedTrack pairs a track with the origin used to submit on it.
type ResolvedTrack struct {
	Track  *Track
	Origin Origin
}

// ChainEvent is one runtime event emitted by a finalized transaction.
type ChainEvent struct {
	Pallet string        `json:"pallet"`
	Name   string        `json:"name"`
	Data   []interface{} `json:"data,omitempty"`
}

// Explanation is the human readable description of a transaction. Param
// values are strings or nested explanations.
type Explanation struct {
	Text   string                 `json:"text"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// TxDescriptor is a transaction ready to be signed together with its
// explanation.
type TxDescriptor struct {
	Tx          *Call       `json:"tx"`
	Explanation Explanation `json:"explanation"`
}

// ChainClient is the typed chain API the wizard depends on.
type ChainClient interface {
	// SubmissionDeposit is the network's fixed deposit for any referendum.
	SubmissionDeposit(ctx context.Context) (*big.Int, error)
	// RecipientDeposit is the balance a beneficiary is topped up to before
	// the referendum is created.
	RecipientDeposit(ctx context.Context) (*big.Int, error)
	// FreeBalance returns the free balance of address. exists is false for
	// accounts unknown to the chain.
	FreeBalance(ctx context.Context, address string) (free *big.Int, exists bool, err error)
	// Identity returns the on-chain display name of address, empty if none.
	Identity(ctx context.Context, address string) (string, error)
	// EstimateFees estimates the fee of call when signed by from.
	EstimateFees(ctx context.Context, call *Call, from string) (*big.Int, error)

	TreasurySpend(beneficiary string, amount *big.Int) *Call
	TransferKeepAlive(dest string, value *big.Int) *Call
	BatchAll(calls ...*Call) *Call
	PlaceDecisionDeposit(index uint32) *Call
}

// Governance resolves tracks and builds referendum calls.
type Governance interface {
	// TrackByID returns nil without error when the id is unknown.
	TrackByID(ctx context.Context, id uint16) (*Track, error)
	// TrackByName returns nil without error when the name is unknown.
	TrackByName(ctx context.Context, name string) (*Track, error)
	// SpenderTrack picks the treasury spender track able to spend value.
	SpenderTrack(ctx context.Context, value *big.Int) (*ResolvedTrack, error)
	// CreateReferendum builds the submit call for proposal on origin.
	CreateReferendum(origin Origin, proposal *Call) *Call
}
