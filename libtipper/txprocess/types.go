// Package txprocess tracks signed transactions through to finalization and
// sequences the referendum creation and decision deposit steps.
package txprocess

import (
	"context"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper/referenda"
)

// ErrCancelled is reported by a Signer when the user rejects the signing
// prompt.
var ErrCancelled = errors.New("Cancelled")

// EventType is the kind of a TxEvent.
type EventType string

const (
	EventSigned      EventType = "signed"
	EventBroadcasted EventType = "broadcasted"
	EventBestBlock   EventType = "txBestBlocksState"
	EventFinalized   EventType = "finalized"
	EventError       EventType = "error"
)

// TxEvent is one lifecycle event reported by the chain client for a
// submitted transaction.
type TxEvent struct {
	Type      EventType              `json:"type"`
	TxHash    string                 `json:"txHash,omitempty"`
	BlockHash string                 `json:"blockHash,omitempty"`
	Ok        bool                   `json:"ok"`
	Events    []referenda.ChainEvent `json:"events,omitempty"`
	Err       error                  `json:"-"`
}

// ErrorMessage returns the error text of an error event.
func (e *TxEvent) ErrorMessage() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// IsCancelled reports whether the event is a user cancellation.
func (e *TxEvent) IsCancelled() bool {
	return e != nil && e.Type == EventError && e.Err != nil &&
		(errors.Is(e.Err, ErrCancelled) || e.Err.Error() == ErrCancelled.Error())
}

// IsTerminal reports whether no further events follow e.
func (e *TxEvent) IsTerminal() bool {
	return e != nil && (e.Type == EventFinalized || e.Type == EventError)
}

// Signer hands transactions to the user's wallet and streams their
// lifecycle. The returned channel is closed once a terminal event was sent
// or ctx is done.
type Signer interface {
	Address() string
	SignSubmitAndWatch(ctx context.Context, tx *referenda.Call) (<-chan TxEvent, error)
}

// StateKind is the lifecycle position of one tracked transaction.
type StateKind string

const (
	StateNotSubmitted     StateKind = "not_submitted"
	StateInFlight         StateKind = "in_flight"
	StateFinalizedSuccess StateKind = "finalized_success"
	StateFinalizedFailure StateKind = "finalized_failure"
	StateCancelled        StateKind = "cancelled"
	StateErrored          StateKind = "errored"
)

// ProcessState is the state of a tracked transaction together with the
// chain event that produced it.
type ProcessState struct {
	Kind  StateKind `json:"kind"`
	Event *TxEvent  `json:"event,omitempty"`
}

// IsTerminal reports whether the state can no longer change without a new
// submission.
func (s ProcessState) IsTerminal() bool {
	switch s.Kind {
	case StateFinalizedSuccess, StateFinalizedFailure, StateCancelled, StateErrored:
		return true
	}
	return false
}

// stateFromEvent derives the state exclusively from the latest event.
func stateFromEvent(ev *TxEvent) ProcessState {
	switch {
	case ev == nil:
		return ProcessState{Kind: StateNotSubmitted}
	case ev.Type == EventFinalized && ev.Ok:
		return ProcessState{Kind: StateFinalizedSuccess, Event: ev}
	case ev.Type == EventFinalized:
		return ProcessState{Kind: StateFinalizedFailure, Event: ev}
	case ev.IsCancelled():
		return ProcessState{Kind: StateCancelled, Event: ev}
	case ev.Type == EventError:
		return ProcessState{Kind: StateErrored, Event: ev}
	default:
		return ProcessState{Kind: StateInFlight, Event: ev}
	}
}

// Step names one of the tracked transactions.
type Step string

const (
	StepCreation        Step = "ref"
	StepDecisionDeposit Step = "decision"
)

// StepListener receives sequencer notifications.
type StepListener interface {
	OnStepStateChanged(step Step, state ProcessState)
	OnReferendumCreated(index uint32)
	OnDecisionDepositPlaced(index uint32)
}
