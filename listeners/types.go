package listeners

import (
	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/history"
	"github.com/crypto-power/tipwizard/libtipper/txprocess"
)

type StepNotifType int

const (
	// Step notification types
	StepStateChanged      StepNotifType = iota // 0 = step state changed.
	ReferendumCreated                          // 1 = referendum index recovered.
	DecisionDepositPlaced                      // 2 = decision deposit finalized.
)

func (t StepNotifType) String() string {
	switch t {
	case StepStateChanged:
		return "step_state_changed"
	case ReferendumCreated:
		return "referendum_created"
	case DecisionDepositPlaced:
		return "decision_deposit_placed"
	default:
		return "unknown"
	}
}

// StepNotification models transaction step notifications.
type StepNotification struct {
	Type  StepNotifType           `json:"-"`
	Name  string                  `json:"type"`
	Step  txprocess.Step          `json:"step,omitempty"`
	State *txprocess.ProcessState `json:"state,omitempty"`
	Index uint32                  `json:"index,omitempty"`
}

type ReferendumStatus int

const (
	Recorded ReferendumStatus = iota
	DepositPlaced
	SubmissionFailed
)

// ReferendumNotification models submitted referenda notifications.
type ReferendumNotification struct {
	Status     ReferendumStatus
	Referendum *history.Referendum
	Chain      chains.ChainType
	Step       string
	Message    string
}
