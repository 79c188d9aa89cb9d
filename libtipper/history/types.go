package history

import (
	"fmt"
	"math/big"

	"github.com/crypto-power/tipwizard/libtipper/chains"
)

// Referendum is a tip referendum submitted from this wizard.
type Referendum struct {
	ID    int              `storm:"id,increment" json:"id"`
	Key   string           `storm:"unique" json:"key"`
	Chain chains.ChainType `storm:"index" json:"chain"`
	Index uint32           `json:"index"`

	Title       string `json:"title"`
	Beneficiary string `json:"beneficiary"`
	Referral    string `json:"referral,omitempty"`
	// AmountPlanck is the total spend in the chain's smallest unit.
	AmountPlanck string `json:"amountPlanck"`
	Track        string `json:"track"`

	CreationTxHash    string `json:"creationTxHash"`
	CreationBlockHash string `json:"creationBlockHash"`

	DecisionDepositPlaced bool   `json:"decisionDepositPlaced"`
	DecisionDepositTxHash string `json:"decisionDepositTxHash,omitempty"`

	CreatedAt       int64 `storm:"index" json:"createdAt"`
	DepositPlacedAt int64 `json:"depositPlacedAt,omitempty"`
}

// ReferendumKey identifies a referendum across chains.
func ReferendumKey(chain chains.ChainType, index uint32) string {
	return fmt.Sprintf("%s:%d", chain, index)
}

// Amount parses AmountPlanck.
func (r *Referendum) Amount() *big.Int {
	amount, ok := new(big.Int).SetString(r.AmountPlanck, 10)
	if !ok {
		return new(big.Int)
	}
	return amount
}

// NotificationListener is told about changes to the submitted referenda.
type NotificationListener interface {
	OnReferendumCreated(referendum *Referendum)
	OnDecisionDepositPlaced(referendum *Referendum)
	OnSubmissionFailed(chain chains.ChainType, step, message string)
}
