package listeners

import (
	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/history"
)

// ReferendaNotificationListener satisfies history
// NotificationListener interface contract.
type ReferendaNotificationListener struct {
	ReferendaNotifChan chan ReferendumNotification
}

func NewReferendaNotificationListener() *ReferendaNotificationListener {
	return &ReferendaNotificationListener{
		ReferendaNotifChan: make(chan ReferendumNotification, 4),
	}
}

func (rn *ReferendaNotificationListener) OnReferendumCreated(referendum *history.Referendum) {
	rn.sendNotification(ReferendumNotification{
		Status:     Recorded,
		Referendum: referendum,
		Chain:      referendum.Chain,
	})
}

func (rn *ReferendaNotificationListener) OnDecisionDepositPlaced(referendum *history.Referendum) {
	rn.sendNotification(ReferendumNotification{
		Status:     DepositPlaced,
		Referendum: referendum,
		Chain:      referendum.Chain,
	})
}

func (rn *ReferendaNotificationListener) OnSubmissionFailed(chain chains.ChainType, step, message string) {
	rn.sendNotification(ReferendumNotification{
		Status:  SubmissionFailed,
		Chain:   chain,
		Step:    step,
		Message: message,
	})
}

func (rn *ReferendaNotificationListener) sendNotification(signal ReferendumNotification) {
	select {
	case rn.ReferendaNotifChan <- signal:
	default:
	}
}
