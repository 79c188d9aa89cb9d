package libtipper

import (
	"errors"
	"time"

	"github.com/crypto-power/tipwizard/libtipper/history"
	"github.com/crypto-power/tipwizard/libtipper/txprocess"
	"github.com/crypto-power/tipwizard/libtipper/utils"
)

// AddStepListener registers a listener for transaction step changes of
// whichever chain is selected.
func (mgr *TipManager) AddStepListener(listener txprocess.StepListener, uniqueIdentifier string) error {
	mgr.stepListenersMu.Lock()
	defer mgr.stepListenersMu.Unlock()

	if _, ok := mgr.stepListeners[uniqueIdentifier]; ok {
		return errors.New(utils.ErrListenerAlreadyExist)
	}

	mgr.stepListeners[uniqueIdentifier] = listener
	return nil
}

func (mgr *TipManager) RemoveStepListener(uniqueIdentifier string) {
	mgr.stepListenersMu.Lock()
	defer mgr.stepListenersMu.Unlock()

	delete(mgr.stepListeners, uniqueIdentifier)
}

func (mgr *TipManager) eachStepListener(fn func(txprocess.StepListener)) {
	mgr.stepListenersMu.RLock()
	defer mgr.stepListenersMu.RUnlock()
	for _, l := range mgr.stepListeners {
		fn(l)
	}
}

// OnStepStateChanged implements txprocess.StepListener.
func (mgr *TipManager) OnStepStateChanged(step txprocess.Step, state txprocess.ProcessState) {
	switch state.Kind {
	case txprocess.StateFinalizedFailure:
		mgr.History.RecordFailure(mgr.Chain().Type, string(step), "transaction finalized with failure")
	case txprocess.StateErrored:
		mgr.History.RecordFailure(mgr.Chain().Type, string(step), state.Event.ErrorMessage())
	}

	if state.IsTerminal() {
		go mgr.refreshBalance()
	}

	mgr.eachStepListener(func(l txprocess.StepListener) {
		l.OnStepStateChanged(step, state)
	})
}

// OnReferendumCreated implements txprocess.StepListener. The referendum is
// recorded from the form the creation transaction was built from.
func (mgr *TipManager) OnReferendumCreated(index uint32) {
	mgr.mtx.RLock()
	session := mgr.session
	form, spends := session.prepared, session.spends
	mgr.mtx.RUnlock()

	if form != nil {
		referendum := &history.Referendum{
			Key:         history.ReferendumKey(session.params.Type, index),
			Chain:       session.params.Type,
			Index:       index,
			Title:       form.Title,
			Beneficiary: form.Beneficiary,
			Referral:    form.Referral,
			Track:       string(form.Track),
			CreatedAt:   time.Now().Unix(),
		}
		if spends != nil {
			referendum.AmountPlanck = spends.Total.String()
		}
		if state, err := session.sequencer.State(txprocess.StepCreation); err == nil && state.Event != nil {
			referendum.CreationTxHash = state.Event.TxHash
			referendum.CreationBlockHash = state.Event.BlockHash
		}
		if err := mgr.History.Record(referendum); err != nil {
			log.Errorf("Unable to record referendum %d: %v", index, err)
		}
	} else {
		log.Warnf("Referendum %d created without a prepared form", index)
	}

	mgr.eachStepListener(func(l txprocess.StepListener) {
		l.OnReferendumCreated(index)
	})
}

// OnDecisionDepositPlaced implements txprocess.StepListener.
func (mgr *TipManager) OnDecisionDepositPlaced(index uint32) {
	mgr.mtx.RLock()
	session := mgr.session
	mgr.mtx.RUnlock()

	var txHash string
	if state, err := session.sequencer.State(txprocess.StepDecisionDeposit); err == nil && state.Event != nil {
		txHash = state.Event.TxHash
	}
	if _, err := mgr.History.MarkDecisionDeposit(session.params.Type, index, txHash); err != nil {
		log.Errorf("Unable to mark decision deposit of referendum %d: %v", index, err)
	}

	mgr.eachStepListener(func(l txprocess.StepListener) {
		l.OnDecisionDepositPlaced(index)
	})
}

// AddNotificationListener registers a listener for submitted referenda
// changes.
func (mgr *TipManager) AddNotificationListener(listener history.NotificationListener, uniqueIdentifier string) error {
	return mgr.History.AddNotificationListener(listener, uniqueIdentifier)
}

func (mgr *TipManager) RemoveNotificationListener(uniqueIdentifier string) {
	mgr.History.RemoveNotificationListener(uniqueIdentifier)
}
