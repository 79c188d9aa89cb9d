package listeners

import (
	"sync"

	"github.com/crypto-power/tipwizard/libtipper/txprocess"
)

// StepNotificationListener satisfies txprocess
// StepListener interface contract.
type StepNotificationListener struct {
	stepNotifChan chan StepNotification

	// The send path may still be running when the channel gets closed.
	// notifChanClosed is closed first so no send happens on a closed
	// channel.
	notifChanClosed chan struct{}
	// Waitgroup keeps track of all the write operations
	wg sync.WaitGroup
	// wgMu prevents calling Wait() and Add() simultaneously.
	wgMu sync.Mutex
}

func NewStepNotificationListener() *StepNotificationListener {
	return &StepNotificationListener{
		stepNotifChan:   make(chan StepNotification, 8),
		notifChanClosed: make(chan struct{}, 1),
	}
}

func (sn *StepNotificationListener) OnStepStateChanged(step txprocess.Step, state txprocess.ProcessState) {
	sn.UpdateNotification(StepNotification{
		Type:  StepStateChanged,
		Step:  step,
		State: &state,
	})
}

func (sn *StepNotificationListener) OnReferendumCreated(index uint32) {
	sn.UpdateNotification(StepNotification{
		Type:  ReferendumCreated,
		Step:  txprocess.StepCreation,
		Index: index,
	})
}

func (sn *StepNotificationListener) OnDecisionDepositPlaced(index uint32) {
	sn.UpdateNotification(StepNotification{
		Type:  DecisionDepositPlaced,
		Step:  txprocess.StepDecisionDeposit,
		Index: index,
	})
}

// StepNotifChan returns a read-only channel.
func (sn *StepNotificationListener) StepNotifChan() <-chan StepNotification {
	return sn.stepNotifChan
}

// UpdateNotification queues signal, dropping it when the reader lags
// behind.
func (sn *StepNotificationListener) UpdateNotification(signal StepNotification) {
	sn.wgMu.Lock()
	sn.wg.Add(1)
	sn.wgMu.Unlock()

	defer sn.wg.Done()

	select {
	case <-sn.notifChanClosed:
		return
	default:
	}

	signal.Name = signal.Type.String()
	select {
	case sn.stepNotifChan <- signal:
	default:
	}
}

func (sn *StepNotificationListener) CloseStepNotifChan() {
	close(sn.notifChanClosed)

	// Drain all unread channel's contents.
	go func() {
		for range sn.stepNotifChan {
		}
	}()

	// Wait until all pending writes succeed.
	sn.wgMu.Lock()
	sn.wg.Wait()
	sn.wgMu.Unlock()

	close(sn.stepNotifChan)
}
