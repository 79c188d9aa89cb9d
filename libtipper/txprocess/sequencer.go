package txprocess

import (
	"context"
	"sync"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper/referenda"
	"github.com/crypto-power/tipwizard/libtipper/tip"
	"github.com/crypto-power/tipwizard/libtipper/utils"
)

// ActiveKind tags the value held by an ActiveStep.
type ActiveKind string

const (
	// ActiveDescriptor is a transaction waiting for the user to submit it.
	ActiveDescriptor ActiveKind = "tx"
	// ActiveSubmitting is a transaction in flight or one that ended with a
	// failure the user has to act on.
	ActiveSubmitting ActiveKind = "submitting"
	// ActiveDone is a transaction finalized successfully.
	ActiveDone ActiveKind = "done"
)

// ActiveStep is what the UI shows at any instant.
type ActiveStep struct {
	Kind       ActiveKind              `json:"type"`
	Step       Step                    `json:"tag"`
	Descriptor *referenda.TxDescriptor `json:"tx,omitempty"`
	State      ProcessState            `json:"state"`
	// AwaitingSignature is set while the wallet prompt is open.
	AwaitingSignature bool `json:"awaitingSignature,omitempty"`
	// ReferendumIndex is set on a completed creation step when the index
	// could be recovered from its events.
	ReferendumIndex *uint32 `json:"referendumIndex,omitempty"`
}

// Sequencer drives referendum creation and then, once creation finalized
// successfully, the decision deposit for the referendum it created. The
// deposit is only ever triggered from the subscription wired up in Start.
type Sequencer struct {
	builder *referenda.Builder
	signer  Signer

	mtx            sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	creation       *Process
	deposit        *Process
	creationEvents chan ProcessState
	index          *uint32
	lastIndex      *uint32
	depositIndex   *uint32
	wg             sync.WaitGroup

	listenersMtx sync.RWMutex
	listeners    map[string]StepListener
}

// NewSequencer returns a sequencer that is idle until Start is called.
func NewSequencer(builder *referenda.Builder, signer Signer) *Sequencer {
	return &Sequencer{
		builder:   builder,
		signer:    signer,
		listeners: make(map[string]StepListener),
	}
}

// Start wires the creation step's terminal events to the decision deposit
// trigger. It must be called once before any other method.
func (s *Sequencer) Start(ctx context.Context) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.ctx != nil {
		return errors.E(errors.Invalid, "sequencer already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.creationEvents = make(chan ProcessState, 8)
	s.creation = newProcess(s.ctx, StepCreation, s.signer, s.forwardCreation)
	s.deposit = newProcess(s.ctx, StepDecisionDeposit, s.signer, s.onDepositState)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.watchCreation(s.ctx)
	}()

	log.Info("Transaction sequencer started")
	return nil
}

// Stop cancels every observation and waits for the goroutines to exit.
func (s *Sequencer) Stop() {
	s.mtx.RLock()
	cancel, creation, deposit := s.cancel, s.creation, s.deposit
	s.mtx.RUnlock()

	if cancel == nil {
		return
	}
	cancel()
	creation.wait()
	deposit.wait()
	s.wg.Wait()
	log.Info("Transaction sequencer stopped")
}

func (s *Sequencer) processes() (*Process, *Process, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.ctx == nil {
		return nil, nil, errors.E(errors.Invalid, utils.ErrFailedPrecondition)
	}
	return s.creation, s.deposit, nil
}

func (s *Sequencer) process(step Step) (*Process, error) {
	creation, deposit, err := s.processes()
	if err != nil {
		return nil, err
	}
	switch step {
	case StepCreation:
		return creation, nil
	case StepDecisionDeposit:
		return deposit, nil
	}
	return nil, errors.E(errors.Invalid, errors.Errorf("unknown step %q", step))
}

// forwardCreation hands creation states to the watcher goroutine so the
// deposit is triggered from one place only.
func (s *Sequencer) forwardCreation(_ Step, state ProcessState) {
	select {
	case s.creationEvents <- state:
	case <-s.ctx.Done():
	}
}

func (s *Sequencer) watchCreation(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case state := <-s.creationEvents:
			s.onCreationState(state)
		}
	}
}

func (s *Sequencer) onCreationState(state ProcessState) {
	s.notifyState(StepCreation, state)

	if state.Kind != StateFinalizedSuccess {
		return
	}

	index, ok := referenda.ExtractReferendumIndex(state.Event.Events)
	if !ok {
		return
	}

	s.mtx.Lock()
	if s.lastIndex != nil && *s.lastIndex == index {
		s.mtx.Unlock()
		log.Debugf("Ignoring repeated finalization for referendum %d", index)
		return
	}
	s.lastIndex = &index
	s.index = &index
	s.mtx.Unlock()

	log.Infof("Referendum %d created", index)
	s.listenersMtx.RLock()
	for _, l := range s.listeners {
		l.OnReferendumCreated(index)
	}
	s.listenersMtx.RUnlock()

	s.triggerDeposit(index)
}

func (s *Sequencer) triggerDeposit(index uint32) {
	descriptor := s.builder.BuildDecisionDepositTx(index)

	s.mtx.Lock()
	s.depositIndex = &index
	deposit := s.deposit
	s.mtx.Unlock()

	if err := deposit.SetDescriptor(descriptor); err != nil {
		log.Errorf("Unable to queue decision deposit for referendum %d: %v", index, err)
		return
	}
	if err := deposit.Submit(); err != nil {
		log.Errorf("Unable to submit decision deposit for referendum %d: %v", index, err)
	}
}

func (s *Sequencer) onDepositState(step Step, state ProcessState) {
	s.notifyState(step, state)

	if state.Kind != StateFinalizedSuccess {
		return
	}

	s.mtx.RLock()
	index := s.depositIndex
	s.mtx.RUnlock()
	if index == nil {
		return
	}

	s.listenersMtx.RLock()
	for _, l := range s.listeners {
		l.OnDecisionDepositPlaced(*index)
	}
	s.listenersMtx.RUnlock()
}

func (s *Sequencer) notifyState(step Step, state ProcessState) {
	s.listenersMtx.RLock()
	defer s.listenersMtx.RUnlock()
	for _, l := range s.listeners {
		l.OnStepStateChanged(step, state)
	}
}

// Prepare builds the creation transaction for form. A nil descriptor
// without error means there is nothing to submit yet and clears any pending
// creation transaction.
func (s *Sequencer) Prepare(ctx context.Context, form *tip.ValidatedForm, rate *float64) (*referenda.TxDescriptor, error) {
	creation, deposit, err := s.processes()
	if err != nil {
		return nil, err
	}

	deposit.mtx.RLock()
	depositBusy := deposit.busy()
	deposit.mtx.RUnlock()
	if depositBusy {
		return nil, errors.E(errors.Invalid, utils.ErrStepInProgress)
	}

	descriptor, err := s.builder.BuildCreationTx(ctx, form, rate)
	if err != nil {
		return nil, err
	}

	if err := creation.SetDescriptor(descriptor); err != nil {
		return nil, err
	}

	deposit.Dismiss()
	s.mtx.Lock()
	s.index = nil
	s.depositIndex = nil
	s.mtx.Unlock()
	return descriptor, nil
}

// Submit submits the pending transaction of step.
func (s *Sequencer) Submit(step Step) error {
	p, err := s.process(step)
	if err != nil {
		return err
	}
	return p.Submit()
}

// Dismiss drops the pending transaction of step and stops observing it.
func (s *Sequencer) Dismiss(step Step) error {
	p, err := s.process(step)
	if err != nil {
		return err
	}
	p.Dismiss()
	return nil
}

// Reset dismisses both steps. The last acted-on referendum index is kept so
// a late re-emission cannot trigger another deposit.
func (s *Sequencer) Reset() error {
	creation, deposit, err := s.processes()
	if err != nil {
		return err
	}
	creation.Dismiss()
	deposit.Dismiss()

	s.mtx.Lock()
	s.index = nil
	s.depositIndex = nil
	s.mtx.Unlock()
	return nil
}

// ReferendumIndex returns the index recovered from the creation events.
func (s *Sequencer) ReferendumIndex() (uint32, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.index == nil {
		return 0, false
	}
	return *s.index, true
}

// State returns the state of step.
func (s *Sequencer) State(step Step) (ProcessState, error) {
	p, err := s.process(step)
	if err != nil {
		return ProcessState{}, err
	}
	return p.State(), nil
}

func (s *Sequencer) stepView(p *Process) *ActiveStep {
	p.mtx.RLock()
	state, descriptor, submitting := p.state, p.descriptor, p.submitting
	p.mtx.RUnlock()

	switch state.Kind {
	case StateFinalizedSuccess:
		view := &ActiveStep{Kind: ActiveDone, Step: p.step, Descriptor: descriptor, State: state}
		if p.step == StepCreation {
			s.mtx.RLock()
			if s.index != nil {
				index := *s.index
				view.ReferendumIndex = &index
			}
			s.mtx.RUnlock()
		}
		return view
	case StateInFlight, StateFinalizedFailure, StateErrored:
		return &ActiveStep{Kind: ActiveSubmitting, Step: p.step, Descriptor: descriptor, State: state}
	}

	// Not submitted or cancelled: fall back to the descriptor.
	if descriptor == nil {
		return nil
	}
	return &ActiveStep{
		Kind:              ActiveDescriptor,
		Step:              p.step,
		Descriptor:        descriptor,
		State:             state,
		AwaitingSignature: submitting,
	}
}

// ActiveStep returns the step to display, scanning from the most recent
// step to the least recent. It is nil when there is nothing to show.
func (s *Sequencer) ActiveStep() *ActiveStep {
	creation, deposit, err := s.processes()
	if err != nil {
		return nil
	}
	for _, p := range []*Process{deposit, creation} {
		if view := s.stepView(p); view != nil {
			return view
		}
	}
	return nil
}

// AddStepListener registers listener under uniqueID.
func (s *Sequencer) AddStepListener(listener StepListener, uniqueID string) error {
	s.listenersMtx.Lock()
	defer s.listenersMtx.Unlock()

	if _, ok := s.listeners[uniqueID]; ok {
		return errors.New(utils.ErrListenerAlreadyExist)
	}
	s.listeners[uniqueID] = listener
	return nil
}

// RemoveStepListener unregisters the listener for uniqueID.
func (s *Sequencer) RemoveStepListener(uniqueID string) {
	s.listenersMtx.Lock()
	defer s.listenersMtx.Unlock()
	delete(s.listeners, uniqueID)
}
