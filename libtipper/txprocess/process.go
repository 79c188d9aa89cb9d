package txprocess

import (
	"context"
	"sync"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper/referenda"
	"github.com/crypto-power/tipwizard/libtipper/utils"
)

// Process tracks a single transaction step from descriptor to finalization.
// Its state only ever changes in response to events reported by the signer.
type Process struct {
	step   Step
	signer Signer

	mtx        sync.RWMutex
	ctx        context.Context
	descriptor *referenda.TxDescriptor
	state      ProcessState
	submitting bool
	generation uint64
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	onEvent func(step Step, state ProcessState)
}

func newProcess(ctx context.Context, step Step, signer Signer, onEvent func(Step, ProcessState)) *Process {
	return &Process{
		step:    step,
		signer:  signer,
		ctx:     ctx,
		state:   ProcessState{Kind: StateNotSubmitted},
		onEvent: onEvent,
	}
}

// Step returns which step this process tracks.
func (p *Process) Step() Step {
	return p.step
}

// Descriptor returns the transaction awaiting or undergoing submission.
func (p *Process) Descriptor() *referenda.TxDescriptor {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.descriptor
}

// State returns the current lifecycle state.
func (p *Process) State() ProcessState {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.state
}

func (p *Process) busy() bool {
	return p.submitting || p.state.Kind == StateInFlight
}

// SetDescriptor replaces the transaction for this step and resets its state.
// It fails while a previous submission is still awaiting its outcome.
func (p *Process) SetDescriptor(descriptor *referenda.TxDescriptor) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.busy() {
		return errors.E(errors.Invalid, utils.ErrStepInProgress)
	}
	p.descriptor = descriptor
	p.state = ProcessState{Kind: StateNotSubmitted}
	return nil
}

// Submit hands the descriptor to the signer and starts observing the event
// stream it returns. There is no timeout: the step stays in flight until the
// signer reports a terminal event or the step is dismissed.
func (p *Process) Submit() error {
	p.mtx.Lock()
	if p.descriptor == nil || p.descriptor.Tx == nil {
		p.mtx.Unlock()
		return errors.E(errors.Invalid, utils.ErrNothingToSubmit)
	}
	if p.busy() {
		p.mtx.Unlock()
		return errors.E(errors.Invalid, utils.ErrStepInProgress)
	}
	if p.state.Kind == StateFinalizedSuccess {
		p.mtx.Unlock()
		return errors.E(errors.Exist, "step already finalized")
	}

	p.generation++
	generation := p.generation
	p.submitting = true
	p.state = ProcessState{Kind: StateNotSubmitted}

	ctx, cancel := context.WithCancel(p.ctx)
	p.cancel = cancel
	tx := p.descriptor.Tx
	p.wg.Add(1)
	p.mtx.Unlock()

	log.Infof("Submitting %s step: %s", p.step, tx)
	go func() {
		defer p.wg.Done()
		p.observe(ctx, generation, tx)
	}()
	return nil
}

func (p *Process) observe(ctx context.Context, generation uint64, tx *referenda.Call) {
	events, err := p.signer.SignSubmitAndWatch(ctx, tx)
	if err != nil {
		p.apply(generation, &TxEvent{Type: EventError, Err: err})
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				p.mtx.Lock()
				if p.generation == generation {
					p.submitting = false
				}
				p.mtx.Unlock()
				return
			}
			p.apply(generation, &ev)
		}
	}
}

// apply records ev unless the submission it belongs to was dismissed.
func (p *Process) apply(generation uint64, ev *TxEvent) {
	p.mtx.Lock()
	if p.generation != generation {
		p.mtx.Unlock()
		return
	}
	state := stateFromEvent(ev)
	p.state = state
	p.submitting = false
	p.mtx.Unlock()

	switch state.Kind {
	case StateFinalizedFailure:
		log.Errorf("%s step finalized with failure in block %s", p.step, ev.BlockHash)
	case StateErrored:
		log.Errorf("%s step errored: %v", p.step, ev.Err)
	case StateCancelled:
		log.Infof("%s step cancelled by user", p.step)
	default:
		log.Debugf("%s step event: %s", p.step, ev.Type)
	}

	if p.onEvent != nil {
		p.onEvent(p.step, state)
	}
}

// Dismiss drops the descriptor and stops observing any submission in
// progress. Events that arrive afterwards are ignored.
func (p *Process) Dismiss() {
	p.mtx.Lock()
	p.generation++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.descriptor = nil
	p.submitting = false
	p.state = ProcessState{Kind: StateNotSubmitted}
	p.mtx.Unlock()
}

// wait blocks until the observation goroutines have returned.
func (p *Process) wait() {
	p.wg.Wait()
}
