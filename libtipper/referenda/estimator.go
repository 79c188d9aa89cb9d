package referenda

import (
	"context"
	"math/big"
	"sync"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/utils"
)

// Cost is the estimated amount the signer needs to submit a referendum.
type Cost struct {
	Deposits *big.Int `json:"deposits"`
	Fees     *big.Int `json:"fees"`
}

// Total is deposits plus fees.
func (c *Cost) Total() *big.Int {
	if c == nil {
		return nil
	}
	total := new(big.Int)
	if c.Deposits != nil {
		total.Add(total, c.Deposits)
	}
	if c.Fees != nil {
		total.Add(total, c.Fees)
	}
	return total
}

func (c *Cost) copy() *Cost {
	if c == nil {
		return nil
	}
	return &Cost{
		Deposits: new(big.Int).Set(c.Deposits),
		Fees:     new(big.Int).Set(c.Fees),
	}
}

// EstimateListener is notified whenever the estimate is replaced. A nil
// cost means the estimate is being recalculated or could not be resolved.
type EstimateListener interface {
	OnEstimateChanged(cost *Cost)
}

// Estimator keeps the cost estimate for the latest track and value. Every
// update cancels the lookup in flight so a slow response for superseded
// input can never overwrite a newer one.
type Estimator struct {
	client ChainClient
	gov    Governance

	mtx        sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	generation uint64
	hasInput   bool
	track      chains.TipperTrack
	value      *big.Int
	cost       *Cost
	wg         sync.WaitGroup

	listenersMtx sync.RWMutex
	listeners    map[string]EstimateListener
}

// NewEstimator returns an estimator whose lookups are bound to ctx.
func NewEstimator(ctx context.Context, client ChainClient, gov Governance) *Estimator {
	return &Estimator{
		client:    client,
		gov:       gov,
		ctx:       ctx,
		listeners: make(map[string]EstimateListener),
	}
}

func sameValue(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// Update re-resolves the estimate for a new track or value. Identical input
// is ignored.
func (e *Estimator) Update(track chains.TipperTrack, value *big.Int) {
	e.mtx.Lock()
	if e.hasInput && e.track == track && sameValue(e.value, value) {
		e.mtx.Unlock()
		return
	}

	if e.cancel != nil {
		e.cancel()
	}

	var v *big.Int
	if value != nil {
		v = new(big.Int).Set(value)
	}

	e.generation++
	generation := e.generation
	e.hasInput = true
	e.track, e.value = track, v
	e.cost = nil

	ctx, cancel := context.WithCancel(e.ctx)
	e.cancel = cancel
	e.wg.Add(1)
	e.mtx.Unlock()

	e.notify(nil)

	go func() {
		defer e.wg.Done()
		e.resolve(ctx, generation, track, v)
	}()
}

func (e *Estimator) resolve(ctx context.Context, generation uint64, track chains.TipperTrack, value *big.Int) {
	submission, err := e.client.SubmissionDeposit(ctx)
	if err != nil {
		e.lookupFailed(ctx, generation, err)
		return
	}

	resolved, err := ResolveTrack(ctx, e.gov, value, track)
	if err != nil {
		e.lookupFailed(ctx, generation, err)
		return
	}

	cost := &Cost{
		Deposits: DecisionDeposit(resolved.Track, submission),
		Fees:     new(big.Int),
	}

	e.mtx.Lock()
	if generation != e.generation {
		e.mtx.Unlock()
		log.Debugf("Dropping stale estimate for value %v", value)
		return
	}
	e.cost = cost
	e.mtx.Unlock()

	e.notify(cost.copy())
}

func (e *Estimator) lookupFailed(ctx context.Context, generation uint64, err error) {
	if ctx.Err() != nil {
		// Superseded or shut down.
		return
	}
	log.Warnf("Cost estimate lookup failed: %v", err)

	e.mtx.RLock()
	current := generation == e.generation
	e.mtx.RUnlock()
	if current {
		e.notify(nil)
	}
}

// Estimate returns the current estimate, nil while calculating.
func (e *Estimator) Estimate() *Cost {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return e.cost.copy()
}

// SetFees records fees computed through the explicit fee path for the given
// input. Fees for input that has since changed are dropped.
func (e *Estimator) SetFees(track chains.TipperTrack, value *big.Int, fees *big.Int) bool {
	if fees == nil {
		return false
	}

	e.mtx.Lock()
	if e.cost == nil || e.track != track || !sameValue(e.value, value) {
		e.mtx.Unlock()
		return false
	}
	e.cost.Fees = new(big.Int).Set(fees)
	cost := e.cost.copy()
	e.mtx.Unlock()

	e.notify(cost)
	return true
}

// Stop cancels any lookup in flight and waits for it to return.
func (e *Estimator) Stop() {
	e.mtx.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.mtx.Unlock()
	e.wg.Wait()
}

// AddEstimateListener registers listener under uniqueID.
func (e *Estimator) AddEstimateListener(listener EstimateListener, uniqueID string) error {
	e.listenersMtx.Lock()
	defer e.listenersMtx.Unlock()

	if _, ok := e.listeners[uniqueID]; ok {
		return errors.New(utils.ErrListenerAlreadyExist)
	}
	e.listeners[uniqueID] = listener
	return nil
}

// RemoveEstimateListener unregisters the listener for uniqueID.
func (e *Estimator) RemoveEstimateListener(uniqueID string) {
	e.listenersMtx.Lock()
	defer e.listenersMtx.Unlock()
	delete(e.listeners, uniqueID)
}

func (e *Estimator) notify(cost *Cost) {
	e.listenersMtx.RLock()
	defer e.listenersMtx.RUnlock()
	for _, l := range e.listeners {
		l.OnEstimateChanged(cost.copy())
	}
}
