package ext

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/crypto-power/tipwizard/libtipper/utils"
)

const (
	// These are the rate sources supported.
	Kraken = "kraken"
	None   = "none"
	// Fixed serves the rate set with SetFixedRate. It keeps the wizard
	// usable offline against a development chain.
	Fixed = "fixed"
)

// RateSource keeps the USD rate of the selected chain's token fresh. Only the
// pair of the selected chain is polled. Switching pairs abandons any request
// still in flight for the previous pair.
type RateSource struct {
	ctx     context.Context
	source  string
	getRate func(ctx context.Context, pair string) (float64, error)

	mtx             sync.RWMutex
	pair            string
	ticker          *Ticker
	disabled        bool
	fixedRate       float64
	generation      uint64
	cancelPoll      context.CancelFunc
	refreshInterval time.Duration
	wg              sync.WaitGroup

	rateListenersMtx sync.RWMutex
	rateListeners    map[string]*RateListener
}

// NewRateSource returns a rate source that stays idle until a pair is set.
func NewRateSource(ctx context.Context, source string) (*RateSource, error) {
	rs := &RateSource{
		ctx:             ctx,
		refreshInterval: utils.RateRefreshInterval,
		rateListeners:   make(map[string]*RateListener),
	}
	if err := rs.setSource(source); err != nil {
		return nil, err
	}
	return rs, nil
}

func (rs *RateSource) setSource(source string) error {
	switch source {
	case Kraken:
		rs.getRate = krakenGetRate
	case None: /* none is the dummy rate source for when user disables rates */
		rs.getRate = dummyGetRate
	case Fixed:
		rs.getRate = rs.fixedGetRate
	default:
		return fmt.Errorf("New rate source %s is not supported", source)
	}
	rs.source = source
	return nil
}

func dummyGetRate(context.Context, string) (float64, error) {
	return 0, fmt.Errorf("rates are disabled")
}

func (rs *RateSource) fixedGetRate(context.Context, string) (float64, error) {
	rs.mtx.RLock()
	defer rs.mtx.RUnlock()
	if rs.fixedRate <= 0 {
		return 0, fmt.Errorf("no fixed rate set")
	}
	return rs.fixedRate, nil
}

// SetFixedRate sets the rate served by the fixed source and refetches it.
func (rs *RateSource) SetFixedRate(rate float64) {
	rs.mtx.Lock()
	rs.fixedRate = rate
	rs.restartPollLocked()
	rs.mtx.Unlock()
}

// Name is the string associated with the rate source for display.
func (rs *RateSource) Name() string {
	rs.mtx.RLock()
	defer rs.mtx.RUnlock()
	return strings.ToUpper(rs.source[:1]) + rs.source[1:]
}

// Pair returns the pair currently polled.
func (rs *RateSource) Pair() string {
	rs.mtx.RLock()
	defer rs.mtx.RUnlock()
	return rs.pair
}

// Rate returns the latest rate, nil while unknown or after a failed fetch.
func (rs *RateSource) Rate() *float64 {
	rs.mtx.RLock()
	defer rs.mtx.RUnlock()
	if rs.ticker == nil {
		return nil
	}
	rate := rs.ticker.Rate
	return &rate
}

// Ticker returns a copy of the last successful fetch.
func (rs *RateSource) Ticker() *Ticker {
	rs.mtx.RLock()
	defer rs.mtx.RUnlock()
	if rs.ticker == nil {
		return nil
	}
	t := *rs.ticker
	return &t
}

// Ready reports whether a rate is available.
func (rs *RateSource) Ready() bool {
	return rs.Rate() != nil
}

// SetPair switches polling to pair. The current rate is dropped immediately
// so it can never be applied to the new chain.
func (rs *RateSource) SetPair(pair string) {
	rs.mtx.Lock()
	if rs.pair == pair {
		rs.mtx.Unlock()
		return
	}
	rs.pair = pair
	rs.ticker = nil
	rs.restartPollLocked()
	rs.mtx.Unlock()

	rs.notifyRateListeners()
}

// ToggleStatus stops or resumes polling.
func (rs *RateSource) ToggleStatus(disable bool) {
	rs.mtx.Lock()
	if rs.disabled == disable {
		rs.mtx.Unlock()
		return
	}
	rs.disabled = disable
	rs.ticker = nil
	rs.restartPollLocked()
	rs.mtx.Unlock()

	rs.notifyRateListeners()
}

// ToggleSource changes the rate source to newSource and restarts polling.
func (rs *RateSource) ToggleSource(newSource string) error {
	rs.mtx.Lock()
	if newSource == rs.source {
		rs.mtx.Unlock()
		return nil // nothing to do
	}
	if err := rs.setSource(newSource); err != nil {
		rs.mtx.Unlock()
		return err
	}
	rs.ticker = nil
	rs.restartPollLocked()
	rs.mtx.Unlock()

	rs.notifyRateListeners()
	return nil
}

// restartPollLocked cancels the running poll and starts a new one for the
// current pair. rs.mtx must be held.
func (rs *RateSource) restartPollLocked() {
	rs.generation++
	if rs.cancelPoll != nil {
		rs.cancelPoll()
		rs.cancelPoll = nil
	}
	if rs.pair == "" || rs.disabled || rs.source == None || rs.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithCancel(rs.ctx)
	rs.cancelPoll = cancel
	generation, pair, interval := rs.generation, rs.pair, rs.refreshInterval

	rs.wg.Add(1)
	go func() {
		defer rs.wg.Done()
		rs.poll(ctx, generation, pair, interval)
	}()
}

func (rs *RateSource) poll(ctx context.Context, generation uint64, pair string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rs.fetch(ctx, generation, pair)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// fetch retrieves the rate for pair and applies it unless the pair was
// switched in the meantime.
func (rs *RateSource) fetch(ctx context.Context, generation uint64, pair string) {
	rs.mtx.RLock()
	getRate := rs.getRate
	rs.mtx.RUnlock()

	rate, err := getRate(ctx, pair)
	if ctx.Err() != nil {
		return
	}

	rs.mtx.Lock()
	if rs.generation != generation {
		rs.mtx.Unlock()
		log.Debugf("Dropping %s rate fetched after a pair switch", pair)
		return
	}
	if err != nil {
		rs.ticker = nil
	} else {
		rs.ticker = &Ticker{Pair: pair, Rate: rate, LastUpdate: time.Now()}
	}
	rs.mtx.Unlock()

	if err != nil {
		log.Errorf("%s: Error fetching rate: %v", rs.source, err)
	} else {
		log.Tracef("%s rate updated: %f", pair, rate)
	}
	rs.notifyRateListeners()
}

// Refresh fetches the rate of the current pair right away.
func (rs *RateSource) Refresh() {
	rs.mtx.RLock()
	generation, pair := rs.generation, rs.pair
	idle := pair == "" || rs.disabled || rs.source == None
	rs.mtx.RUnlock()

	if idle {
		return
	}
	rs.fetch(rs.ctx, generation, pair)
}

// Stop ends polling and waits for the poll goroutine to exit.
func (rs *RateSource) Stop() {
	rs.mtx.Lock()
	rs.generation++
	if rs.cancelPoll != nil {
		rs.cancelPoll()
		rs.cancelPoll = nil
	}
	rs.mtx.Unlock()
	rs.wg.Wait()
}

func (rs *RateSource) AddRateListener(listener *RateListener, uniqueID string) error {
	rs.rateListenersMtx.Lock()
	defer rs.rateListenersMtx.Unlock()

	if _, ok := rs.rateListeners[uniqueID]; ok {
		return errors.New(utils.ErrListenerAlreadyExist)
	}
	rs.rateListeners[uniqueID] = listener
	return nil
}

func (rs *RateSource) RemoveRateListener(uniqueID string) {
	rs.rateListenersMtx.Lock()
	defer rs.rateListenersMtx.Unlock()
	delete(rs.rateListeners, uniqueID)
}

func (rs *RateSource) notifyRateListeners() {
	rs.rateListenersMtx.RLock()
	defer rs.rateListenersMtx.RUnlock()
	for _, l := range rs.rateListeners {
		l.Notify()
	}
}
