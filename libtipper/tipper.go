// Package libtipper composes the tip wizard backend: persisted form state,
// the currency rate, cost estimation and the transaction sequencer of the
// selected chain.
package libtipper

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"sync"

	"decred.org/dcrwallet/v2/errors"
	"github.com/asdine/storm"
	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/ext"
	"github.com/crypto-power/tipwizard/libtipper/formstore"
	"github.com/crypto-power/tipwizard/libtipper/history"
	"github.com/crypto-power/tipwizard/libtipper/identity"
	"github.com/crypto-power/tipwizard/libtipper/referenda"
	"github.com/crypto-power/tipwizard/libtipper/tip"
	"github.com/crypto-power/tipwizard/libtipper/txprocess"
	"github.com/crypto-power/tipwizard/libtipper/utils"
	bolt "go.etcd.io/bbolt"
)

// Backend bundles the chain collaborators of one chain.
type Backend struct {
	Client referenda.ChainClient
	Gov    referenda.Governance
	Signer txprocess.Signer
	// SelectSigner switches the account the signer signs with. Optional.
	SelectSigner func(address string)
}

// BackendFactory connects to the chain described by params.
type BackendFactory func(params *chains.Params) (*Backend, error)

// Config holds what NewTipManager needs.
type Config struct {
	RootDir    string
	DBDriver   string
	Chain      chains.ChainType
	RateSource string
	Backends   BackendFactory

	// FixedRate is the rate served when RateSource is ext.Fixed.
	FixedRate float64
}

// chainSession holds the components bound to the selected chain. It is
// replaced as a whole on a chain switch.
type chainSession struct {
	params     *chains.Params
	backend    *Backend
	builder    *referenda.Builder
	estimator  *referenda.Estimator
	sequencer  *txprocess.Sequencer
	identities *identity.Resolver
	cancel     context.CancelFunc

	// prepared is the form the pending creation transaction was built from
	// and spends the amounts it proposes.
	prepared *tip.ValidatedForm
	spends   *tip.SpendAmounts
}

// wizardState is the UI position the submit gate depends on.
type wizardState struct {
	reviewStep        bool
	returnFundsAgreed bool
}

type TipManager struct {
	rootDir  string
	dbDriver string
	db       *storm.DB
	backends BackendFactory

	Forms      *formstore.Store
	History    *history.Store
	RateSource *ext.RateSource

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mtx     sync.RWMutex
	session *chainSession
	account string
	balance *big.Int
	draft   *tip.FormDraft
	wizard  wizardState

	stepListenersMu sync.RWMutex
	stepListeners   map[string]txprocess.StepListener

	shutdownOnce sync.Once
}

// NewTipManager opens the data stores under cfg.RootDir. Nothing talks to
// the network until Start is called.
func NewTipManager(cfg *Config) (*TipManager, error) {
	errors.Separator = ":: "

	if cfg.Backends == nil {
		return nil, errors.E(errors.Invalid, "no chain backend configured")
	}

	if err := os.MkdirAll(cfg.RootDir, utils.UserFilePerm); err != nil {
		return nil, errors.Errorf("failed to create rootDir: %v", err)
	}

	dbPath := filepath.Join(cfg.RootDir, utils.FormDBName)
	db, err := storm.Open(dbPath, storm.BoltOptions(0600, &bolt.Options{Timeout: utils.DBLockTimeout}))
	if err != nil {
		log.Errorf("Error opening tipper database: %s", err.Error())
		if err == bolt.ErrTimeout {
			// timeout error occurs if storm fails to acquire a lock on the database file
			return nil, errors.E(utils.ErrDatabaseInUse)
		}
		return nil, errors.Errorf("error opening tipper database: %s", err.Error())
	}

	mgr := &TipManager{
		rootDir:       cfg.RootDir,
		dbDriver:      cfg.DBDriver,
		db:            db,
		backends:      cfg.Backends,
		stepListeners: make(map[string]txprocess.StepListener),
	}

	if err := mgr.init(cfg); err != nil {
		db.Close()
		return nil, err
	}
	return mgr, nil
}

func (mgr *TipManager) init(cfg *Config) error {
	var err error
	switch mgr.dbDriver {
	case utils.BDBDriver, "":
		mgr.dbDriver = utils.BDBDriver
		mgr.Forms = formstore.NewStormStore(mgr.db, formstore.TipFormKey)
	case utils.BadgerDriver:
		mgr.Forms, err = formstore.OpenBadgerStore(filepath.Join(mgr.rootDir, utils.BadgerDirName), formstore.TipFormKey)
		if err != nil {
			return err
		}
	default:
		return errors.E(errors.Invalid, utils.ErrUnknownDriver)
	}

	mgr.History, err = history.NewStore(mgr.db)
	if err != nil {
		return err
	}

	source := cfg.RateSource
	if source == "" {
		source = mgr.GetRateSource()
	}
	if source == "" || (source == ext.Fixed && cfg.FixedRate <= 0) {
		source = ext.Kraken
	}
	mgr.ctx, mgr.cancel = context.WithCancel(context.Background())
	mgr.RateSource, err = ext.NewRateSource(mgr.ctx, source)
	if err != nil {
		return err
	}
	if source == ext.Fixed {
		mgr.RateSource.SetFixedRate(cfg.FixedRate)
	}

	chain := cfg.Chain
	if chain == "" {
		chain = mgr.SelectedChain()
	}
	params, err := chains.Lookup(chain)
	if err != nil {
		return err
	}
	if cfg.Chain != "" {
		// An explicit chain becomes the selection for later runs.
		mgr.SaveUserConfigValue(SelectedChainConfigKey, string(params.Type))
	}

	mgr.draft, err = mgr.Forms.Load()
	if err != nil {
		return err
	}

	mgr.session = &chainSession{params: params}
	mgr.account = mgr.ReadStringConfigValueForKey(accountConfigKey(params.Type))
	return nil
}

// Start connects to the selected chain and starts the rate poll. It must be
// called once before the wizard is used.
func (mgr *TipManager) Start() error {
	mgr.mtx.Lock()
	params := mgr.session.params
	mgr.mtx.Unlock()

	if err := mgr.switchSession(params); err != nil {
		return err
	}

	listener := ext.NewRateListener()
	if err := mgr.RateSource.AddRateListener(listener, "tipmanager"); err != nil {
		return err
	}

	mgr.wg.Add(1)
	go func() {
		defer mgr.wg.Done()
		for {
			select {
			case <-mgr.ctx.Done():
				return
			case <-listener.RateUpdateChan:
				mgr.refreshEstimate()
			}
		}
	}()

	log.Infof("Tip manager started on %s", params.Name)
	return nil
}

// switchSession replaces the chain bound components with fresh ones for
// params.
func (mgr *TipManager) switchSession(params *chains.Params) error {
	backend, err := mgr.backends(params)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(mgr.ctx)
	session := &chainSession{
		params:     params,
		backend:    backend,
		builder:    referenda.NewBuilder(backend.Client, backend.Gov, params),
		estimator:  referenda.NewEstimator(ctx, backend.Client, backend.Gov),
		identities: identity.NewResolver(backend.Client),
		cancel:     cancel,
	}
	session.sequencer = txprocess.NewSequencer(session.builder, backend.Signer)
	if err := session.sequencer.Start(ctx); err != nil {
		cancel()
		return err
	}
	if err := session.sequencer.AddStepListener(mgr, "tipmanager"); err != nil {
		session.sequencer.Stop()
		cancel()
		return err
	}

	mgr.mtx.Lock()
	old := mgr.session
	mgr.session = session
	mgr.account = mgr.ReadStringConfigValueForKey(accountConfigKey(params.Type))
	mgr.balance = nil
	mgr.wizard = wizardState{}
	account := mgr.account
	mgr.mtx.Unlock()

	old.stop()

	if account != "" && backend.SelectSigner != nil {
		backend.SelectSigner(account)
	}

	mgr.RateSource.SetPair(params.KrakenPair)
	mgr.refreshEstimate()
	go mgr.refreshBalance()
	return nil
}

func (s *chainSession) stop() {
	if s == nil || s.cancel == nil {
		return
	}
	s.sequencer.Stop()
	s.estimator.Stop()
	s.cancel()
}

// SetChain switches the wizard to chain. It is refused while a transaction
// is awaiting its outcome.
func (mgr *TipManager) SetChain(chain chains.ChainType) error {
	const op errors.Op = "libtipper.SetChain"

	params, err := chains.Lookup(chain)
	if err != nil {
		return errors.E(op, errors.Invalid, err)
	}

	mgr.mtx.RLock()
	session := mgr.session
	mgr.mtx.RUnlock()
	if session.params.Type == params.Type {
		return nil
	}
	if session.busy() {
		return errors.E(op, errors.Invalid, utils.ErrStepInProgress)
	}

	if err := mgr.switchSession(params); err != nil {
		return errors.E(op, err)
	}
	mgr.SaveUserConfigValue(SelectedChainConfigKey, string(params.Type))
	log.Infof("Switched to %s", params.Name)
	return nil
}

// discardPrepared dismisses a creation transaction of session that was
// built but not submitted. A submitted or created referendum is kept.
func (mgr *TipManager) discardPrepared(session *chainSession) {
	if session.sequencer == nil || session.busy() {
		return
	}
	state, err := session.sequencer.State(txprocess.StepCreation)
	if err != nil || state.Kind == txprocess.StateFinalizedSuccess {
		return
	}
	if err := session.sequencer.Dismiss(txprocess.StepCreation); err != nil {
		log.Warnf("Unable to dismiss the prepared referendum: %v", err)
		return
	}

	mgr.mtx.Lock()
	session.prepared, session.spends = nil, nil
	mgr.mtx.Unlock()
}

func (s *chainSession) busy() bool {
	if s.sequencer == nil {
		return false
	}
	view := s.sequencer.ActiveStep()
	return view != nil && (view.AwaitingSignature || view.State.Kind == txprocess.StateInFlight)
}

// Chain returns the parameters of the selected chain.
func (mgr *TipManager) Chain() *chains.Params {
	mgr.mtx.RLock()
	defer mgr.mtx.RUnlock()
	return mgr.session.params
}

// SetAccount selects the account transactions are signed with. An empty
// address deselects.
func (mgr *TipManager) SetAccount(address string) error {
	const op errors.Op = "libtipper.SetAccount"

	mgr.mtx.Lock()
	session := mgr.session
	if address != "" {
		if _, err := session.params.ValidateAddress(address); err != nil {
			mgr.mtx.Unlock()
			return errors.E(op, errors.Invalid, utils.ErrInvalidAddress)
		}
	}
	mgr.account = address
	mgr.balance = nil
	mgr.wizard = wizardState{}
	mgr.mtx.Unlock()
	mgr.discardPrepared(session)

	if address != "" && session.backend != nil && session.backend.SelectSigner != nil {
		session.backend.SelectSigner(address)
	}
	mgr.SaveUserConfigValue(accountConfigKey(session.params.Type), address)
	go mgr.refreshBalance()
	return nil
}

// Account returns the selected account, empty if none.
func (mgr *TipManager) Account() string {
	mgr.mtx.RLock()
	defer mgr.mtx.RUnlock()
	return mgr.account
}

// SignerBalance queries the free balance of the selected account.
func (mgr *TipManager) SignerBalance(ctx context.Context) (*big.Int, error) {
	const op errors.Op = "libtipper.SignerBalance"

	mgr.mtx.RLock()
	account, session := mgr.account, mgr.session
	mgr.mtx.RUnlock()

	if account == "" {
		return nil, errors.E(op, errors.Invalid, utils.ErrNoAccountSelected)
	}
	if session.backend == nil {
		return nil, errors.E(op, errors.Invalid, utils.ErrFailedPrecondition)
	}

	free, _, err := session.backend.Client.FreeBalance(ctx, account)
	if err != nil {
		return nil, errors.E(op, err)
	}

	mgr.mtx.Lock()
	if mgr.account == account && mgr.session == session {
		mgr.balance = free
	}
	mgr.mtx.Unlock()
	return free, nil
}

func (mgr *TipManager) refreshBalance() {
	if mgr.Account() == "" || mgr.ctx.Err() != nil {
		return
	}
	if _, err := mgr.SignerBalance(mgr.ctx); err != nil {
		log.Warnf("Unable to fetch signer balance: %v", err)
	}
}

// Shutdown stops every background task and closes the databases.
func (mgr *TipManager) Shutdown() {
	mgr.shutdownOnce.Do(func() {
		log.Info("Shutting down tip manager")

		mgr.mtx.RLock()
		session := mgr.session
		mgr.mtx.RUnlock()
		session.stop()

		mgr.RateSource.Stop()
		mgr.cancel()
		mgr.wg.Wait()

		if mgr.dbDriver == utils.BadgerDriver {
			if err := mgr.Forms.Close(); err != nil {
				log.Errorf("Error closing form store: %v", err)
			}
		}
		if err := mgr.db.Close(); err != nil {
			log.Errorf("Error closing tipper database: %v", err)
		}
	})
}
