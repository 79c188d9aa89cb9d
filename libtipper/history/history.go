// Package history keeps the tip referenda submitted from the wizard so they
// can be listed after the wizard was reset.
package history

import (
	"sync"
	"time"

	"decred.org/dcrwallet/v2/errors"
	"github.com/asdine/storm"
	"github.com/asdine/storm/q"
	"github.com/crypto-power/tipwizard/libtipper/chains"
	"github.com/crypto-power/tipwizard/libtipper/utils"
)

// Store records submitted referenda in a storm database.
type Store struct {
	db *storm.DB

	notificationListenersMu sync.RWMutex
	notificationListeners   map[string]NotificationListener
}

// NewStore prepares db to hold referenda.
func NewStore(db *storm.DB) (*Store, error) {
	if err := db.Init(&Referendum{}); err != nil {
		log.Errorf("Error initializing history database: %s", err.Error())
		return nil, err
	}

	return &Store{
		db:                    db,
		notificationListeners: make(map[string]NotificationListener),
	}, nil
}

// Record saves a newly created referendum, replacing any earlier record of
// the same chain and index.
func (s *Store) Record(r *Referendum) error {
	const op errors.Op = "history.Record"

	if r == nil {
		return errors.E(op, errors.Invalid, "nil referendum")
	}
	r.Key = ReferendumKey(r.Chain, r.Index)
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().Unix()
	}

	var old Referendum
	err := s.db.One("Key", r.Key, &old)
	if err != nil && err != storm.ErrNotFound {
		return errors.E(op, errors.Errorf("error checking if referendum was already recorded: %s", err.Error()))
	}
	if old.Key != "" {
		// delete old record before saving new (if it exists)
		if err := s.db.DeleteStruct(&old); err != nil {
			return errors.E(op, err)
		}
	}

	r.ID = 0
	if err := s.db.Save(r); err != nil {
		return errors.E(op, err)
	}

	s.publish(func(l NotificationListener) { l.OnReferendumCreated(r) })
	return nil
}

// MarkDecisionDeposit flags the referendum's decision deposit as placed.
func (s *Store) MarkDecisionDeposit(chain chains.ChainType, index uint32, txHash string) (*Referendum, error) {
	const op errors.Op = "history.MarkDecisionDeposit"

	r, err := s.Get(chain, index)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if r.DecisionDepositPlaced {
		return r, nil
	}

	r.DecisionDepositPlaced = true
	r.DecisionDepositTxHash = txHash
	r.DepositPlacedAt = time.Now().Unix()
	if err := s.db.Update(r); err != nil {
		return nil, errors.E(op, err)
	}

	s.publish(func(l NotificationListener) { l.OnDecisionDepositPlaced(r) })
	return r, nil
}

// RecordFailure reports a step that did not make it on chain. Failures are
// not persisted.
func (s *Store) RecordFailure(chain chains.ChainType, step, message string) {
	s.publish(func(l NotificationListener) { l.OnSubmissionFailed(chain, step, message) })
}

// Get returns the referendum index of chain.
func (s *Store) Get(chain chains.ChainType, index uint32) (*Referendum, error) {
	var r Referendum
	err := s.db.One("Key", ReferendumKey(chain, index), &r)
	if err != nil {
		if err == storm.ErrNotFound {
			return nil, errors.E(errors.NotExist, utils.ErrNotExist)
		}
		return nil, err
	}
	return &r, nil
}

// List returns the referenda of chain, all chains when chain is empty.
func (s *Store) List(chain chains.ChainType, offset, limit int32, newestFirst bool) ([]*Referendum, error) {
	query := s.query(chain)

	if offset > 0 {
		query = query.Skip(int(offset))
	}

	if limit > 0 {
		query = query.Limit(int(limit))
	}

	query = query.OrderBy("CreatedAt", "Index")
	if newestFirst {
		query = query.Reverse()
	}

	var referenda []*Referendum
	err := query.Find(&referenda)
	if err != nil && err != storm.ErrNotFound {
		return nil, errors.Errorf("error fetching referenda: %s", err.Error())
	}
	return referenda, nil
}

// Count returns how many referenda of chain were recorded.
func (s *Store) Count(chain chains.ChainType) (int, error) {
	count, err := s.query(chain).Count(&Referendum{})
	if err != nil && err != storm.ErrNotFound {
		return 0, err
	}
	return count, nil
}

func (s *Store) query(chain chains.ChainType) storm.Query {
	if chain == "" {
		return s.db.Select(q.True())
	}
	return s.db.Select(q.Eq("Chain", chain))
}

func (s *Store) AddNotificationListener(listener NotificationListener, uniqueIdentifier string) error {
	s.notificationListenersMu.Lock()
	defer s.notificationListenersMu.Unlock()

	if _, ok := s.notificationListeners[uniqueIdentifier]; ok {
		return errors.New(utils.ErrListenerAlreadyExist)
	}

	s.notificationListeners[uniqueIdentifier] = listener
	return nil
}

func (s *Store) RemoveNotificationListener(uniqueIdentifier string) {
	s.notificationListenersMu.Lock()
	defer s.notificationListenersMu.Unlock()

	delete(s.notificationListeners, uniqueIdentifier)
}

func (s *Store) publish(fn func(NotificationListener)) {
	s.notificationListenersMu.RLock()
	defer s.notificationListenersMu.RUnlock()

	for _, l := range s.notificationListeners {
		fn(l)
	}
}
