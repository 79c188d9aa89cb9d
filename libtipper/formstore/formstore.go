// Package formstore persists the wizard answers between sessions.
package formstore

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"decred.org/dcrwallet/v2/errors"
	"github.com/ararog/timeago"
	"github.com/crypto-power/tipwizard/libtipper/tip"
)

const (
	// TipFormKey is the key the tip wizard answers are stored under.
	TipFormKey = "tip-form"

	lastSavedSuffix = ".lastSaved"
)

// legacyKeys mark the answers of the earlier bounty wizard, which shared the
// storage key with the tip wizard.
var legacyKeys = []string{"supervisors", "prizePool", "projectTitle"}

// backend is a flat key value store.
type backend interface {
	get(key string) ([]byte, error)
	put(key string, value []byte) error
	delete(key string) error
	close() error
}

// Store loads and saves one form under a fixed key.
type Store struct {
	key string
	db  backend

	mtx       sync.RWMutex
	lastSaved time.Time
}

func newStore(db backend, key string) *Store {
	s := &Store{key: key, db: db}
	if raw, err := db.get(key + lastSavedSuffix); err == nil {
		if unix, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			s.lastSaved = time.Unix(unix, 0)
		}
	}
	return s
}

// Load returns the stored draft, or the defaults when nothing usable is
// stored. Unreadable or legacy data is deleted.
func (s *Store) Load() (*tip.FormDraft, error) {
	const op errors.Op = "formstore.Load"

	raw, err := s.db.get(s.key)
	if err != nil {
		if errors.Is(err, errors.NotExist) {
			return tip.DefaultDraft(), nil
		}
		return nil, errors.E(op, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		log.Warnf("Discarding unreadable %s data: %v", s.key, err)
		return tip.DefaultDraft(), s.discard(op)
	}

	if isLegacy(fields) {
		log.Infof("Discarding legacy %s data", s.key)
		return tip.DefaultDraft(), s.discard(op)
	}

	draft := tip.DefaultDraft()
	if err := json.Unmarshal(raw, draft); err != nil {
		log.Warnf("Discarding malformed %s data: %v", s.key, err)
		return tip.DefaultDraft(), s.discard(op)
	}
	return draft, nil
}

func isLegacy(fields map[string]json.RawMessage) bool {
	if _, ok := fields[tip.FieldBeneficiary]; ok {
		return false
	}
	for _, k := range legacyKeys {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

func (s *Store) discard(op errors.Op) error {
	if err := s.Clear(); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Save stores draft and stamps the save time.
func (s *Store) Save(draft *tip.FormDraft) error {
	const op errors.Op = "formstore.Save"

	if draft == nil {
		return errors.E(op, errors.Invalid, "nil draft")
	}
	raw, err := json.Marshal(draft)
	if err != nil {
		return errors.E(op, errors.Encoding, err)
	}
	if err := s.db.put(s.key, raw); err != nil {
		return errors.E(op, err)
	}

	now := time.Now()
	if err := s.db.put(s.key+lastSavedSuffix, []byte(strconv.FormatInt(now.Unix(), 10))); err != nil {
		return errors.E(op, err)
	}

	s.mtx.Lock()
	s.lastSaved = now
	s.mtx.Unlock()
	return nil
}

// Clear deletes the stored draft.
func (s *Store) Clear() error {
	const op errors.Op = "formstore.Clear"

	for _, key := range []string{s.key, s.key + lastSavedSuffix} {
		if err := s.db.delete(key); err != nil && !errors.Is(err, errors.NotExist) {
			return errors.E(op, err)
		}
	}

	s.mtx.Lock()
	s.lastSaved = time.Time{}
	s.mtx.Unlock()
	return nil
}

// LastSaved returns when the draft was last saved, zero if never.
func (s *Store) LastSaved() time.Time {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.lastSaved
}

// LastSavedAgo renders LastSaved relative to now, e.g. "2 minutes ago". It
// is empty when the draft was never saved.
func (s *Store) LastSavedAgo() string {
	lastSaved := s.LastSaved()
	if lastSaved.IsZero() {
		return ""
	}
	ago, err := timeago.TimeAgoWithTime(time.Now(), lastSaved)
	if err != nil {
		return ""
	}
	return ago
}

// Close releases the backend. A shared storm database is left open.
func (s *Store) Close() error {
	return s.db.close()
}
