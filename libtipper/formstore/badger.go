package formstore

import (
	"os"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/tipwizard/libtipper/utils"
	"github.com/dgraph-io/badger"
	"github.com/dgraph-io/badger/options"
)

// convertErr wraps a driver-specific error with an error code.
func convertErr(err error) error {
	if err == nil {
		return nil
	}
	var kind errors.Kind
	switch err {
	case badger.ErrValueLogSize, badger.ErrTxnTooBig, badger.ErrReadOnlyTxn, badger.ErrDiscardedTxn,
		badger.ErrEmptyKey, badger.ErrInvalidRequest:
		kind = errors.Invalid
	case badger.ErrKeyNotFound:
		kind = errors.NotExist
	case badger.ErrConflict, badger.ErrRetry:
		kind = errors.IO
	}
	return errors.E(kind, err)
}

type badgerBackend struct {
	db *badger.DB
}

// OpenBadgerStore opens, creating if needed, a badger database in dir and
// returns a Store for key. Close releases the database.
func OpenBadgerStore(dir, key string) (*Store, error) {
	const op errors.Op = "formstore.OpenBadgerStore"

	if err := os.MkdirAll(dir, utils.UserFilePerm); err != nil {
		return nil, errors.E(op, errors.IO, err)
	}

	opts := badger.DefaultOptions(dir).WithValueDir(dir)
	opts.Logger = nil
	// Small values only; keep the footprint of the value log down.
	opts.ValueLogLoadingMode = options.FileIO
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.E(op, convertErr(err))
	}
	return newStore(&badgerBackend{db: db}, key), nil
}

func (b *badgerBackend) get(key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, convertErr(err)
}

func (b *badgerBackend) put(key string, value []byte) error {
	return convertErr(b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	}))
}

func (b *badgerBackend) delete(key string) error {
	return convertErr(b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}))
}

func (b *badgerBackend) close() error {
	return convertErr(b.db.Close())
}
