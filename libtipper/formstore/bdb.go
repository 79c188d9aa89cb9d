package formstore

import (
	"decred.org/dcrwallet/v2/errors"
	"github.com/asdine/storm"
	bolt "go.etcd.io/bbolt"
)

// BucketName is the storm bucket forms are kept in.
const BucketName = "forms"

// stormBackend stores raw JSON straight into a bolt bucket of the shared
// storm database so the bytes are kept exactly as written.
type stormBackend struct {
	db *storm.DB
}

// NewStormStore returns a Store for key backed by db. The caller owns db.
func NewStormStore(db *storm.DB, key string) *Store {
	return newStore(&stormBackend{db: db}, key)
}

func (b *stormBackend) get(key string) ([]byte, error) {
	var value []byte
	err := b.db.Bolt.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketName))
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.E(errors.IO, err)
	}
	if value == nil {
		return nil, errors.E(errors.NotExist, storm.ErrNotFound)
	}
	return value, nil
}

func (b *stormBackend) put(key string, value []byte) error {
	err := b.db.Bolt.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), value)
	})
	if err != nil {
		return errors.E(errors.IO, err)
	}
	return nil
}

func (b *stormBackend) delete(key string) error {
	err := b.db.Bolt.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketName))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return errors.E(errors.IO, err)
	}
	return nil
}

func (b *stormBackend) close() error {
	return nil
}
