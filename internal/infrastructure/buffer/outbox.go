// Package buffer is a bbolt-backed outbox for side effects that must survive
// a failing downstream and a process restart.
package buffer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"
)

var deadBucket = []byte("dead")

// Outbox keeps pending items in one bucket, ordered by priority then age, and
// items that exhausted their retries in a dead-letter bucket.
type Outbox struct {
	db     *bolt.DB
	bucket []byte
}

// Open creates the bolt file and both buckets.
func Open(path string, bucket string) (*Outbox, error) {
	if bucket == "" {
		bucket = "outbox"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(deadBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Outbox{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Enqueue stores an item under a priority-aware key.
func (o *Outbox) Enqueue(item Item) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	item.normalize()
	return o.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(o.bucket), item)
	})
}

// Peek returns up to limit pending items without removing them.
func (o *Outbox) Peek(limit int) ([]Item, error) {
	if o == nil || o.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var items []Item
	err := o.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(o.bucket).Cursor()
		for k, v := c.First(); k != nil && len(items) < limit; k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			item.bucketKey = append([]byte(nil), k...)
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

// Ack removes a processed item.
func (o *Outbox) Ack(item Item) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(o.bucket).Delete(item.bucketKey)
	})
}

// Retry moves an item to the back of its priority lane with a bumped retry
// count, in one transaction.
func (o *Outbox) Retry(item Item, cause error) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(o.bucket)
		if err := b.Delete(item.bucketKey); err != nil {
			return err
		}
		item.Retries++
		item.Timestamp = time.Now()
		if cause != nil {
			item.LastError = cause.Error()
		}
		return put(b, item)
	})
}

// Bury moves an item to the dead-letter bucket.
func (o *Outbox) Bury(item Item, cause error) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(o.bucket).Delete(item.bucketKey); err != nil {
			return err
		}
		if cause != nil {
			item.LastError = cause.Error()
		}
		return put(tx.Bucket(deadBucket), item)
	})
}

// Size returns the number of pending items.
func (o *Outbox) Size() (int, error) {
	return o.count(o.bucket)
}

// DeadSize returns the number of buried items.
func (o *Outbox) DeadSize() (int, error) {
	return o.count(deadBucket)
}

// PurgeDead drops buried items older than the given time.
func (o *Outbox) PurgeDead(olderThan time.Time) (int, error) {
	if o == nil || o.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	purged := 0
	err := o.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(deadBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			if item.Timestamp.Before(olderThan) {
				if err := c.Delete(); err != nil {
					return err
				}
				purged++
			}
		}
		return nil
	})
	return purged, err
}

func (o *Outbox) Close() error {
	if o == nil || o.db == nil {
		return nil
	}
	return o.db.Close()
}

func (o *Outbox) count(bucket []byte) (int, error) {
	if o == nil || o.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var n int
	err := o.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucket).Stats().KeyN
		return nil
	})
	return n, err
}

func put(b *bolt.Bucket, item Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return b.Put(itemKey(item), payload)
}

func itemKey(item Item) []byte {
	return []byte(fmt.Sprintf("%d_%020d_%s", item.Priority, item.Timestamp.UnixNano(), item.ID))
}
