// Package statsdb persists lifetime block counters in a bbolt database.
package statsdb

import (
	"encoding/binary"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/adshield/internal/adblock/domain"
)

var bucketTotals = []byte("totals")

// Keys in the totals bucket.
const (
	KeyNetwork  = "network"
	KeyTracking = "tracking"
	KeyYouTube  = "youtube"
	KeyTotal    = "total"
)

// Store keeps per-category lifetime totals.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) a Bolt database at path and ensures the bucket exists.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTotals)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Add increments the named counters by the given amounts in one transaction.
func (s *Store) Add(delta map[string]uint64) error {
	if len(delta) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTotals)
		for k, v := range delta {
			if v == 0 {
				continue
			}
			cur := decode(b.Get([]byte(k)))
			if err := b.Put([]byte(k), encode(cur+v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddCounts increments the category counters and the total.
func (s *Store) AddCounts(c domain.CategoryCounts) error {
	return s.Add(map[string]uint64{
		KeyNetwork:  c.Network,
		KeyTracking: c.Tracking,
		KeyYouTube:  c.YouTube,
		KeyTotal:    c.Total(),
	})
}

// Totals returns every stored counter.
func (s *Store) Totals() (map[string]uint64, error) {
	out := make(map[string]uint64)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTotals)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			out[string(k)] = decode(v)
			return nil
		})
	})
	return out, err
}

// Counts returns the stored category counters.
func (s *Store) Counts() (domain.CategoryCounts, error) {
	t, err := s.Totals()
	if err != nil {
		return domain.CategoryCounts{}, err
	}
	return domain.CategoryCounts{
		Network:  t[KeyNetwork],
		Tracking: t[KeyTracking],
		YouTube:  t[KeyYouTube],
	}, nil
}

func encode(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decode(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
